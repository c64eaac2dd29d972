package forecast

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fire-life/firelife/internal/apperr"
	"github.com/fire-life/firelife/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique shared-cache name so pooled connections see the same
	// in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", ulid.Make().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUserAndPlan(t *testing.T, db *gorm.DB) (*models.User, *models.Plan) {
	t.Helper()

	user := &models.User{Email: ulid.Make().String() + "@example.com", PasswordHash: "x", Name: "Test"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	plan := &models.Plan{
		UserID:         user.ID,
		Name:           "base plan",
		CurrentAge:     30,
		AnnualExpenses: 40000,
		AnnualSavings:  100000,
		ExpectedReturn: 0,
		InflationRate:  0,
		WithdrawalRate: 0.04,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	return user, plan
}

func TestCreateForecast(t *testing.T) {
	db := newTestDB(t)
	user, plan := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	fc, err := svc.CreateForecast(context.Background(), user.ID, plan.ID, 0)
	if err != nil {
		t.Fatalf("CreateForecast() error: %v", err)
	}

	if fc.TargetAssets != 1000000 {
		t.Errorf("TargetAssets = %v, want 1000000", fc.TargetAssets)
	}
	if !fc.Achievable || fc.YearsToRetirement != 10 {
		t.Errorf("got achievable=%v years=%d, want achievable in 10 years", fc.Achievable, fc.YearsToRetirement)
	}
	if fc.Projection == "" {
		t.Error("expected serialized projection")
	}

	var count int64
	db.Model(&models.Forecast{}).Where("plan_id = ?", plan.ID).Count(&count)
	if count != 1 {
		t.Errorf("forecast rows = %d, want 1", count)
	}
}

func TestCreateForecast_PlanOwnership(t *testing.T) {
	db := newTestDB(t)
	_, plan := seedUserAndPlan(t, db)
	other, _ := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	// Another user's plan must look like it does not exist
	_, err := svc.CreateForecast(context.Background(), other.ID, plan.ID, 1000)
	if err == nil {
		t.Fatal("expected error for foreign plan")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("error kind = %v, want KindNotFound", apperr.KindOf(err))
	}
}

func TestCreateForecast_UnknownPlan(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	_, err := svc.CreateForecast(context.Background(), user.ID, "missing", 1000)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("error kind = %v, want KindNotFound", apperr.KindOf(err))
	}
}

func TestForecastsByUser(t *testing.T) {
	db := newTestDB(t)
	user, plan := seedUserAndPlan(t, db)
	otherUser, otherPlan := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	ctx := context.Background()
	for _, assets := range []float64{0, 50000, 100000} {
		if _, err := svc.CreateForecast(ctx, user.ID, plan.ID, assets); err != nil {
			t.Fatalf("CreateForecast() error: %v", err)
		}
	}
	if _, err := svc.CreateForecast(ctx, otherUser.ID, otherPlan.ID, 0); err != nil {
		t.Fatalf("CreateForecast() error: %v", err)
	}

	forecasts, err := svc.ForecastsByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ForecastsByUser() error: %v", err)
	}
	if len(forecasts) != 3 {
		t.Fatalf("len(forecasts) = %d, want 3 (other users excluded)", len(forecasts))
	}
	for _, fc := range forecasts {
		if fc.UserID != user.ID {
			t.Errorf("forecast %s belongs to %s, want %s", fc.ID, fc.UserID, user.ID)
		}
	}
}

func TestRetirementResult_DoesNotPersist(t *testing.T) {
	db := newTestDB(t)
	user, plan := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	result, err := svc.RetirementResult(context.Background(), user.ID, plan.ID, 500000)
	if err != nil {
		t.Fatalf("RetirementResult() error: %v", err)
	}

	// 500k of the 1M target, 100k/year savings, zero real return
	if !result.Achievable || result.YearsToRetirement != 5 {
		t.Errorf("got achievable=%v years=%d, want achievable in 5 years", result.Achievable, result.YearsToRetirement)
	}
	if result.RetirementAge != 35 {
		t.Errorf("RetirementAge = %d, want 35", result.RetirementAge)
	}
	if result.RetirementYear == 0 {
		t.Error("expected RetirementYear to be set for achievable plan")
	}

	var count int64
	db.Model(&models.Forecast{}).Count(&count)
	if count != 0 {
		t.Errorf("forecast rows = %d, want 0 (calculation must not persist)", count)
	}
}

func TestCreateForecast_InvalidAssets(t *testing.T) {
	db := newTestDB(t)
	user, plan := seedUserAndPlan(t, db)
	svc := NewService(db, zerolog.Nop())

	_, err := svc.CreateForecast(context.Background(), user.ID, plan.ID, -1)
	if apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Errorf("error kind = %v, want KindInvalidInput", apperr.KindOf(err))
	}
}
