package workers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fire-life/firelife/internal/models"
	"github.com/fire-life/firelife/internal/tasks"
)

func TestHandleForecastRefresh(t *testing.T) {
	db := newTestDB(t)
	user, plan := seedUserAndPlan(t, db)

	seed := &models.Forecast{
		UserID:        user.ID,
		PlanID:        plan.ID,
		CurrentAssets: 500000,
		TargetAssets:  1000000,
	}
	if err := db.Create(seed).Error; err != nil {
		t.Fatalf("failed to seed forecast: %v", err)
	}

	task, err := tasks.NewForecastRefreshTask(plan.ID)
	if err != nil {
		t.Fatalf("NewForecastRefreshTask() error: %v", err)
	}
	if err := HandleForecastRefresh(context.Background(), task, db, zerolog.Nop()); err != nil {
		t.Fatalf("HandleForecastRefresh() error: %v", err)
	}

	var forecasts []models.Forecast
	db.Where("plan_id = ?", plan.ID).Order("created_at ASC").Find(&forecasts)
	if len(forecasts) != 2 {
		t.Fatalf("got %d forecasts, want the seed plus one refresh", len(forecasts))
	}

	refreshed := forecasts[1]
	if refreshed.ID == seed.ID {
		refreshed = forecasts[0]
	}
	if refreshed.CurrentAssets != 500000 {
		t.Errorf("refresh reused CurrentAssets = %v, want 500000", refreshed.CurrentAssets)
	}
	if !refreshed.Achievable || refreshed.YearsToRetirement != 5 {
		t.Errorf("got achievable=%v years=%d, want achievable in 5 years", refreshed.Achievable, refreshed.YearsToRetirement)
	}
}

func TestHandleForecastRefresh_PlanDeleted(t *testing.T) {
	db := newTestDB(t)

	task, _ := tasks.NewForecastRefreshTask("no-such-plan")
	if err := HandleForecastRefresh(context.Background(), task, db, zerolog.Nop()); err != nil {
		t.Fatalf("refresh for a deleted plan should no-op, got: %v", err)
	}
}

func TestHandleForecastRefresh_NoSnapshot(t *testing.T) {
	db := newTestDB(t)
	_, plan := seedUserAndPlan(t, db)

	task, _ := tasks.NewForecastRefreshTask(plan.ID)
	if err := HandleForecastRefresh(context.Background(), task, db, zerolog.Nop()); err != nil {
		t.Fatalf("refresh without a snapshot should no-op, got: %v", err)
	}

	var count int64
	db.Model(&models.Forecast{}).Count(&count)
	if count != 0 {
		t.Errorf("got %d forecasts, want none", count)
	}
}
