package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/apperr"
	"github.com/fire-life/firelife/internal/models"
)

// Service computes and persists forecasts for user plans
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// RetirementResult is the summary returned by the retirement-calculate
// endpoint. It is never persisted.
type RetirementResult struct {
	PlanID            string  `json:"plan_id"`
	CurrentAssets     float64 `json:"current_assets"`
	TargetAssets      float64 `json:"target_assets"`
	Achievable        bool    `json:"achievable"`
	YearsToRetirement int     `json:"years_to_retirement"`
	RetirementAge     int     `json:"retirement_age"`
	RetirementYear    int     `json:"retirement_year,omitempty"`
	FinalAssets       float64 `json:"final_assets"`
}

func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "forecast_service").Logger(),
	}
}

// CreateForecast runs a projection for the user's plan and persists the
// snapshot. The plan must belong to the user.
func (s *Service) CreateForecast(ctx context.Context, userID, planID string, currentAssets float64) (*models.Forecast, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	result, err := Project(planInputs(plan, currentAssets))
	if err != nil {
		return nil, apperr.InvalidInput(err.Error())
	}

	projection, err := json.Marshal(result.Projection)
	if err != nil {
		return nil, apperr.Internal("failed to serialize projection", err)
	}

	fc := &models.Forecast{
		UserID:            userID,
		PlanID:            plan.ID,
		CurrentAssets:     currentAssets,
		TargetAssets:      result.TargetAssets,
		Achievable:        result.Achievable,
		YearsToRetirement: result.YearsToRetirement,
		RetirementAge:     result.RetirementAge,
		FinalAssets:       result.FinalAssets,
		Projection:        string(projection),
	}
	if err := s.db.WithContext(ctx).Create(fc).Error; err != nil {
		return nil, apperr.Internal("failed to save forecast", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("plan_id", plan.ID).
		Str("forecast_id", fc.ID).
		Bool("achievable", fc.Achievable).
		Int("years_to_retirement", fc.YearsToRetirement).
		Msg("Forecast created")

	return fc, nil
}

// ForecastsByUser lists the user's forecast snapshots, newest first
func (s *Service) ForecastsByUser(ctx context.Context, userID string) ([]models.Forecast, error) {
	var forecasts []models.Forecast
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&forecasts).Error
	if err != nil {
		return nil, apperr.Internal("failed to list forecasts", err)
	}
	return forecasts, nil
}

// RetirementResult runs a projection without persisting anything and
// returns the retirement summary.
func (s *Service) RetirementResult(ctx context.Context, userID, planID string, currentAssets float64) (*RetirementResult, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	result, err := Project(planInputs(plan, currentAssets))
	if err != nil {
		return nil, apperr.InvalidInput(err.Error())
	}

	summary := &RetirementResult{
		PlanID:            plan.ID,
		CurrentAssets:     currentAssets,
		TargetAssets:      result.TargetAssets,
		Achievable:        result.Achievable,
		YearsToRetirement: result.YearsToRetirement,
		RetirementAge:     result.RetirementAge,
		FinalAssets:       result.FinalAssets,
	}
	if result.Achievable {
		summary.RetirementYear = time.Now().Year() + result.YearsToRetirement
	}
	return summary, nil
}

func (s *Service) loadPlan(ctx context.Context, userID, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := models.FindOwnedByID(s.db.WithContext(ctx), planID, userID, &plan); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("plan not found")
		}
		return nil, apperr.Internal("failed to load plan", err)
	}
	return &plan, nil
}

func planInputs(plan *models.Plan, currentAssets float64) Inputs {
	return Inputs{
		CurrentAge:     plan.CurrentAge,
		CurrentAssets:  currentAssets,
		AnnualExpenses: plan.AnnualExpenses,
		AnnualSavings:  plan.AnnualSavings,
		ExpectedReturn: plan.ExpectedReturn,
		InflationRate:  plan.InflationRate,
		WithdrawalRate: plan.WithdrawalRate,
	}
}
