package workers

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/forecast"
	"github.com/fire-life/firelife/internal/models"
	"github.com/fire-life/firelife/internal/tasks"
)

// HandleForecastRefresh recomputes the forecast for a plan using the
// asset value from its most recent snapshot. Plans without a snapshot
// have nothing to refresh and are skipped.
func HandleForecastRefresh(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseForecastPayload(t)
	if err != nil {
		return err
	}

	log := logger.With().Str("plan_id", payload.PlanID).Logger()

	var plan models.Plan
	if err := models.FindByID(db.WithContext(ctx), payload.PlanID, &plan); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Plan deleted since the task was enqueued
			log.Warn().Msg("Plan no longer exists - skipping refresh")
			return nil
		}
		return err
	}

	var latest models.Forecast
	err = db.WithContext(ctx).
		Where("plan_id = ?", plan.ID).
		Order("created_at DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().Msg("No forecast snapshot yet - skipping refresh")
			return nil
		}
		return err
	}

	svc := forecast.NewService(db, logger)
	fc, err := svc.CreateForecast(ctx, plan.UserID, plan.ID, latest.CurrentAssets)
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh forecast")
		return err
	}

	log.Info().
		Str("forecast_id", fc.ID).
		Bool("achievable", fc.Achievable).
		Msg("Forecast refreshed")
	return nil
}
