package workers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
)

// HandleSessionPurge deletes expired sessions and spent login codes
func HandleSessionPurge(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	now := time.Now()

	sessions := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.Session{})
	if sessions.Error != nil {
		logger.Error().Err(sessions.Error).Msg("Failed to purge sessions")
		return sessions.Error
	}

	codes := db.WithContext(ctx).
		Where("expires_at < ? OR consumed_at IS NOT NULL", now).
		Delete(&models.LoginCode{})
	if codes.Error != nil {
		logger.Error().Err(codes.Error).Msg("Failed to purge login codes")
		return codes.Error
	}

	if sessions.RowsAffected > 0 || codes.RowsAffected > 0 {
		logger.Info().
			Int64("sessions", sessions.RowsAffected).
			Int64("login_codes", codes.RowsAffected).
			Msg("Purged expired auth records")
	}
	return nil
}

// HandleForecastPrune keeps the newest max_forecasts_per_plan snapshots
// per plan and deletes the rest
func HandleForecastPrune(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	var config models.AppConfig
	if err := db.WithContext(ctx).First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No config found - skipping prune")
			return nil
		}
		return err
	}

	cap := config.MaxForecastsPerPlan
	if cap <= 0 {
		return nil
	}

	var planIDs []string
	if err := db.WithContext(ctx).Model(&models.Forecast{}).
		Distinct("plan_id").
		Pluck("plan_id", &planIDs).Error; err != nil {
		return err
	}

	var pruned int64
	for _, planID := range planIDs {
		var keep []string
		if err := db.WithContext(ctx).Model(&models.Forecast{}).
			Where("plan_id = ?", planID).
			Order("created_at DESC").
			Limit(cap).
			Pluck("id", &keep).Error; err != nil {
			logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to select snapshots to keep")
			continue
		}

		res := db.WithContext(ctx).
			Where("plan_id = ? AND id NOT IN ?", planID, keep).
			Delete(&models.Forecast{})
		if res.Error != nil {
			logger.Error().Err(res.Error).Str("plan_id", planID).Msg("Failed to prune forecasts")
			continue
		}
		pruned += res.RowsAffected
	}

	if pruned > 0 {
		logger.Info().Int64("forecasts", pruned).Int("per_plan_cap", cap).Msg("Pruned forecast history")
	}
	return nil
}
