package workers

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
	"github.com/fire-life/firelife/internal/tasks"
)

// StartRefreshScheduler runs a periodic check (every minute) for the
// configured forecast refresh schedule
func StartRefreshScheduler(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run immediately on startup, then every minute
	checkAndEnqueueRefreshTasks(client, db, logger)

	for range ticker.C {
		checkAndEnqueueRefreshTasks(client, db, logger)
	}
}

func checkAndEnqueueRefreshTasks(client *asynq.Client, db *gorm.DB, logger zerolog.Logger) {
	// Load the singleton config
	var config models.AppConfig
	err := db.First(&config).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Debug().Msg("No config found - skipping refresh check")
			return
		}
		logger.Error().Err(err).Msg("Failed to query config for refresh")
		return
	}

	// Check if refresh schedule is configured
	if config.RefreshSchedule == "" {
		logger.Debug().Msg("No refresh schedule configured")
		return
	}

	if config.NextRefreshAt != nil && config.NextRefreshAt.After(time.Now()) {
		logger.Debug().
			Time("next_refresh_at", *config.NextRefreshAt).
			Msg("Refresh not due yet")
		return
	}

	// Plans with at least one snapshot can be refreshed: the latest
	// snapshot supplies the asset value to recompute from
	var planIDs []string
	if err := db.Model(&models.Forecast{}).
		Distinct("plan_id").
		Pluck("plan_id", &planIDs).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to list plans with forecasts")
		return
	}

	enqueued := 0
	for _, planID := range planIDs {
		task, err := tasks.NewForecastRefreshTask(planID)
		if err != nil {
			logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to create refresh task")
			continue
		}
		if _, err := client.Enqueue(task, asynq.Queue("default")); err != nil {
			logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to enqueue refresh task")
			continue
		}
		enqueued++
	}

	// Prune after refreshing so new snapshots count against the cap
	if task, err := tasks.NewForecastPruneTask(); err == nil {
		if _, err := client.Enqueue(task, asynq.Queue("low")); err != nil {
			logger.Error().Err(err).Msg("Failed to enqueue prune task")
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_refreshed_at": &now,
		"next_refresh_at":   calculateNextRefreshTime(config.RefreshSchedule, now),
	}
	if err := db.Model(&config).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to update refresh timestamps")
	}

	logger.Info().
		Str("config_id", config.ID).
		Str("refresh_schedule", config.RefreshSchedule).
		Int("plans_enqueued", enqueued).
		Msg("Forecast refresh tasks enqueued")
}

// StartMaintenanceScheduler enqueues session purge tasks on a fixed
// hourly cadence, independent of the user-configured refresh schedule
func StartMaintenanceScheduler(client *asynq.Client, logger zerolog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	enqueueMaintenance(client, logger)

	for range ticker.C {
		enqueueMaintenance(client, logger)
	}
}

func enqueueMaintenance(client *asynq.Client, logger zerolog.Logger) {
	task, err := tasks.NewSessionPurgeTask()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session purge task")
		return
	}
	if _, err := client.Enqueue(task, asynq.Queue("low")); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue session purge task")
	}
}

// calculateNextRefreshTime calculates next refresh time from cron schedule
func calculateNextRefreshTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	// Parse cron expression (standard 5-field format: minute hour day-of-month month day-of-week)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
