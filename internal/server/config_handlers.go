package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
)

// ConfigResponse represents the app configuration response
type ConfigResponse struct {
	ID                  string     `json:"id"`
	SessionTTLHours     int        `json:"session_ttl_hours"`
	RefreshSchedule     string     `json:"refresh_schedule"`
	MaxForecastsPerPlan int        `json:"max_forecasts_per_plan"`
	LastRefreshedAt     *time.Time `json:"last_refreshed_at"`
	NextRefreshAt       *time.Time `json:"next_refresh_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

// UpdateConfigRequest represents the request to update configuration.
// Pointer fields distinguish "absent" from zero values.
type UpdateConfigRequest struct {
	SessionTTLHours     *int    `json:"sessionTtlHours"`
	RefreshSchedule     *string `json:"refreshSchedule"`
	MaxForecastsPerPlan *int    `json:"maxForecastsPerPlan"`
}

func configResponse(appConfig *models.AppConfig) ConfigResponse {
	return ConfigResponse{
		ID:                  appConfig.ID,
		SessionTTLHours:     appConfig.SessionTTLHours,
		RefreshSchedule:     appConfig.RefreshSchedule,
		MaxForecastsPerPlan: appConfig.MaxForecastsPerPlan,
		LastRefreshedAt:     appConfig.LastRefreshedAt,
		NextRefreshAt:       appConfig.NextRefreshAt,
		CreatedAt:           appConfig.CreatedAt,
	}
}

// @Summary Get configuration
// @Description Get the global app configuration (admin only)
// @Tags config
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ConfigResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/config [get]
func (s *Server) getConfig(c *gin.Context) {
	var appConfig models.AppConfig
	if err := s.db.First(&appConfig).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Configuration not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, configResponse(&appConfig))
}

// @Summary Update configuration
// @Description Update the global app configuration (admin only)
// @Tags config
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateConfigRequest true "Config changes"
// @Success 200 {object} ConfigResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/config [patch]
func (s *Server) updateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var appConfig models.AppConfig
	if err := s.db.First(&appConfig).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Configuration not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	updates := map[string]interface{}{}

	if req.SessionTTLHours != nil {
		if *req.SessionTTLHours <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sessionTtlHours must be positive"})
			return
		}
		updates["session_ttl_hours"] = *req.SessionTTLHours
	}

	if req.MaxForecastsPerPlan != nil {
		if *req.MaxForecastsPerPlan <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "maxForecastsPerPlan must be positive"})
			return
		}
		updates["max_forecasts_per_plan"] = *req.MaxForecastsPerPlan
	}

	if req.RefreshSchedule != nil {
		schedule := *req.RefreshSchedule
		if schedule != "" {
			if err := s.validator.Var(schedule, "cron"); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "refreshSchedule must be a valid cron expression"})
				return
			}
		}
		updates["refresh_schedule"] = schedule
		// Force the scheduler to recompute from the new expression
		updates["next_refresh_at"] = nil
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, configResponse(&appConfig))
		return
	}

	if err := s.db.Model(&appConfig).Updates(updates).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update configuration"})
		return
	}

	// Re-read so the response reflects persisted state
	if err := s.db.First(&appConfig).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to reload config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().Str("updated_by", sessionData.UserID).Msg("Configuration updated")

	c.JSON(http.StatusOK, configResponse(&appConfig))
}
