package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/fire-life/firelife/internal/forecast"
	"github.com/fire-life/firelife/internal/tasks"
)

// bindForecastRequest decodes and validates the shared forecast body.
// The body is decoded once into an untyped map, then validated
// fail-fast (planId first, then currentAssets) so the response names
// the first offending field.
func (s *Server) bindForecastRequest(c *gin.Context) (*forecast.Request, bool) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return nil, false
	}

	req, err := forecast.DecodeRequest(raw)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return req, true
}

// @Summary Create forecast
// @Description Run a projection for a plan with the given current assets and persist the snapshot
// @Tags forecasts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body forecast.Request true "Forecast request"
// @Success 200 {object} models.Forecast
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/forecasts [post]
func (s *Server) createForecast(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
		return
	}

	req, ok := s.bindForecastRequest(c)
	if !ok {
		return
	}

	fc, err := s.forecastService.CreateForecast(c.Request.Context(), sessionData.UserID, req.PlanID, req.CurrentAssets)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// Trim the per-plan snapshot history in the background. Best
	// effort: a down broker must not fail the request.
	if task, err := tasks.NewForecastPruneTask(); err == nil {
		if _, err := s.asynqClient.Enqueue(task, asynq.Queue("low")); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to enqueue forecast prune")
		}
	}

	c.JSON(http.StatusOK, fc)
}

// @Summary List forecasts
// @Description List the caller's forecast snapshots, newest first
// @Tags forecasts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Forecast
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/forecasts [get]
func (s *Server) listForecasts(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
		return
	}

	forecasts, err := s.forecastService.ForecastsByUser(c.Request.Context(), sessionData.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, forecasts)
}

// @Summary Calculate retirement
// @Description Run a projection for a plan without persisting and return the retirement summary
// @Tags forecasts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body forecast.Request true "Retirement calculation request"
// @Success 200 {object} forecast.RetirementResult
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/retirement/calculate [post]
func (s *Server) calculateRetirement(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
		return
	}

	req, ok := s.bindForecastRequest(c)
	if !ok {
		return
	}

	result, err := s.forecastService.RetirementResult(c.Request.Context(), sessionData.UserID, req.PlanID, req.CurrentAssets)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
