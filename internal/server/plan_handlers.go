package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
)

// PlanRequest represents a request to create or replace a plan. Rates
// are decimal fractions (0.07 = 7%).
type PlanRequest struct {
	Name           string  `json:"name" binding:"required"`
	CurrentAge     int     `json:"currentAge" binding:"required,gt=0,lte=100"`
	AnnualExpenses float64 `json:"annualExpenses" binding:"required,gt=0"`
	AnnualSavings  float64 `json:"annualSavings" binding:"gte=0"`
	ExpectedReturn float64 `json:"expectedReturn" binding:"gte=-1,lte=1"`
	InflationRate  float64 `json:"inflationRate" binding:"gte=-1,lte=1"`
	WithdrawalRate float64 `json:"withdrawalRate" binding:"required,gt=0,lte=1"`
}

func (r *PlanRequest) apply(plan *models.Plan) {
	plan.Name = r.Name
	plan.CurrentAge = r.CurrentAge
	plan.AnnualExpenses = r.AnnualExpenses
	plan.AnnualSavings = r.AnnualSavings
	plan.ExpectedReturn = r.ExpectedReturn
	plan.InflationRate = r.InflationRate
	plan.WithdrawalRate = r.WithdrawalRate
}

// @Summary List plans
// @Description List the caller's retirement plans
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Plan
// @Failure 401 {object} map[string]interface{}
// @Router /api/plans [get]
func (s *Server) listPlans(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var plans []models.Plan
	if err := s.db.Where("user_id = ?", sessionData.UserID).Order("created_at DESC").Find(&plans).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list plans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary Create plan
// @Description Create a retirement plan for the caller
// @Tags plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlanRequest true "Plan"
// @Success 201 {object} models.Plan
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/plans [post]
func (s *Server) createPlan(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan := &models.Plan{UserID: sessionData.UserID}
	req.apply(plan)

	if err := s.db.Create(plan).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan"})
		return
	}

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("user_id", sessionData.UserID).
		Str("name", plan.Name).
		Msg("Plan created")

	c.JSON(http.StatusCreated, plan)
}

// @Summary Get plan
// @Description Get one of the caller's plans by ID
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 200 {object} models.Plan
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/plans/{id} [get]
func (s *Server) getPlan(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	planID := c.Param("id")

	var plan models.Plan
	if err := models.FindOwnedByID(s.db, planID, sessionData.UserID, &plan); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to find plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Update plan
// @Description Replace one of the caller's plans
// @Tags plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Param request body PlanRequest true "Plan"
// @Success 200 {object} models.Plan
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/plans/{id} [put]
func (s *Server) updatePlan(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	planID := c.Param("id")

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var plan models.Plan
	if err := models.FindOwnedByID(s.db, planID, sessionData.UserID, &plan); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to find plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	req.apply(&plan)
	if err := s.db.Save(&plan).Error; err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to update plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Delete plan
// @Description Delete one of the caller's plans and its forecast history
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 204
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/plans/{id} [delete]
func (s *Server) deletePlan(c *gin.Context) {
	sessionData, _ := GetSessionData(c)
	planID := c.Param("id")

	var plan models.Plan
	if err := models.FindOwnedByID(s.db, planID, sessionData.UserID, &plan); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
			return
		}
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to find plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Forecast history goes with the plan
	if err := s.db.Where("plan_id = ?", plan.ID).Delete(&models.Forecast{}).Error; err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to delete plan forecasts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete plan"})
		return
	}
	if err := s.db.Delete(&plan).Error; err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Msg("Failed to delete plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete plan"})
		return
	}

	s.logger.Info().
		Str("plan_id", planID).
		Str("user_id", sessionData.UserID).
		Msg("Plan deleted")

	c.Status(http.StatusNoContent)
}
