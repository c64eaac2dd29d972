package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fire-life/firelife/internal/models"
)

func TestCreateForecast_Validation(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "validation@example.com")

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantInBody string
	}{
		{
			name:       "missing planId",
			body:       `{"currentAssets":50000}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "planId",
		},
		{
			name:       "missing currentAssets",
			body:       `{"planId":"p1"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "currentAssets",
		},
		{
			name:       "currentAssets as string",
			body:       `{"planId":"p1","currentAssets":"1000"}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "currentAssets must be a number",
		},
		{
			name:       "malformed JSON",
			body:       `{"planId":`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "Invalid JSON body",
		},
		{
			name:       "both missing reports planId first",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "planId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(srv, http.MethodPost, "/api/forecasts", token, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			require.Contains(t, errorBody(t, w), tt.wantInBody)
		})
	}
}

func TestCreateForecast(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "forecast@example.com")
	planID := createTestPlan(t, srv, token)

	w := doJSON(srv, http.MethodPost, "/api/forecasts",
		token, `{"planId":"`+planID+`","currentAssets":50000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var fc models.Forecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	require.Equal(t, planID, fc.PlanID)
	require.Equal(t, float64(50000), fc.CurrentAssets)
	require.Equal(t, float64(1000000), fc.TargetAssets)
	require.True(t, fc.Achievable)

	// The run was persisted exactly once
	var count int64
	srv.db.Model(&models.Forecast{}).Where("plan_id = ?", planID).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestCreateForecast_UnknownPlan(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "unknown-plan@example.com")

	w := doJSON(srv, http.MethodPost, "/api/forecasts",
		token, `{"planId":"does-not-exist","currentAssets":50000}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateForecast_ForeignPlan(t *testing.T) {
	srv := newTestServer(t)
	owner := signupUser(t, srv, "owner@example.com")
	planID := createTestPlan(t, srv, owner)

	intruder := signupUser(t, srv, "intruder@example.com")
	w := doJSON(srv, http.MethodPost, "/api/forecasts",
		intruder, `{"planId":"`+planID+`","currentAssets":50000}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListForecasts(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "list@example.com")
	planID := createTestPlan(t, srv, token)

	w := doJSON(srv, http.MethodGet, "/api/forecasts", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())

	for _, body := range []string{
		`{"planId":"` + planID + `","currentAssets":0}`,
		`{"planId":"` + planID + `","currentAssets":250000}`,
	} {
		w := doJSON(srv, http.MethodPost, "/api/forecasts", token, body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(srv, http.MethodGet, "/api/forecasts", token, "")
	require.Equal(t, http.StatusOK, w.Code)

	var forecasts []models.Forecast
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &forecasts))
	require.Len(t, forecasts, 2)

	// Another user sees none of them
	other := signupUser(t, srv, "list-other@example.com")
	w = doJSON(srv, http.MethodGet, "/api/forecasts", other, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestCalculateRetirement(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "retire@example.com")
	planID := createTestPlan(t, srv, token)

	w := doJSON(srv, http.MethodPost, "/api/retirement/calculate",
		token, `{"planId":"`+planID+`","currentAssets":500000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, planID, result["plan_id"])
	require.Equal(t, true, result["achievable"])
	require.EqualValues(t, 5, result["years_to_retirement"])
	require.EqualValues(t, 35, result["retirement_age"])

	// Calculation never persists a snapshot
	var count int64
	srv.db.Model(&models.Forecast{}).Count(&count)
	require.EqualValues(t, 0, count)
}
