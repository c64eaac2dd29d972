package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fire-life/firelife/internal/config"
)

// newTestServer builds a full server against a unique in-memory
// database. Redis is pointed at an unreachable address: the asynq
// client connects lazily and the rate limiter degrades to disabled.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Port:       "0",
			CORSOrigin: "http://localhost:5173",
		},
		Database: config.DatabaseConfig{
			URL: fmt.Sprintf("file:%s?mode=memory&cache=shared", ulid.Make().String()),
		},
		Redis: config.RedisConfig{
			Address: "127.0.0.1:1",
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "json",
		},
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return srv
}

func doJSON(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	msg, _ := resp["error"].(string)
	return msg
}

// signupUser registers a user and returns the bearer token
func signupUser(t *testing.T, srv *Server, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","name":"Test User"}`, email)
	w := doJSON(srv, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// createTestPlan creates a plan for the token's user and returns its ID
func createTestPlan(t *testing.T, srv *Server, token string) string {
	t.Helper()
	body := `{
		"name": "base plan",
		"currentAge": 30,
		"annualExpenses": 40000,
		"annualSavings": 100000,
		"expectedReturn": 0,
		"inflationRate": 0,
		"withdrawalRate": 0.04
	}`
	w := doJSON(srv, http.MethodPost, "/api/plans", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var plan map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	id, _ := plan["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "firelife-api")
}

func TestSignup_FirstUserIsAdmin(t *testing.T) {
	srv := newTestServer(t)

	body := `{"email":"admin@example.com","password":"password123","name":"Admin"}`
	w := doJSON(srv, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.User.IsAdmin)

	// Second user is a regular account
	body = `{"email":"user@example.com","password":"password123","name":"User"}`
	w = doJSON(srv, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.User.IsAdmin)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	signupUser(t, srv, "dup@example.com")

	body := `{"email":"dup@example.com","password":"password123","name":"Again"}`
	w := doJSON(srv, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	signupUser(t, srv, "login@example.com")

	w := doJSON(srv, http.MethodPost, "/api/auth/login", "", `{"email":"login@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Result().Cookies(), "login must set a session cookie")

	w = doJSON(srv, http.MethodPost, "/api/auth/login", "", `{"email":"login@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	srv := newTestServer(t)

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/auth/me", ""},
		{http.MethodGet, "/api/plans", ""},
		{http.MethodPost, "/api/forecasts", `{"planId":"p1","currentAssets":1000}`},
		{http.MethodGet, "/api/forecasts", ""},
		{http.MethodPost, "/api/retirement/calculate", `{"planId":"p1","currentAssets":1000}`},
	}

	for _, r := range requests {
		w := doJSON(srv, r.method, r.path, "", r.body)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)
		require.Equal(t, "未授权", errorBody(t, w), "%s %s", r.method, r.path)
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	srv := newTestServer(t)
	admin := signupUser(t, srv, "admin@example.com")
	regular := signupUser(t, srv, "regular@example.com")

	w := doJSON(srv, http.MethodGet, "/api/users", admin, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(srv, http.MethodGet, "/api/users", regular, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(srv, http.MethodGet, "/api/config", regular, "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlanCRUD(t *testing.T) {
	srv := newTestServer(t)
	token := signupUser(t, srv, "plans@example.com")

	planID := createTestPlan(t, srv, token)

	w := doJSON(srv, http.MethodGet, "/api/plans/"+planID, token, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Invalid body: withdrawalRate is required
	w = doJSON(srv, http.MethodPost, "/api/plans", token, `{"name":"bad","currentAge":30,"annualExpenses":1000}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Update
	update := `{
		"name": "updated plan",
		"currentAge": 31,
		"annualExpenses": 45000,
		"annualSavings": 90000,
		"expectedReturn": 0.07,
		"inflationRate": 0.02,
		"withdrawalRate": 0.04
	}`
	w = doJSON(srv, http.MethodPut, "/api/plans/"+planID, token, update)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "updated plan")

	// A different user cannot see the plan
	other := signupUser(t, srv, "other@example.com")
	w = doJSON(srv, http.MethodGet, "/api/plans/"+planID, other, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// Delete
	w = doJSON(srv, http.MethodDelete, "/api/plans/"+planID, token, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(srv, http.MethodGet, "/api/plans/"+planID, token, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAssumptions(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(srv, http.MethodGet, "/api/assumptions", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var presets []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presets))
	require.NotEmpty(t, presets)
}
