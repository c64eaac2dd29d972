package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fire-life/firelife/internal/auth"
)

const (
	defaultCallbackNext   = "/dashboard"
	defaultLogoutRedirect = "/login"
)

// SessionCheckResponse is the body of the public session probe. It is
// always returned with HTTP 200.
type SessionCheckResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *UserDetail `json:"user,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// safeRedirectTarget restricts redirects to local paths so the
// redirect-style endpoints cannot be used as an open redirector
func safeRedirectTarget(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	return target
}

// @Summary Session check
// @Description Report whether the request carries a valid session. Always responds 200.
// @Tags auth
// @Produce json
// @Success 200 {object} SessionCheckResponse
// @Router /api/auth/session [get]
func (s *Server) sessionCheck(c *gin.Context) {
	sessionData, err := s.resolver.Resolve(c.Request.Context(), c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			c.JSON(http.StatusOK, SessionCheckResponse{Authenticated: false})
			return
		}
		// Provider failure still answers 200 so callers can render a
		// logged-out state instead of an error page
		s.logger.Error().Err(err).Msg("Session check failed")
		c.JSON(http.StatusOK, SessionCheckResponse{
			Authenticated: false,
			Error:         err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SessionCheckResponse{
		Authenticated: true,
		User: &UserDetail{
			ID:      sessionData.UserID,
			Email:   sessionData.Email,
			Name:    sessionData.Name,
			IsAdmin: sessionData.IsAdmin,
		},
	})
}

// @Summary Auth callback
// @Description Exchange a one-time login code for a session cookie, then redirect.
// @Description Always redirects to `next` (default /dashboard), even when the exchange fails.
// @Tags auth
// @Param code query string false "One-time login code"
// @Param next query string false "Redirect target after exchange"
// @Success 302
// @Router /auth/callback [get]
func (s *Server) authCallback(c *gin.Context) {
	next := safeRedirectTarget(c.Query("next"), defaultCallbackNext)

	code := c.Query("code")
	if code == "" {
		// No code: nothing to exchange, degrade to the redirect
		c.Redirect(http.StatusFound, next)
		return
	}

	user, err := s.resolver.ExchangeLoginCode(c.Request.Context(), code)
	if err != nil {
		// Best-effort: a failed exchange still lands the user on the
		// target page, where the frontend shows the logged-out state
		s.logger.Warn().Err(err).Msg("Login code exchange failed")
		c.Redirect(http.StatusFound, next)
		return
	}

	if err := s.startSession(c, user); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create session from login code")
		c.Redirect(http.StatusFound, next)
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Login code exchanged for session")
	c.Redirect(http.StatusFound, next)
}

// @Summary Logout
// @Description Delete the current session (best effort) and redirect.
// @Tags auth
// @Param redirectTo query string false "Redirect target after logout"
// @Success 302
// @Router /auth/logout [get]
func (s *Server) logout(c *gin.Context) {
	redirectTo := safeRedirectTarget(c.Query("redirectTo"), defaultLogoutRedirect)

	// Best-effort sign-out: a storage failure must not trap the user in
	// a logged-in state they asked to leave
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		if err := s.resolver.DeleteSession(c.Request.Context(), cookie); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to delete session on logout")
		}
	}

	s.clearSessionCookie(c)
	c.Redirect(http.StatusFound, redirectTo)
}
