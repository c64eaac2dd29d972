package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fire-life/firelife/internal/auth"
)

// unauthorizedMessage is the fixed body returned by every protected
// endpoint when the request carries no valid session
const unauthorizedMessage = "未授权"

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the session stored by the auth middleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func respondUnauthorized(c *gin.Context, log zerolog.Logger, err error) {
	log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected unauthenticated request")
	c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
	c.Abort()
}

// SessionAuthMiddleware resolves the session (bearer JWT or cookie) and
// stores it in the request context. A missing session yields 401; a
// resolver failure is a 500 so auth problems and storage problems stay
// distinguishable.
func SessionAuthMiddleware(resolver auth.Resolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := resolver.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			if errors.Is(err, auth.ErrNoSession) {
				respondUnauthorized(c, log, err)
				return
			}
			log.Error().Err(err).Msg("Session resolution failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		setSession(c, sessionData)
		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondUnauthorized(c, log, errors.New("no session"))
			return
		}

		if !sessionData.IsAdmin {
			log.Warn().Str("user_id", sessionData.UserID).Msg("Non-admin access attempt")
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
