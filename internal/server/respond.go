package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fire-life/firelife/internal/apperr"
)

// genericServiceError is the fallback 500 body when a service failure
// carries no recognized message
const genericServiceError = "Internal server error"

// statusForKind is the single mapping from error kind to HTTP status
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError converts a service error into the JSON error response.
// Recognized errors expose their message; anything else becomes a
// generic 500 so internals never leak.
func (s *Server) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	c.JSON(status, gin.H{"error": apperr.MessageOf(err, genericServiceError)})
}
