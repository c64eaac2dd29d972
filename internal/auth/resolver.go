package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
)

const (
	// SessionCookieName is the cookie carrying the opaque session token
	SessionCookieName = "fl_session"

	bearerPrefix = "Bearer "
)

// ErrNoSession signals that the request carries no usable credentials.
// It is an expected outcome, not a failure: storage or provider errors
// are returned as distinct errors.
var ErrNoSession = errors.New("no session")

// Resolver extracts an authenticated identity from an inbound request.
// It reads the Authorization header and the session cookie only and has
// no side effects.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*SessionData, error)
}

// DBResolver resolves sessions against the local database: bearer JWTs
// first, then cookie-backed session rows.
type DBResolver struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewDBResolver creates a database-backed session resolver
func NewDBResolver(db *gorm.DB, logger zerolog.Logger) *DBResolver {
	return &DBResolver{
		db:     db,
		logger: logger.With().Str("component", "session_resolver").Logger(),
	}
}

// Resolve returns the session for the request, ErrNoSession when the
// request is unauthenticated, or a wrapped error on storage failure.
func (r *DBResolver) Resolve(ctx context.Context, req *http.Request) (*SessionData, error) {
	if token, ok := bearerToken(req.Header.Get("Authorization")); ok {
		return r.resolveJWT(ctx, token)
	}

	cookie, err := req.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return r.resolveCookie(ctx, cookie.Value)
}

func (r *DBResolver) resolveJWT(ctx context.Context, token string) (*SessionData, error) {
	claims, err := ValidateToken(token)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Rejected bearer token")
		return nil, ErrNoSession
	}

	// Confirm the user still exists
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load user for token: %w", err)
	}

	return &SessionData{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		IsAdmin:    user.IsAdmin,
		AuthMethod: "jwt",
	}, nil
}

func (r *DBResolver) resolveCookie(ctx context.Context, token string) (*SessionData, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ?", HashToken(token)).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired() || session.User == nil {
		return nil, ErrNoSession
	}

	return &SessionData{
		UserID:     session.User.ID,
		Email:      session.User.Email,
		Name:       session.User.Name,
		IsAdmin:    session.User.IsAdmin,
		AuthMethod: "cookie",
	}, nil
}

// CreateSession mints an opaque session token for the user and persists
// its hash. The plaintext token is returned for the cookie and never
// stored.
func (r *DBResolver) CreateSession(ctx context.Context, userID, ip, userAgent string, ttl time.Duration) (string, *models.Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &models.Session{
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: time.Now().Add(ttl),
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return token, session, nil
}

// DeleteSession removes the session matching the given cookie token.
// Deleting an unknown token is not an error.
func (r *DBResolver) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("token_hash = ?", HashToken(token)).
		Delete(&models.Session{}).Error
}

// HashToken returns the hex SHA-256 digest of an opaque token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	return token, token != ""
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
