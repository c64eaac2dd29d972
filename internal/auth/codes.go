package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fire-life/firelife/internal/models"
)

// DefaultLoginCodeTTL bounds how long a login code can be exchanged
const DefaultLoginCodeTTL = 10 * time.Minute

var (
	ErrCodeInvalid  = errors.New("login code invalid")
	ErrCodeExpired  = errors.New("login code expired")
	ErrCodeConsumed = errors.New("login code already consumed")
)

// IssueLoginCode mints a one-time login code for the user. The
// plaintext code is returned for the redirect URL and never stored.
func (r *DBResolver) IssueLoginCode(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultLoginCodeTTL
	}

	code, err := randomToken(24)
	if err != nil {
		return "", fmt.Errorf("failed to generate login code: %w", err)
	}

	record := &models.LoginCode{
		UserID:    userID,
		CodeHash:  HashToken(code),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("failed to persist login code: %w", err)
	}

	return code, nil
}

// ExchangeLoginCode consumes a one-time code and returns the owning
// user. Each code can be exchanged at most once.
func (r *DBResolver) ExchangeLoginCode(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, ErrCodeInvalid
	}

	var record models.LoginCode
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("code_hash = ?", HashToken(code)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, fmt.Errorf("failed to load login code: %w", err)
	}

	if record.ConsumedAt != nil {
		return nil, ErrCodeConsumed
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	if record.User == nil {
		return nil, ErrCodeInvalid
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).
		Model(&record).
		Update("consumed_at", &now).Error; err != nil {
		return nil, fmt.Errorf("failed to consume login code: %w", err)
	}

	return record.User, nil
}
