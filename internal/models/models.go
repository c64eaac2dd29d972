package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// AppConfig represents the global configuration for the deployment.
// This is a singleton model (only one row should exist)
type AppConfig struct {
	BaseModel
	// Authentication configuration
	JWTSecret       string `json:"-" gorm:"type:varchar(64);not null"` // Auto-generated on first start (64 hex chars)
	SessionTTLHours int    `json:"session_ttl_hours" gorm:"not null;default:168"`

	// Refresh configuration (for scheduled forecast recomputation)
	RefreshSchedule string     `json:"refresh_schedule"`  // Cron expression, e.g. "0 2 * * *" (2am daily), empty = no auto refresh
	LastRefreshedAt *time.Time `json:"last_refreshed_at"` // When was last refresh completed
	NextRefreshAt   *time.Time `json:"next_refresh_at"`   // Calculated from cron schedule

	// History management
	MaxForecastsPerPlan int `json:"max_forecasts_per_plan" gorm:"not null;default:30"` // Forecast snapshots kept per plan, older ones are pruned
}

// User represents a local user account (self-hosted, no external auth)
type User struct {
	BaseModel
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Name         string    `json:"name"`
	IsAdmin      bool      `json:"is_admin" gorm:"not null;default:false"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Session represents a cookie-backed login session. Only a SHA-256 hash
// of the opaque cookie token is stored.
type Session struct {
	BaseModel
	UserID    string    `json:"user_id" gorm:"not null;index"`
	TokenHash string    `json:"-" gorm:"not null;uniqueIndex;type:varchar(64)"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// LoginCode is a short-lived one-time code exchanged for a session via
// the auth callback redirect. Only a SHA-256 hash of the code is stored.
type LoginCode struct {
	BaseModel
	UserID     string     `json:"user_id" gorm:"not null;index"`
	CodeHash   string     `json:"-" gorm:"not null;uniqueIndex;type:varchar(64)"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	ConsumedAt *time.Time `json:"consumed_at"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Usable reports whether the code can still be exchanged.
func (c *LoginCode) Usable() bool {
	return c.ConsumedAt == nil && time.Now().Before(c.ExpiresAt)
}

// Plan represents a retirement plan owned by a user. Rates are stored
// as decimal fractions (0.07 = 7%).
type Plan struct {
	BaseModel
	UserID         string    `json:"user_id" gorm:"not null;index"`
	Name           string    `json:"name" gorm:"not null"`
	CurrentAge     int       `json:"current_age" gorm:"not null"`
	AnnualExpenses float64   `json:"annual_expenses" gorm:"not null"`
	AnnualSavings  float64   `json:"annual_savings" gorm:"not null"`
	ExpectedReturn float64   `json:"expected_return" gorm:"not null"`
	InflationRate  float64   `json:"inflation_rate" gorm:"not null;default:0"`
	WithdrawalRate float64   `json:"withdrawal_rate" gorm:"not null;default:0.04"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User      *User      `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Forecasts []Forecast `json:"forecasts,omitempty" gorm:"foreignKey:PlanID"`
}

// Forecast is a persisted snapshot of a forecast run for a plan.
// Projection holds the yearly rows serialized as JSON.
type Forecast struct {
	BaseModel
	UserID            string  `json:"user_id" gorm:"not null;index"`
	PlanID            string  `json:"plan_id" gorm:"not null;index"`
	CurrentAssets     float64 `json:"current_assets" gorm:"not null"`
	TargetAssets      float64 `json:"target_assets" gorm:"not null"`
	Achievable        bool    `json:"achievable" gorm:"not null"`
	YearsToRetirement int     `json:"years_to_retirement"`
	RetirementAge     int     `json:"retirement_age"`
	FinalAssets       float64 `json:"final_assets"`
	Projection        string  `json:"projection" gorm:"type:text"`

	// Relationships
	Plan *Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &AppConfig{}, &Session{}, &LoginCode{}, &Plan{}, &Forecast{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindOwnedByID finds a record by ID scoped to its owning user.
func FindOwnedByID[T any](db *gorm.DB, id, userID string, model *T) error {
	return db.Where("id = ? AND user_id = ?", id, userID).First(model).Error
}
