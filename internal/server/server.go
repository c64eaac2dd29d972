// Package server
//
// @title FireLife API
// @version 1.0
// @description FIRE planning and retirement forecast API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fire-life/firelife/internal/auth"
	"github.com/fire-life/firelife/internal/config"
	"github.com/fire-life/firelife/internal/forecast"
	"github.com/fire-life/firelife/internal/models"
	"github.com/fire-life/firelife/internal/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	router          *gin.Engine
	db              *gorm.DB
	config          *config.Config
	logger          zerolog.Logger
	validator       *validator.Validate
	asynqClient     *asynq.Client
	resolver        *auth.DBResolver
	forecastService *forecast.Service
	limiter         *ratelimit.Limiter
	assumptions     []forecast.AssumptionPreset
	version         string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Ensure the singleton app config exists and JWT is initialized.
	// The secret is auto-generated on first start and persisted.
	if err := ensureAppConfig(db, zlog); err != nil {
		return nil, err
	}

	// Initialize validator
	validate := validator.New()

	// Register custom validators
	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		_, err := parser.Parse(fl.Field().String())
		return err == nil
	})

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// Initialize session resolver
	resolver := auth.NewDBResolver(db, zlog)

	// Initialize forecast service
	forecastService := forecast.NewService(db, zlog)

	// Load market assumption presets
	assumptions, err := forecast.LoadAssumptions()
	if err != nil {
		return nil, err
	}

	// Initialize Redis-backed rate limiter for auth endpoints
	limiter, err := ratelimit.New(cfg.Redis.Address, zlog)
	if err != nil {
		zlog.Warn().Err(err).Msg("Failed to connect rate limiter - auth rate limiting will be disabled")
		limiter = nil
	}

	// Create server
	server := &Server{
		db:              db,
		config:          cfg,
		logger:          zlog,
		validator:       validate,
		asynqClient:     asynqClient,
		resolver:        resolver,
		forecastService: forecastService,
		limiter:         limiter,
		assumptions:     assumptions,
		version:         version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8         // Reduced for SQLite efficiency
		maxIdleConns      = 4         // Reduced proportionally
		connMaxLifetime   = 300       // 5 minutes
		busyTimeout       = 5000      // 5 seconds
		cacheSize         = 10000     // 10MB
		mmapSize          = 134217728 // 128MB
		walAutocheckpoint = 1000      // WAL auto-checkpoint pages
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work with all drivers)
	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",                                      // Enable WAL mode for better concurrency
		"PRAGMA synchronous=NORMAL",                                    // Faster than FULL, still safe with WAL
		fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint), // Auto-checkpoint WAL file
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
		fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize),
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// ensureAppConfig creates the singleton AppConfig on first start and
// initializes JWT signing from its persisted secret
func ensureAppConfig(db *gorm.DB, zlog zerolog.Logger) error {
	var appConfig models.AppConfig
	err := db.First(&appConfig).Error
	if err == nil {
		auth.InitializeJWT(appConfig.JWTSecret)
		zlog.Debug().Msg("Loaded JWT secret from database")
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("failed to load app config: %w", err)
	}

	// First start: generate JWT secret (64 hex characters = 32 bytes of randomness)
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	appConfig = models.AppConfig{
		JWTSecret:           secret,
		SessionTTLHours:     168, // one week
		MaxForecastsPerPlan: 30,
	}
	if err := db.Create(&appConfig).Error; err != nil {
		return fmt.Errorf("failed to create app config: %w", err)
	}

	auth.InitializeJWT(secret)
	zlog.Info().Msg("Generated JWT secret on first start")
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.config.HTTP.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/auth/signup", s.rateLimitMiddleware("signup", 10, time.Hour), s.signup)
	s.router.POST("/api/auth/login", s.rateLimitMiddleware("login", 20, 15*time.Minute), s.login)
	s.router.GET("/api/auth/session", s.sessionCheck)

	// Redirect-style auth endpoints (never surface an error body)
	s.router.GET("/auth/callback", s.rateLimitMiddleware("callback", 30, 15*time.Minute), s.authCallback)
	s.router.GET("/auth/logout", s.logout)

	// Market assumption presets (public, static)
	s.router.GET("/api/assumptions", s.listAssumptions)

	// Authenticated API routes (session required)
	api := s.router.Group("/api")
	api.Use(SessionAuthMiddleware(s.resolver, s.logger))
	{
		// Auth endpoints
		api.GET("/auth/me", s.getCurrentUser)
		api.POST("/auth/code", s.issueLoginCode)

		// Plans
		api.GET("/plans", s.listPlans)
		api.POST("/plans", s.createPlan)
		api.GET("/plans/:id", s.getPlan)
		api.PUT("/plans/:id", s.updatePlan)
		api.DELETE("/plans/:id", s.deletePlan)

		// Forecasts
		api.POST("/forecasts", s.createForecast)
		api.GET("/forecasts", s.listForecasts)
		api.POST("/retirement/calculate", s.calculateRetirement)

		// User management (admin only)
		userRoutes := api.Group("/users")
		userRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			userRoutes.GET("", s.listUsers)
			userRoutes.POST("", s.createUser)
			userRoutes.DELETE("/:id", s.deleteUser)
		}

		// App configuration (admin only)
		configRoutes := api.Group("/config")
		configRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			configRoutes.GET("", s.getConfig)
			configRoutes.PATCH("", s.updateConfig)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// rateLimitMiddleware limits requests per client IP for a route. A nil
// limiter (Redis unavailable) disables limiting.
func (s *Server) rateLimitMiddleware(route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", route, c.ClientIP())
		if !s.limiter.Allow(key, limit, window) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "firelife-api",
		"version":   s.version,
	})
}

// @Summary List assumption presets
// @Description List the built-in market assumption presets
// @Tags plans
// @Produce json
// @Success 200 {array} forecast.AssumptionPreset
// @Router /api/assumptions [get]
func (s *Server) listAssumptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.assumptions)
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":" + s.config.HTTP.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second, // 5 minutes
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	// Close rate limiter connection
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing rate limiter")
		}
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	return nil
}
