// Package http implements the REST API of the placement portal.
// Every write goes through the application command handlers; this layer only
// binds requests, checks admin keys and maps domain errors to status codes.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placement-hub/placement-portal/internal/application/command"
	"github.com/placement-hub/placement-portal/internal/application/query"
	"github.com/placement-hub/placement-portal/internal/infrastructure/metrics"
	"github.com/placement-hub/placement-portal/internal/interface/http/handlers"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS. Empty disables CORS.
	AllowedOrigins []string

	// EnableMetrics - serve /metrics and record request metrics.
	EnableMetrics bool

	// RateLimitPerMinute - requests per minute per client IP (0 = disabled).
	RateLimitPerMinute int

	// APIKeyHeader - header carrying the admin key.
	APIKeyHeader string

	// AdminKeyHashes - bcrypt hashes of accepted admin keys.
	// Empty leaves admin routes open.
	AdminKeyHashes []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		EnableMetrics:      true,
		RateLimitPerMinute: 120,
		APIKeyHeader:       "X-API-Key",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (write side)
	CreateApplication *command.CreateApplicationHandler
	ScheduleInterview *command.ScheduleInterviewHandler
	ChangeStatus      *command.ChangeApplicationStatusHandler
	Withdraw          *command.WithdrawApplicationHandler
	Delete            *command.DeleteHandler
	RecordResult      *command.RecordInterviewResultHandler
	Catalog           *command.CatalogHandler

	// Query Handlers (read side)
	Opportunities *query.OpportunityHandler
	History       *query.HistoryHandler

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *gin.Engine
	logger     *logger.Logger

	// Middleware state
	rateLimiter *rateLimiter
	adminKeys   *adminKeys

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}

	s := &Server{
		config:    config,
		deps:      deps,
		router:    gin.New(),
		logger:    deps.Logger,
		adminKeys: newAdminKeys(config.AdminKeyHashes),
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupMiddleware installs the global middleware in execution order.
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(securityHeadersMiddleware())

	if s.config.EnableMetrics {
		s.router.Use(metrics.GinMiddleware())
	}
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(corsMiddleware(s.config.AllowedOrigins, s.config.APIKeyHeader))
	}
	if s.rateLimiter != nil {
		s.router.Use(s.rateLimitMiddleware())
	}

	s.router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found", "route not found")
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Metrics
	// ─────────────────────────────────────────────────────────────────────────
	s.router.GET("/health", s.handleHealth)
	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	admin := s.adminMiddleware()

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog (admin)
	// ─────────────────────────────────────────────────────────────────────────
	v1.POST("/offices", admin, s.handleRegisterOffice)
	v1.POST("/students", admin, s.handleRegisterStudent)
	v1.DELETE("/students/:id", admin, s.handleDelete(command.DeleteStudent))
	v1.POST("/opportunities", admin, s.handlePostOpportunity)
	v1.DELETE("/opportunities/:id", admin, s.handleDelete(command.DeleteOpportunity))

	// ─────────────────────────────────────────────────────────────────────────
	// Application Lifecycle
	// ─────────────────────────────────────────────────────────────────────────
	v1.POST("/applications", s.handleCreateApplication)
	v1.POST("/applications/:id/withdraw", s.handleWithdrawApplication)
	v1.PATCH("/applications/:id/status", admin, s.handleChangeStatus)
	v1.DELETE("/applications/:id", admin, s.handleDelete(command.DeleteApplication))
	v1.POST("/interviews", s.handleScheduleInterview)
	v1.PATCH("/interviews/:id/result", admin, s.handleRecordInterviewResult)

	// ─────────────────────────────────────────────────────────────────────────
	// Read Side
	// ─────────────────────────────────────────────────────────────────────────
	v1.GET("/opportunities/:id", s.handleGetOpportunity)
	v1.GET("/opportunities/:id/stats", s.handleGetOpportunityStats)
	v1.GET("/applications/:id/audit", s.handleGetAuditTrail)
	v1.GET("/students/:id/applications", s.handleListStudentApplications)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
