package http

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/placement-hub/placement-portal/pkg/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"

	// maxTrackedClients bounds the per-IP limiter map.
	maxTrackedClients = 10000
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// requestIDMiddleware assigns a request ID and attaches a request-scoped
// logger to the request context.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(headerRequestID, requestID)

		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
			logger.String(logger.RequestIDKey, requestIDFrom(c)),
		}

		if status >= http.StatusInternalServerError {
			s.logger.Warn("http request", fields...)
			return
		}
		s.logger.Info("http request", fields...)
	}
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", c.Request.URL.Path),
					logger.String(logger.RequestIDKey, requestIDFrom(c)),
				)
				writeError(c, http.StatusInternalServerError, codeInternal, "an unexpected error occurred")
			}
		}()
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEADERS
// ══════════════════════════════════════════════════════════════════════════════

// corsMiddleware allows the configured browser origins. A "*" entry allows
// any origin.
func corsMiddleware(origins []string, apiKeyHeader string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", apiKeyHeader, headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// securityHeadersMiddleware adds security-related headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITING
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter keeps one token bucket per client key.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether the client identified by key may proceed.
func (rl *rateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// rateLimitMiddleware rejects clients that exceed the per-minute budget.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !s.rateLimiter.Allow(ip) {
			s.logger.Warn("rate limit exceeded",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", strconv.Itoa(60))
			writeError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// adminKeys verifies presented keys against bcrypt hashes. Keys that passed
// once are remembered so bcrypt runs once per key, not once per request.
type adminKeys struct {
	hashes [][]byte

	mu       sync.RWMutex
	verified map[string]struct{}
}

func newAdminKeys(hashes []string) *adminKeys {
	k := &adminKeys{verified: make(map[string]struct{})}
	for _, h := range hashes {
		if h != "" {
			k.hashes = append(k.hashes, []byte(h))
		}
	}
	return k
}

func (k *adminKeys) open() bool {
	return len(k.hashes) == 0
}

func (k *adminKeys) valid(key string) bool {
	k.mu.RLock()
	_, ok := k.verified[key]
	k.mu.RUnlock()
	if ok {
		return true
	}

	for _, h := range k.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			k.mu.Lock()
			k.verified[key] = struct{}{}
			k.mu.Unlock()
			return true
		}
	}
	return false
}

// adminMiddleware guards placement-office routes.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminKeys.open() {
			c.Next()
			return
		}

		key := c.GetHeader(s.config.APIKeyHeader)
		if key == "" {
			writeError(c, http.StatusUnauthorized, "unauthorized", "admin API key required")
			return
		}
		if !s.adminKeys.valid(key) {
			s.logger.Warn("invalid admin key",
				logger.String("ip", c.ClientIP()),
				logger.String("path", c.Request.URL.Path),
			)
			writeError(c, http.StatusForbidden, "forbidden", "invalid admin API key")
			return
		}
		c.Next()
	}
}
