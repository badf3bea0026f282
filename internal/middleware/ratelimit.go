package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

const maxTrackedClients = 10000

// RateLimiter hands out one token bucket per client IP. Buckets for clients
// idle longer than IdleTTL are evicted.
type RateLimiter struct {
	logger   *logrus.Logger
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter from cfg, filling in defaults for unset values.
func NewRateLimiter(cfg domain.RateLimitConfig, logger *logrus.Logger) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		logger:   logger,
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, cfg.IdleTTL),
	}
}

// Allow reports whether client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	limiter, ok := rl.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
	}
	// Re-adding refreshes the idle expiry.
	rl.limiters.Add(client, limiter)
	return limiter.Allow()
}

// retryAfterSeconds is the time for one token to refill, at least one second.
func (rl *RateLimiter) retryAfterSeconds() int {
	seconds := int(math.Ceil(1 / float64(rl.limit)))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if rl.Allow(client) {
			c.Next()
			return
		}

		rl.logger.WithFields(logrus.Fields{
			"client_ip":      client,
			"correlation_id": c.GetString(CorrelationIDKey),
		}).Warn("Rate limit exceeded")

		c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":          domain.ErrRateLimit,
			"message":        "Too many requests",
			"correlation_id": c.GetString(CorrelationIDKey),
		})
	}
}
