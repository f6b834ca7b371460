package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// IdentifierFunc extracts the identifier used to scope rate limits.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window limits backed by a shared attempt log,
// so the limit holds across instances.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules. A store
// failure fails open; availability of the login path wins over strictness.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	filtered := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		ctx := c.Request.Context()

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok {
				continue
			}
			key := rule.Name + ":" + identifier

			if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
				rl.logger.Warn("rate limit trim failed", zap.String("rule", rule.Name), zap.Error(err))
				continue
			}
			count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
			if err != nil {
				rl.logger.Warn("rate limit count failed", zap.String("rule", rule.Name), zap.Error(err))
				continue
			}

			if count >= rule.Limit {
				retryAfter := rule.Window
				if oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err == nil && found {
					retryAfter = oldest.Add(rule.Window).Sub(now)
				}
				if retryAfter < 0 {
					retryAfter = 0
				}
				seconds := int(math.Ceil(retryAfter.Seconds()))

				c.Header("Retry-After", strconv.Itoa(seconds))
				c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
				c.Header("X-RateLimit-Remaining", "0")
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":       "too many requests",
					"retry_after": seconds,
				})
				return
			}

			if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
				rl.logger.Warn("rate limit record failed", zap.String("rule", rule.Name), zap.Error(err))
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(rule.Limit-count-1))
		}

		c.Next()
	}
}
