package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// Prefix namespaces the Redis keys
	Prefix string
	// Key generator function
	KeyGenerator func(*fiber.Ctx) string
	// Skip function
	Skip func(*fiber.Ctx) bool
	// Custom limit exceeded handler
	LimitReached fiber.Handler
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:    100,
		Window: time.Minute,
		Prefix: "xray:ratelimit",
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Skip: nil,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Too Many Requests",
				"message": "Rate limit exceeded. Please try again later.",
			})
		},
	}
}

// RunRateLimitConfig limits run submissions, each of which costs model calls
func RunRateLimitConfig(maxPerMinute int) RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Max = maxPerMinute
	cfg.Prefix = "xray:ratelimit:runs"
	cfg.LimitReached = func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "Too Many Requests",
			"message": "Run submission limit exceeded",
		})
	}
	return cfg
}

// RateLimitMiddleware is a sliding window rate limiter backed by Redis
type RateLimitMiddleware struct {
	redis  redis.UniversalClient
	logger *zap.Logger
	config RateLimitConfig
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(redisClient redis.UniversalClient, logger *zap.Logger, config ...RateLimitConfig) *RateLimitMiddleware {
	cfg := DefaultRateLimitConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimitMiddleware{
		redis:  redisClient,
		logger: logger,
		config: cfg,
	}
}

// Handler returns the rate limit handler
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip if skip function returns true
		if m.config.Skip != nil && m.config.Skip(c) {
			return c.Next()
		}

		key := fmt.Sprintf("%s:%s", m.config.Prefix, m.config.KeyGenerator(c))
		now := time.Now()
		windowStart := now.Add(-m.config.Window).UnixMilli()
		reset := strconv.FormatInt(now.Add(m.config.Window).Unix(), 10)
		ctx := c.UserContext()

		// Remove old entries, then count requests in the current window
		pipe := m.redis.TxPipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
		countCmd := pipe.ZCard(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			// If Redis fails, allow request but log error
			m.logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		count := countCmd.Val()

		if count >= int64(m.config.Max) {
			c.Set("X-RateLimit-Limit", strconv.Itoa(m.config.Max))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", reset)
			c.Set("Retry-After", strconv.FormatInt(int64(m.config.Window.Seconds()), 10))

			return m.config.LimitReached(c)
		}

		pipe = m.redis.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: fmt.Sprintf("%d:%s", now.UnixNano(), GetRequestID(c)),
		})
		pipe.Expire(ctx, key, m.config.Window*2)
		if _, err := pipe.Exec(ctx); err != nil {
			m.logger.Warn("failed to record request for rate limiting", zap.Error(err))
		}

		remaining := m.config.Max - int(count) - 1
		c.Set("X-RateLimit-Limit", strconv.Itoa(m.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", reset)

		return c.Next()
	}
}
