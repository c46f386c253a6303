package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/evalbridge/evalbridge/internal/config"
)

// RateLimitMiddleware limits requests per project using a Redis sliding
// window. Redis failures fail open: requests are allowed through.
type RateLimitMiddleware struct {
	redis *redis.Client
	cfg   config.RateLimitConfig
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(redisClient *redis.Client, cfg config.RateLimitConfig) *RateLimitMiddleware {
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	if cfg.WindowS <= 0 {
		cfg.WindowS = 60
	}

	return &RateLimitMiddleware{
		redis: redisClient,
		cfg:   cfg,
	}
}

// Handler returns the rate limit handler. Keys on project when
// authenticated, the client IP otherwise.
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.cfg.Enabled || m.redis == nil {
			return c.Next()
		}

		scope := c.IP()
		if projectID, ok := GetProjectID(c); ok {
			scope = "project:" + projectID.String()
		}
		key := fmt.Sprintf("ratelimit:%s", scope)

		now := time.Now().Unix()
		windowStart := now - int64(m.cfg.WindowS)
		ctx := context.Background()

		m.redis.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))

		count, err := m.redis.ZCard(ctx, key).Result()
		if err != nil {
			return c.Next()
		}

		if count >= int64(m.cfg.Max) {
			c.Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.Max))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.Itoa(m.cfg.WindowS))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Too Many Requests",
				"message": "Rate limit exceeded. Please try again later.",
			})
		}

		m.redis.ZAdd(ctx, key, redis.Z{
			Score:  float64(now),
			Member: fmt.Sprintf("%d:%s", now, GetRequestID(c)),
		})
		m.redis.Expire(ctx, key, time.Duration(m.cfg.WindowS*2)*time.Second)

		c.Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(m.cfg.Max-int(count)-1))

		return c.Next()
	}
}
