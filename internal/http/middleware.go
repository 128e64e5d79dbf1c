package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/metrics"
)

// clock is replaced in tests to pin the rate limit window.
var clock = time.Now

// rateLimitMiddleware enforces a per-minute fixed-window limit per client
// IP using Redis. Every analysis costs at least one model call.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := cfg.RateLimit.PerMinute
		if limit <= 0 {
			return c.Next()
		}

		now := clock().UTC()
		window := now.Format("200601021504") // YYYYMMDDHHMM minute window
		key := fmt.Sprintf("occasioncheck:rl:%s:%s", c.IP(), window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			requestLogger(c).Error("rate limit increment failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Code:  "INTERNAL_ERROR",
				Error: "rate limit check failed",
			})
		}
		if count == 1 {
			// First hit in this window; set TTL
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(limit) {
			metrics.RecordRateLimited()
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", 60-now.Second()))
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Code:  "RATE_LIMIT_EXCEEDED",
				Error: "Rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}

func requestLogger(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals("logger").(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
