package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"occasioncheck/internal/llm"
	"occasioncheck/internal/pipeline"
)

// healthHandler reports process liveness and whether a gateway is
// configured. With ?deep=true it also pings Redis.
func healthHandler(c *fiber.Ctx, rdb *redis.Client) error {
	p := c.Locals("pipeline").(*pipeline.Pipeline)
	gw := p.Gateway()

	resp := HealthResponse{
		Status:   "ok",
		Provider: string(gw.Provider()),
		Model:    gw.Model(),
		Mode:     p.Mode(),
		Gateway:  "ok",
	}
	if llm.IsUnavailable(gw) {
		resp.Gateway = "unavailable"
	}

	if c.Query("deep") != "true" {
		return c.JSON(resp)
	}

	resp.Redis = "disabled"
	if rdb != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			resp.Redis = "error"
			resp.Status = "error"
		} else {
			resp.Redis = "ok"
		}
	}
	return c.JSON(resp)
}
