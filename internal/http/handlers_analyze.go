package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/logging"
	"occasioncheck/internal/model"
	"occasioncheck/internal/pipeline"
)

// analyzeHandler serves GET /analyze?url=. Every pipeline failure maps to
// 500 with the user-facing message and its code.
func analyzeHandler(c *fiber.Ctx) error {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "no URL provided",
		})
	}

	cfg := c.Locals("config").(*config.Config)
	p := c.Locals("pipeline").(*pipeline.Pipeline)
	logger := requestLogger(c)

	ctx, cancel := context.WithTimeout(c.UserContext(), cfg.Timeout())
	defer cancel()
	ctx = logging.NewContext(ctx, logger)

	rec, err := p.Run(ctx, model.ListingQuery{URL: url})
	if err != nil {
		code := errs.CodeOf(err)
		logger.Warn("analyze failed", zap.String("code", string(code)))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: errs.Message(err),
			Code:  string(code),
		})
	}

	return c.Status(fiber.StatusOK).JSON(rec)
}
