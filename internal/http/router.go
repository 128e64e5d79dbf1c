package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/metrics"
	"occasioncheck/internal/pipeline"
)

type Server struct {
	app      *fiber.App
	config   *config.Config
	pipeline *pipeline.Pipeline
	rdb      *redis.Client
	logger   *zap.Logger
}

// NewServer wires the routes. rdb may be nil, in which case rate limiting
// is off regardless of configuration.
func NewServer(cfg *config.Config, p *pipeline.Pipeline, rdb *redis.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "occasioncheck",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Inject config and pipeline into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("pipeline", p)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("X-Request-Id", reqID)
		c.Locals("request_id", reqID)

		reqLogger := logger.With(zap.String("request_id", reqID))
		c.Locals("logger", reqLogger)

		err := c.Next()
		if err != nil {
			// render now so the logged status is the one sent
			if herr := errorHandler(c, err); herr != nil {
				return herr
			}
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		route := c.Route().Path

		metrics.RecordRequest(method, route, status, latency)

		reqLogger.Info("request",
			zap.String("method", method),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
		return nil
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return healthHandler(c, rdb)
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	rateMw := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.RateLimit.Enabled && rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	}
	app.Get("/analyze", rateMw, analyzeHandler)

	return &Server{
		app:      app,
		config:   cfg,
		pipeline: p,
		rdb:      rdb,
		logger:   logger,
	}
}

func (s *Server) Listen() error {
	s.logger.Info("listening",
		zap.String("addr", s.config.Addr()),
		zap.String("mode", s.pipeline.Mode()),
		zap.String("provider", string(s.pipeline.Gateway().Provider())),
	)
	return s.app.Listen(s.config.Addr())
}

// Shutdown stops accepting connections and waits for in-flight analyses
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors that escape a handler, such as unknown
// routes, in the JSON envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "an unknown server error occurred"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
