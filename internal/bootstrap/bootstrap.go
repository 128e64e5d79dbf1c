// Package bootstrap turns a loaded configuration into the runtime
// dependencies shared by the CLI commands.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/llm"
	"occasioncheck/internal/pipeline"
)

// Runtime holds the process-wide collaborators. The gateway is built once
// and shared read-only by every request.
type Runtime struct {
	Gateway  llm.Gateway
	Pipeline *pipeline.Pipeline
	Redis    *redis.Client
}

// Close releases connections held by the runtime.
func (r *Runtime) Close() error {
	if r.Redis != nil {
		return r.Redis.Close()
	}
	return nil
}

// Run builds the runtime from cfg. Missing provider credentials do not fail
// startup: an unavailable gateway is installed and every analysis reports
// GATEWAY_UNAVAILABLE until the process is restarted with credentials.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errs.New(errs.CodeConfiguration, "no configuration loaded")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gw, err := llm.NewGatewayFromConfig(ctx, cfg, "", "")
	if err != nil {
		logger.Error("llm gateway unavailable",
			zap.String("provider", cfg.LLM.DefaultProvider),
			zap.Error(err),
		)
		gw = llm.Unavailable(llm.Provider(cfg.LLM.DefaultProvider), configuredModel(cfg), err)
	}

	p, err := pipeline.New(gw, cfg, logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Gateway: gw, Pipeline: p}

	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, errs.Wrap(errs.CodeConfiguration, "invalid redis.url", fmt.Errorf("parse redis url: %w", err))
		}
		rt.Redis = redis.NewClient(opt)
	}

	return rt, nil
}

func configuredModel(cfg *config.Config) string {
	switch llm.Provider(cfg.LLM.DefaultProvider) {
	case llm.ProviderOpenAI:
		return cfg.LLM.OpenAI.Model
	case llm.ProviderAnthropic:
		return cfg.LLM.Anthropic.Model
	default:
		return cfg.LLM.Google.Model
	}
}
