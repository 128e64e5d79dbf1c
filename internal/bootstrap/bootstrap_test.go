package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occasioncheck/internal/config"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/llm"
	"occasioncheck/internal/model"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.DefaultProvider = "openai"
	cfg.LLM.OpenAI.Model = "gpt-4.1"
	cfg.Pipeline.Mode = config.ModeUnified
	cfg.Pipeline.Variant = "full"
	return cfg
}

func TestRun_MissingCredentialsInstallsUnavailable(t *testing.T) {
	rt, err := Run(context.Background(), baseConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.True(t, llm.IsUnavailable(rt.Gateway))
	assert.Equal(t, llm.ProviderOpenAI, rt.Gateway.Provider())
	assert.Equal(t, "gpt-4.1", rt.Gateway.Model())
	assert.Nil(t, rt.Redis)

	_, err = rt.Pipeline.Run(context.Background(), model.ListingQuery{URL: "https://example.invalid"})
	assert.True(t, errs.Is(err, errs.CodeGatewayUnavailable))
}

func TestRun_ConfiguredGatewayAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig()
	cfg.LLM.OpenAI.APIKey = "sk-test"
	cfg.Redis.URL = "redis://" + mr.Addr()

	rt, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.False(t, llm.IsUnavailable(rt.Gateway))
	require.NotNil(t, rt.Redis)
	require.NoError(t, rt.Redis.Ping(context.Background()).Err())
}

func TestRun_InvalidRedisURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis.URL = "not a url"

	_, err := Run(context.Background(), cfg, nil)
	assert.True(t, errs.Is(err, errs.CodeConfiguration))
}
