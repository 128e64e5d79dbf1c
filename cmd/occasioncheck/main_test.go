package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occasioncheck/internal/config"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv(config.EnvProvider, "")
	t.Setenv(config.EnvPipelineMode, "")
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  defaultProvider: google\n"), 0o600))

	configFile, modeOverride, providerOverride = path, config.ModeTwoStage, "anthropic"
	t.Cleanup(func() { configFile, modeOverride, providerOverride = "", "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ModeTwoStage, cfg.Pipeline.Mode)
	assert.Equal(t, "anthropic", cfg.LLM.DefaultProvider)

	modeOverride = "sideways"
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["analyze"])

	assert.Error(t, analyzeCmd.Args(analyzeCmd, nil), "analyze needs a url")
}
