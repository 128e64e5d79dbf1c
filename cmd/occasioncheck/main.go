package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/logging"
)

var (
	configFile       string
	modeOverride     string
	providerOverride string
)

var rootCmd = &cobra.Command{
	Use:           "occasioncheck",
	Short:         "Analyze used-car listings with a web-enabled language model",
	Long:          `OccasionCheck asks a language model to read a vehicle listing URL and returns a validated, structured assessment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&modeOverride, "mode", "", "pipeline mode: unified|two-stage")
	rootCmd.PersistentFlags().StringVar(&providerOverride, "provider", "", "llm provider: google|openai|anthropic")

	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

// loadConfig reads the config file and applies command-line overrides,
// which win over both the file and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if modeOverride != "" {
		cfg.Pipeline.Mode = modeOverride
	}
	if providerOverride != "" {
		cfg.LLM.DefaultProvider = providerOverride
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
