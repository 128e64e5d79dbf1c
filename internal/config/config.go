package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GoogleLLMConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseURL"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
}

type LLMConfig struct {
	DefaultProvider string          `yaml:"defaultProvider"`
	Temperature     float64         `yaml:"temperature"`
	Google          GoogleLLMConfig `yaml:"google"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
}

// PipelineConfig selects the orchestration strategy. Mode and variant are
// fixed per process, never chosen per request.
type PipelineConfig struct {
	// Mode is "unified" or "two-stage".
	Mode string `yaml:"mode"`
	// Variant is "full" or "basic".
	Variant          string `yaml:"variant"`
	WebRetrieval     *bool  `yaml:"webRetrieval"`
	StructuredOutput *bool  `yaml:"structuredOutput"`
	TimeoutMs        int    `yaml:"timeoutMs"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	PerMinute int  `yaml:"perMinute"`
}

type LoggingConfig struct {
	// Level is debug|info|warn|error.
	Level string `yaml:"level"`
	// Format is json|console.
	Format string `yaml:"format"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

const (
	ModeUnified  = "unified"
	ModeTwoStage = "two-stage"
)

// Environment variables that override the file. Credentials are normally
// supplied this way rather than committed to the YAML file.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvProvider        = "OCCASIONCHECK_PROVIDER"
	EnvPipelineMode    = "OCCASIONCHECK_PIPELINE_MODE"
)

// Load reads the YAML file at path, then a .env file in the working
// directory, then the process environment. A missing config file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		c.LLM.Google.APIKey = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
		c.LLM.Anthropic.APIKey = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.LLM.DefaultProvider = v
	}
	if v := os.Getenv(EnvPipelineMode); v != "" {
		c.Pipeline.Mode = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = "google"
	}
	if c.LLM.Google.Model == "" {
		c.LLM.Google.Model = "gemini-2.5-flash"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4.1"
	}
	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.Anthropic.MaxTokens <= 0 {
		c.LLM.Anthropic.MaxTokens = 4096
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = ModeUnified
	}
	if c.Pipeline.Variant == "" {
		c.Pipeline.Variant = "full"
	}
	if c.Pipeline.WebRetrieval == nil {
		on := true
		c.Pipeline.WebRetrieval = &on
	}
	if c.Pipeline.StructuredOutput == nil {
		on := true
		c.Pipeline.StructuredOutput = &on
	}
	if c.Pipeline.TimeoutMs <= 0 {
		c.Pipeline.TimeoutMs = 60000
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate rejects settings the process cannot run with. Missing provider
// credentials are not checked here; the gateway reports them per request.
func (c *Config) Validate() error {
	switch c.Pipeline.Mode {
	case ModeUnified, ModeTwoStage:
	default:
		return fmt.Errorf("invalid pipeline.mode %q (expected %s|%s)", c.Pipeline.Mode, ModeUnified, ModeTwoStage)
	}
	switch c.Pipeline.Variant {
	case "full", "basic":
	default:
		return fmt.Errorf("invalid pipeline.variant %q (expected full|basic)", c.Pipeline.Variant)
	}
	if c.RateLimit.Enabled && c.Redis.URL == "" {
		return errors.New("ratelimit.enabled requires redis.url")
	}
	return nil
}

// Timeout returns the per-request pipeline deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutMs) * time.Millisecond
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
