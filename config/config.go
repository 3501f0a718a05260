// Package config loads orchestration settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Model provider identifiers accepted by MODEL_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds every tunable of the orchestration core. All fields have
// working defaults so a zero environment still yields a usable setup.
type Config struct {
	// Model selection.
	ModelProvider       string `env:"CONVERGIO_MODEL_PROVIDER" envDefault:"openai"`
	ModelID             string `env:"CONVERGIO_MODEL_ID" envDefault:"gpt-4o-mini"`
	EmbeddingModel      string `env:"CONVERGIO_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"CONVERGIO_EMBEDDING_DIMENSIONS" envDefault:"1536"`

	// Conversation control.
	MaxTurns          int           `env:"CONVERGIO_MAX_TURNS" envDefault:"10"`
	RunTimeout        time.Duration `env:"CONVERGIO_RUN_TIMEOUT" envDefault:"120s"`
	TerminationMarker string        `env:"CONVERGIO_TERMINATION_MARKER" envDefault:"TERMINATE"`
	MaxModelCalls     int           `env:"CONVERGIO_MAX_MODEL_CALLS" envDefault:"0"`
	PerTurnRAGEnabled bool          `env:"CONVERGIO_PER_TURN_RAG" envDefault:"true"`

	// Cost accounting.
	TotalBudgetUSD  float64 `env:"CONVERGIO_TOTAL_BUDGET_USD" envDefault:"50"`
	CostPer1KTokens float64 `env:"CONVERGIO_COST_PER_1K_TOKENS" envDefault:"0.002"`

	// Cache lifetimes.
	RAGCacheTTL      time.Duration `env:"CONVERGIO_RAG_CACHE_TTL" envDefault:"5m"`
	InjectorCacheTTL time.Duration `env:"CONVERGIO_INJECTOR_CACHE_TTL" envDefault:"60s"`

	// Logging.
	LogLevel  string `env:"CONVERGIO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CONVERGIO_LOG_FORMAT" envDefault:"text"`
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		ModelProvider:       ProviderOpenAI,
		ModelID:             "gpt-4o-mini",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		MaxTurns:            10,
		RunTimeout:          120 * time.Second,
		TerminationMarker:   "TERMINATE",
		MaxModelCalls:       0,
		PerTurnRAGEnabled:   true,
		TotalBudgetUSD:      50,
		CostPer1KTokens:     0.002,
		RAGCacheTTL:         5 * time.Minute,
		InjectorCacheTTL:    60 * time.Second,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load parses configuration from the process environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotenv loads the given .env files into the process environment before
// parsing. Missing files are skipped so deployments without a dotenv file
// work unchanged; no paths means "./.env".
func LoadDotenv(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return Load()
}

// Validate reports the first configuration value that cannot work.
func (c *Config) Validate() error {
	switch c.ModelProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("unknown model provider %q", c.ModelProvider)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max turns must be at least 1, got %d", c.MaxTurns)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %s", c.RunTimeout)
	}
	if c.TotalBudgetUSD <= 0 {
		return fmt.Errorf("total budget must be positive, got %g", c.TotalBudgetUSD)
	}
	if c.CostPer1KTokens < 0 {
		return fmt.Errorf("cost per 1k tokens must not be negative, got %g", c.CostPer1KTokens)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.EmbeddingDimensions)
	}
	return nil
}
