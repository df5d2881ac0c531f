// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration. Every field has a working
// default; API keys are the only thing a fresh checkout needs to set,
// and even those are optional (the town runs on scripts without them).
type Config struct {
	Port     int    `env:"TOWNSIM_PORT" envDefault:"8080"`
	AdminKey string `env:"TOWNSIM_ADMIN_KEY"`

	DBPath       string `env:"TOWNSIM_DB_PATH" envDefault:"data/town.db"`
	ScenarioPath string `env:"TOWNSIM_SCENARIO"` // empty = built-in scenario

	Seed           int64 `env:"TOWNSIM_SEED" envDefault:"42"`
	MinutesPerTurn int   `env:"TOWNSIM_MINUTES_PER_TURN" envDefault:"10"`
	TurnSeconds    int   `env:"TOWNSIM_TURN_SECONDS" envDefault:"5"`

	// LLM provider selection and credentials.
	Provider       string `env:"TOWNSIM_LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicKey   string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel string `env:"TOWNSIM_ANTHROPIC_MODEL"`
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	OpenAIModel    string `env:"TOWNSIM_OPENAI_MODEL"`
	OpenAIBaseURL  string `env:"TOWNSIM_OPENAI_BASE_URL"`
	LLMCallsPerMin int    `env:"TOWNSIM_LLM_CALLS_PER_MIN" envDefault:"20"`

	LogLevel string `env:"TOWNSIM_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MinutesPerTurn <= 0 || cfg.MinutesPerTurn > 60 {
		return nil, fmt.Errorf("TOWNSIM_MINUTES_PER_TURN must be 1-60, got %d", cfg.MinutesPerTurn)
	}
	if cfg.TurnSeconds <= 0 {
		return nil, fmt.Errorf("TOWNSIM_TURN_SECONDS must be positive, got %d", cfg.TurnSeconds)
	}
	return cfg, nil
}
