package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is read from the process environment at startup. The provider
// API key is the only required value; everything else has a local-use
// default.
type Config struct {
	Addr               string        `env:"ADDR" envDefault:":8100"`
	DataDir            string        `env:"DATA_DIR" envDefault:"data"`
	WebDir             string        `env:"WEB_DIR" envDefault:"web"`
	GeminiAPIKey       string        `env:"GEMINI_API_KEY,required"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	HistoryTokenBudget int           `env:"LLM_HISTORY_TOKEN_BUDGET" envDefault:"4096"`
}

func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}
