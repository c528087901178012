package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL,required"`
	APIBudgetSeconds      int    `env:"API_CHANNEL_BUDGET_SECONDS" envDefault:"8"`
	BrowserBudgetSeconds  int    `env:"BROWSER_CHANNEL_BUDGET_SECONDS" envDefault:"55"`
	StuckThresholdMinutes int    `env:"EXECUTING_STUCK_MINUTES" envDefault:"10"`
	AccountLeaseSeconds   int    `env:"ACCOUNT_LEASE_SECONDS" envDefault:"90"`
	BrowserHeadless       bool   `env:"BROWSER_HEADLESS" envDefault:"true"`
	BrowserBinPath        string `env:"BROWSER_BIN_PATH" envDefault:""`
	PanelEndpoint         string `env:"PANEL_ENDPOINT" envDefault:""`
	ProxyAPIEndpoint      string `env:"PROXY_API_ENDPOINT" envDefault:""`
	BrowserLoginURL       string `env:"BROWSER_LOGIN_URL" envDefault:""`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) APIBudget() time.Duration {
	return time.Duration(c.APIBudgetSeconds) * time.Second
}

func (c *Config) BrowserBudget() time.Duration {
	return time.Duration(c.BrowserBudgetSeconds) * time.Second
}

func (c *Config) StuckThreshold() time.Duration {
	return time.Duration(c.StuckThresholdMinutes) * time.Minute
}

func (c *Config) AccountLeaseTTL() time.Duration {
	return time.Duration(c.AccountLeaseSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.APIBudgetSeconds <= 0 {
		return fmt.Errorf("API_CHANNEL_BUDGET_SECONDS must be positive")
	}
	if c.BrowserBudgetSeconds <= 0 {
		return fmt.Errorf("BROWSER_CHANNEL_BUDGET_SECONDS must be positive")
	}
	if c.AccountLeaseSeconds < c.BrowserBudgetSeconds {
		return fmt.Errorf("ACCOUNT_LEASE_SECONDS must cover the browser channel budget (%ds)", c.BrowserBudgetSeconds)
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !c.BrowserHeadless {
			log.Warn().Msg("BROWSER_HEADLESS is disabled in production")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
