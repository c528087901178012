package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("APIBudget converts seconds to duration", func(t *testing.T) {
		cfg := &Config{APIBudgetSeconds: 8}
		assert.Equal(t, 8*time.Second, cfg.APIBudget())
	})

	t.Run("BrowserBudget converts seconds to duration", func(t *testing.T) {
		cfg := &Config{BrowserBudgetSeconds: 55}
		assert.Equal(t, 55*time.Second, cfg.BrowserBudget())
	})

	t.Run("StuckThreshold converts minutes to duration", func(t *testing.T) {
		cfg := &Config{StuckThresholdMinutes: 10}
		assert.Equal(t, 10*time.Minute, cfg.StuckThreshold())
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive budgets", func(t *testing.T) {
		cfg := &Config{APIBudgetSeconds: 0, BrowserBudgetSeconds: 55, AccountLeaseSeconds: 90}
		assert.Error(t, cfg.Validate(false))

		cfg = &Config{APIBudgetSeconds: 8, BrowserBudgetSeconds: 0, AccountLeaseSeconds: 90}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects lease shorter than browser budget", func(t *testing.T) {
		cfg := &Config{APIBudgetSeconds: 8, BrowserBudgetSeconds: 55, AccountLeaseSeconds: 30}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts sane config", func(t *testing.T) {
		cfg := &Config{APIBudgetSeconds: 8, BrowserBudgetSeconds: 55, AccountLeaseSeconds: 90}
		assert.NoError(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                           os.Getenv("PORT"),
		"DATABASE_URL":                   os.Getenv("DATABASE_URL"),
		"REDIS_URL":                      os.Getenv("REDIS_URL"),
		"API_CHANNEL_BUDGET_SECONDS":     os.Getenv("API_CHANNEL_BUDGET_SECONDS"),
		"BROWSER_CHANNEL_BUDGET_SECONDS": os.Getenv("BROWSER_CHANNEL_BUDGET_SECONDS"),
		"EXECUTING_STUCK_MINUTES":        os.Getenv("EXECUTING_STUCK_MINUTES"),
		"LOG_LEVEL":                      os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("API_CHANNEL_BUDGET_SECONDS")
		os.Unsetenv("BROWSER_CHANNEL_BUDGET_SECONDS")
		os.Unsetenv("EXECUTING_STUCK_MINUTES")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 8, cfg.APIBudgetSeconds)
		assert.Equal(t, 55, cfg.BrowserBudgetSeconds)
		assert.Equal(t, 10, cfg.StuckThresholdMinutes)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "9090")
		os.Setenv("API_CHANNEL_BUDGET_SECONDS", "12")
		os.Setenv("BROWSER_CHANNEL_BUDGET_SECONDS", "40")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 12*time.Second, cfg.APIBudget())
		assert.Equal(t, 40*time.Second, cfg.BrowserBudget())
	})

	t.Run("fails when DATABASE_URL missing", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})
}
