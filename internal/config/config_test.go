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

	t.Run("second fields convert to durations", func(t *testing.T) {
		cfg := &Config{
			ReminderSeconds:     120,
			TimeoutSeconds:      300,
			DebounceSeconds:     5,
			ForwardDelaySeconds: 2,
		}
		assert.Equal(t, 2*time.Minute, cfg.Reminder())
		assert.Equal(t, 5*time.Minute, cfg.Timeout())
		assert.Equal(t, 5*time.Second, cfg.Debounce())
		assert.Equal(t, 2*time.Second, cfg.ForwardDelay())
	})

	t.Run("GraphConfigured requires all three credentials", func(t *testing.T) {
		cfg := &Config{GraphClientID: "id", GraphClientSecret: "secret"}
		assert.False(t, cfg.GraphConfigured())

		cfg.GraphTenantID = "tenant"
		assert.True(t, cfg.GraphConfigured())
	})

	t.Run("MailConfigured requires host and recipient", func(t *testing.T) {
		cfg := &Config{SMTPHost: "smtp.example.com"}
		assert.False(t, cfg.MailConfigured())

		cfg.ReportTo = "chefe@example.com"
		assert.True(t, cfg.MailConfigured())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads with required variables set", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/intake")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("GATEWAY_BASE_URL", "http://localhost:9000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 3, cfg.MinPhotosPerBatch)
		assert.Equal(t, 120, cfg.ReminderSeconds)
		assert.Equal(t, 300, cfg.TimeoutSeconds)
		assert.Equal(t, 5, cfg.DebounceSeconds)
		assert.Equal(t, 3, cfg.ForwardAttempts)
		assert.True(t, cfg.AllowAllWhenEmpty)
	})

	t.Run("fails without a database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "placeholder")
		os.Unsetenv("DATABASE_URL")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("GATEWAY_BASE_URL", "http://localhost:9000")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			MinPhotosPerBatch: 3,
			ReminderSeconds:   120,
			DebounceSeconds:   5,
		}
	}

	t.Run("default tunables pass", func(t *testing.T) {
		assert.NoError(t, base().Validate(false))
	})

	t.Run("rejects a zero photo minimum", func(t *testing.T) {
		cfg := base()
		cfg.MinPhotosPerBatch = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects a debounce longer than the reminder", func(t *testing.T) {
		cfg := base()
		cfg.DebounceSeconds = 200
		assert.Error(t, cfg.Validate(false))
	})
}
