package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout())
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, 7, cfg.Jobs.PaymentReminderDays)
	assert.Equal(t, "0 9 * * 1", cfg.Jobs.ContractRenewalsSchedule)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`port: "9000"
timezone: UTC
token_ttl_minutes: 15
nats:
  url: nats://localhost:4222
jobs:
  payment_reminder_days: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL())
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 3, cfg.Jobs.PaymentReminderDays)
	assert.Equal(t, 30, cfg.Jobs.ContractRenewalNoticeDays)
	assert.Equal(t, time.UTC.String(), cfg.Location().String())
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TIMEZONE", "UTC")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "prod-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	require.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := Config{AllowedOrigins: "https://a.example, https://b.example,,"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}
