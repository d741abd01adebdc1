package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Database.URL = "postgres://localhost:5432/whisperbox"
	cfg.Auth.CronSecret = "cron-secret"
	cfg.Auth.AdminKeyHash = "$2a$10$abcdefghijklmnopqrstuv"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 10, cfg.Notifications.DefaultBatchSize)
	assert.Equal(t, 15*time.Second, cfg.Notifications.SendTimeout)
	assert.Equal(t, 7, cfg.Notifications.RetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.PolicyCacheTTL)
	assert.Equal(t, "https://api.fonnte.com/send", cfg.Notifications.WhatsApp.APIURL)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9999"
database:
  url: postgres://localhost:5432/whisperbox
auth:
  cron_secret: from-file
  admin_key_hash: hash-from-file
notifications:
  retention_days: 14
`), 0o600))

	t.Setenv("WB_AUTH__CRON_SECRET", "from-env")
	t.Setenv("WB_NOTIFICATIONS__SEND_TIMEOUT", "20s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 14, cfg.Notifications.RetentionDays)
	// Environment wins over file.
	assert.Equal(t, "from-env", cfg.Auth.CronSecret)
	assert.Equal(t, 20*time.Second, cfg.Notifications.SendTimeout)
	// Untouched values keep their defaults.
	assert.Equal(t, 10, cfg.Notifications.DefaultBatchSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"missing database url", func(cfg *Config) { cfg.Database.URL = "" }},
		{"missing cron secret", func(cfg *Config) { cfg.Auth.CronSecret = "" }},
		{"missing admin key hash", func(cfg *Config) { cfg.Auth.AdminKeyHash = "" }},
		{"telegram enabled without token", func(cfg *Config) { cfg.Notifications.Telegram.Enabled = true }},
		{"whatsapp enabled without token", func(cfg *Config) { cfg.Notifications.WhatsApp.Enabled = true }},
		{"email enabled without host", func(cfg *Config) { cfg.Notifications.Email.Enabled = true }},
		{"zero batch size", func(cfg *Config) { cfg.Notifications.DefaultBatchSize = 0 }},
		{"zero retention", func(cfg *Config) { cfg.Notifications.RetentionDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})
}
