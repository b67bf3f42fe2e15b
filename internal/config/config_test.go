package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "http://localhost:8080", cfg.Tracking.BaseURL)
	assert.Equal(t, time.Minute, cfg.Tracking.PublicRateWindow())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_Values(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
database:
  url: postgres://localhost/mailpulse
slack:
  webhook_url: https://hooks.slack.com/services/T/B/X
tracking:
  base_url: https://track.example.com
  public_rate_limit: 10
  public_rate_window_seconds: 30
redis:
  addr: redis:6379
  enabled: true
auth:
  api_token: sekret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/mailpulse", cfg.Database.URL)
	assert.Equal(t, "https://hooks.slack.com/services/T/B/X", cfg.Slack.WebhookURL)
	assert.Equal(t, "https://track.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, 10, cfg.Tracking.PublicRateLimit)
	assert.Equal(t, 30*time.Second, cfg.Tracking.PublicRateWindow())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "sekret", cfg.Auth.APIToken)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	path := writeConfig(t, "database:\n  url: postgres://file/db\n")

	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/env")
	t.Setenv("TRACKING_BASE_URL", "https://env.example.com")
	t.Setenv("REDIS_ADDR", "envredis:6379")
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("PORT", "7070")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "https://hooks.slack.com/services/env", cfg.Slack.WebhookURL)
	assert.Equal(t, "https://env.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, "envredis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "env-token", cfg.Auth.APIToken)
	assert.Equal(t, 7070, cfg.Server.Port)
}
