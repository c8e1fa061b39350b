package testsupport

import (
	"path/filepath"
	"testing"

	"colourstream/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Server.DataDir = filepath.Join(base, "data")
	cfg.Server.LogDir = filepath.Join(base, "logs")
	cfg.Server.APIBind = "127.0.0.1:0"
	cfg.Auth.AdminPassword = "test-password"
	cfg.Auth.JWTSecret = "test-secret"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithTelegram enables Telegram notifications against the given endpoint.
func WithTelegram(baseURL, token, chatID string) ConfigOption {
	return func(c *config.Config) {
		c.Telegram.Enabled = true
		c.Telegram.BaseURL = baseURL
		c.Telegram.BotToken = token
		c.Telegram.ChatID = chatID
	}
}

// WithStorage enables object storage against the given endpoint.
func WithStorage(endpoint string) ConfigOption {
	return func(c *config.Config) {
		c.Storage.Enabled = true
		c.Storage.Endpoint = endpoint
		c.Storage.Region = "us-east-1"
		c.Storage.Bucket = "test-bucket"
		c.Storage.AccessKey = "test-access"
		c.Storage.SecretKey = "test-secret"
		c.Storage.ForcePathStyle = true
	}
}
