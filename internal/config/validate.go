package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateOBS(); err != nil {
		return err
	}
	if err := c.validateOME(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.APIBind == "" {
		return errors.New("server.api_bind must be set")
	}
	if c.Server.DataDir == "" {
		return errors.New("server.data_dir must be set")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.AdminUsername == "" {
		return errors.New("auth.admin_username must be set")
	}
	if c.Auth.JWTSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/colourstream/config.toml"
		}
		return fmt.Errorf("auth.jwt_secret is required. Set COLOURSTREAM_JWT_SECRET env var or edit %s (create with 'colourstream config init')", defaultPath)
	}
	if c.Auth.TokenTTLHours < 0 {
		return errors.New("auth.token_ttl_hours must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket must be set when storage.enabled is true")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return errors.New("storage.access_key and storage.secret_key must be set when storage.enabled is true")
	}
	if c.Storage.PresignTTL <= 0 {
		return errors.New("storage.presign_ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if !c.Telegram.Enabled {
		return nil
	}
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token must be set when telegram.enabled is true")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id must be set when telegram.enabled is true")
	}
	return nil
}

func (c *Config) validateOBS() error {
	if !c.OBS.Enabled {
		return nil
	}
	if strings.TrimSpace(c.OBS.Host) == "" {
		return errors.New("obs.host must be set when obs.enabled is true")
	}
	if c.OBS.Port <= 0 || c.OBS.Port > 65535 {
		return errors.New("obs.port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validateOME() error {
	if !c.OME.Enabled {
		return nil
	}
	if c.OME.APIURL == "" {
		return errors.New("ome.api_url must be set when ome.enabled is true")
	}
	if c.OME.AccessKey == "" {
		return errors.New("ome.access_key must be set when ome.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
