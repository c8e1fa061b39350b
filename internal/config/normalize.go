package config

import (
	"os"
	"strings"
)

// normalize expands paths, trims credential fields, and applies environment
// fallbacks before validation runs.
func (c *Config) normalize() error {
	var err error
	if c.Server.DataDir, err = expandPath(c.Server.DataDir); err != nil {
		return err
	}
	if c.Server.LogDir, err = expandPath(c.Server.LogDir); err != nil {
		return err
	}

	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	c.Auth.AdminUsername = strings.TrimSpace(c.Auth.AdminUsername)
	c.Auth.AdminPassword = strings.TrimSpace(c.Auth.AdminPassword)
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.Telegram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.BaseURL), "/")
	c.OME.APIURL = strings.TrimRight(strings.TrimSpace(c.OME.APIURL), "/")
	c.MiroTalk.BaseURL = strings.TrimRight(strings.TrimSpace(c.MiroTalk.BaseURL), "/")

	applyEnvFallback(&c.Auth.AdminPassword, "COLOURSTREAM_ADMIN_PASSWORD")
	applyEnvFallback(&c.Auth.JWTSecret, "COLOURSTREAM_JWT_SECRET")
	applyEnvFallback(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	applyEnvFallback(&c.Storage.SecretKey, "S3_SECRET_KEY")
	applyEnvFallback(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	applyEnvFallback(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	applyEnvFallback(&c.OBS.Password, "OBS_WEBSOCKET_PASSWORD")
	applyEnvFallback(&c.OME.AccessKey, "OME_API_ACCESS_TOKEN")
	applyEnvFallback(&c.MiroTalk.JWTKey, "MIROTALK_JWT_KEY")

	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level

	return nil
}

func applyEnvFallback(target *string, key string) {
	if strings.TrimSpace(*target) != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}
