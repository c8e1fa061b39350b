package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API bind address and directory configuration.
type Server struct {
	APIBind string `toml:"api_bind"`
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Auth contains admin session settings.
type Auth struct {
	AdminUsername string `toml:"admin_username"`
	AdminPassword string `toml:"admin_password"`
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// Storage contains S3/MinIO object storage settings.
type Storage struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
	PresignTTL     int    `toml:"presign_ttl_seconds"`
}

// Telegram contains Telegram bot notification settings.
type Telegram struct {
	Enabled        bool   `toml:"enabled"`
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// OBS contains OBS Studio websocket control settings.
type OBS struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	UseSSL   bool   `toml:"use_ssl"`
}

// OME contains OvenMediaEngine REST API settings.
type OME struct {
	Enabled   bool   `toml:"enabled"`
	APIURL    string `toml:"api_url"`
	AccessKey string `toml:"access_key"`
}

// MiroTalk contains conference join token settings.
type MiroTalk struct {
	BaseURL      string `toml:"base_url"`
	JWTKey       string `toml:"jwt_key"`
	TokenTTLDays int    `toml:"token_ttl_days"`
}

// Uploads contains upload tracking and retention settings.
type Uploads struct {
	RetentionHours       int `toml:"retention_hours"`
	CleanupIntervalMin   int `toml:"cleanup_interval_minutes"`
	NotificationQueueLen int `toml:"notification_queue_len"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for colourstream.
//
// Configuration sections by subsystem:
//   - Server: API bind address, data and log directories
//   - Auth: admin credentials and JWT session settings
//   - Storage: S3/MinIO object storage for uploads
//   - Telegram: upload progress notification delivery
//   - OBS: OBS Studio websocket control
//   - OME: OvenMediaEngine stats API
//   - MiroTalk: conference room join tokens
//   - Uploads: tracker retention and notification queue sizing
//   - Logging: log format and level
type Config struct {
	Server   Server   `toml:"server"`
	Auth     Auth     `toml:"auth"`
	Storage  Storage  `toml:"storage"`
	Telegram Telegram `toml:"telegram"`
	OBS      OBS      `toml:"obs"`
	OME      OME      `toml:"ome"`
	MiroTalk MiroTalk `toml:"mirotalk"`
	Uploads  Uploads  `toml:"uploads"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/colourstream/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean result reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("colourstream.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Server.DataDir, c.Server.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Server.DataDir, "colourstream.db")
}

// TokenTTL returns the admin session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	hours := c.Auth.TokenTTLHours
	if hours <= 0 {
		hours = defaultTokenTTLHours
	}
	return time.Duration(hours) * time.Hour
}

// MiroTalkTokenTTL returns the conference join token lifetime.
func (c *Config) MiroTalkTokenTTL() time.Duration {
	days := c.MiroTalk.TokenTTLDays
	if days <= 0 {
		days = defaultMiroTalkTokenDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// UploadRetention returns how long completed upload records are kept.
func (c *Config) UploadRetention() time.Duration {
	hours := c.Uploads.RetentionHours
	if hours <= 0 {
		hours = defaultUploadRetentionHours
	}
	return time.Duration(hours) * time.Hour
}

// CleanupInterval returns the cadence of the retention sweep.
func (c *Config) CleanupInterval() time.Duration {
	minutes := c.Uploads.CleanupIntervalMin
	if minutes <= 0 {
		minutes = defaultCleanupIntervalMin
	}
	return time.Duration(minutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
