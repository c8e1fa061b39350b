package config

const (
	defaultDataDir              = "~/.local/share/colourstream"
	defaultLogDir               = "~/.local/share/colourstream/logs"
	defaultAPIBind              = "127.0.0.1:5001"
	defaultAdminUsername        = "admin"
	defaultTokenTTLHours        = 12
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultStorageRegion        = "us-east-1"
	defaultStorageBucket        = "uploads"
	defaultPresignTTLSeconds    = 3600
	defaultTelegramBaseURL      = "https://api.telegram.org"
	defaultTelegramTimeout      = 10
	defaultOBSHost              = "127.0.0.1"
	defaultOBSPort              = 4455
	defaultMiroTalkTokenDays    = 30
	defaultUploadRetentionHours = 24
	defaultCleanupIntervalMin   = 60
	defaultNotificationQueueLen = 256
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			APIBind: defaultAPIBind,
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Auth: Auth{
			AdminUsername: defaultAdminUsername,
			TokenTTLHours: defaultTokenTTLHours,
		},
		Storage: Storage{
			Region:     defaultStorageRegion,
			Bucket:     defaultStorageBucket,
			PresignTTL: defaultPresignTTLSeconds,
		},
		Telegram: Telegram{
			BaseURL:        defaultTelegramBaseURL,
			RequestTimeout: defaultTelegramTimeout,
		},
		OBS: OBS{
			Host: defaultOBSHost,
			Port: defaultOBSPort,
		},
		MiroTalk: MiroTalk{
			TokenTTLDays: defaultMiroTalkTokenDays,
		},
		Uploads: Uploads{
			RetentionHours:       defaultUploadRetentionHours,
			CleanupIntervalMin:   defaultCleanupIntervalMin,
			NotificationQueueLen: defaultNotificationQueueLen,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
