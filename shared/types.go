package shared

import "time"

type Config struct {
	RightGuard RightGuardConfig `mapstructure:"rightguard" validate:"required"`
	User       UserConfig       `mapstructure:"user"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Cache      CacheConfig      `mapstructure:"cache" validate:"required"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Twilio     TwilioConfig     `mapstructure:"twilio"`
	Email      EmailConfig      `mapstructure:"email"`
	Push       PushConfig       `mapstructure:"push"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Google     GoogleConfig     `mapstructure:"google"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type RightGuardConfig struct {
	PrivateKeyPem string `mapstructure:"privateKeyPem"`
	// DataDir holds the sqlite database & file cache, defaults to ~/rightguard
	DataDir  string         `mapstructure:"dataDir"`
	JWKSURL  string         `mapstructure:"jwksUrl" validate:"omitempty,url"`
	Cron     CronConfig     `mapstructure:"cron"`
	Listener ListenerConfig `mapstructure:"listener"`
	Sessions SessionsConfig `mapstructure:"sessions"`
}

// SessionsConfig bounds the sessions a server keeps in memory
type SessionsConfig struct {
	MaxDeviceSessions int           `mapstructure:"maxDeviceSessions" validate:"omitempty,min=1"`
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`
	// EvictionSchedule is the cron expression idle sessions are dropped on, hourly by default
	EvictionSchedule string `mapstructure:"evictionSchedule"`
}

// UserConfig identifies the signed in user when running as a device (CLI).
// An empty ID means the device runs in demo mode and only uses the local cache.
type UserConfig struct {
	ID       string `mapstructure:"id"`
	DeviceID string `mapstructure:"deviceId"`
}

type RemoteConfig struct {
	// Driver is one of "postgres" or "sqlite"
	Driver     string `mapstructure:"driver" validate:"omitempty,oneof=postgres sqlite"`
	DSN        string `mapstructure:"dsn"`
	PassPhrase string `mapstructure:"passPhrase"`
	Dir        string `mapstructure:"dir"`
}

type CacheConfig struct {
	// Driver is one of "file" or "redis"
	Driver   string `mapstructure:"driver" validate:"required,oneof=file redis"`
	Dir      string `mapstructure:"dir"`
	RedisURL string `mapstructure:"redisUrl" validate:"omitempty,url"`
}

type AlertsConfig struct {
	Concurrency    int           `mapstructure:"concurrency" validate:"omitempty,min=1"`
	ChannelTimeout time.Duration `mapstructure:"channelTimeout"`
	// Policy is one of "lenient" or "strict"
	Policy string `mapstructure:"policy" validate:"omitempty,oneof=lenient strict"`
	LogDSN string `mapstructure:"logDsn"`
}

type TwilioConfig struct {
	AccountSid          string  `mapstructure:"accountSid"`
	AuthToken           string  `mapstructure:"authToken"`
	MessagingServiceSid string  `mapstructure:"messagingServiceSid"`
	RatePerSecond       float64 `mapstructure:"ratePerSecond"`
}

type EmailConfig struct {
	SMTPServer string `mapstructure:"smtpServer"`
	SMTPPort   int    `mapstructure:"smtpPort"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from" validate:"omitempty,email"`
}

type PushConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required_with=Brokers"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseUrl"`
	Model   string `mapstructure:"model"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

type StorageConfig struct {
	Bucket                   string `mapstructure:"bucket" validate:"required_with=EnableCacheBackupAndSync"`
	Prefix                   string `mapstructure:"prefix" validate:"required_with=EnableCacheBackupAndSync"`
	CacheBackupSchedule      string `mapstructure:"cacheBackupSchedule" validate:"required_with=EnableCacheBackupAndSync"`
	EnableCacheBackupAndSync bool   `mapstructure:"enableCacheBackupAndSync"`
}

type LoggingConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMb"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
}

// BackupEnabled reports whether the cache directory should be synced with google storage
func (cfg StorageConfig) BackupEnabled() bool {
	return cfg.EnableCacheBackupAndSync && cfg.Bucket != ""
}
