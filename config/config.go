package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values. It is loaded once in main and passed
// into constructors; components never read it through a global.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisPass    string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB  int    `mapstructure:"REDIS_LOCK_DB"`
	RedisCacheDB int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB int    `mapstructure:"REDIS_QUEUE_DB"`

	// Slot lock tuning.
	LockTimeoutMs int `mapstructure:"LOCK_TIMEOUT_MS"` // Acquisition budget per create
	LockTTLMs     int `mapstructure:"LOCK_TTL_MS"`     // Safety expiry on a held lock

	// No-show scheduler tuning.
	NoShowScanIntervalMin int `mapstructure:"NOSHOW_SCAN_INTERVAL_MIN"`
	NoShowGraceDefaultMin int `mapstructure:"NOSHOW_GRACE_DEFAULT_MIN"`
	NoShowWarningDelayMin int `mapstructure:"NOSHOW_WARNING_DELAY_MIN"`
	NoShowLookbackHours   int `mapstructure:"NOSHOW_LOOKBACK_HOURS"`
	NoShowLookaheadMin    int `mapstructure:"NOSHOW_LOOKAHEAD_MIN"`
	DefaultPenaltyPoints  int `mapstructure:"DEFAULT_PENALTY_POINTS"`
	RetentionDays         int `mapstructure:"RETENTION_DAYS"`
	AuditRetentionDays    int `mapstructure:"AUDIT_RETENTION_DAYS"`
	CleanupIntervalHours  int `mapstructure:"CLEANUP_INTERVAL_HOURS"`
	StatsCacheSeconds     int `mapstructure:"STATS_CACHE_SECONDS"`

	// Stripe.
	StripeKey string `mapstructure:"STRIPE_KEY"`
}

// LoadConfig initializes viper to load config values from env, file, or
// defaults, and returns the populated Config.
func LoadConfig() Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "reserva")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_LOCK_DB", 0)
	viper.SetDefault("REDIS_CACHE_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("LOCK_TIMEOUT_MS", 5000)
	viper.SetDefault("LOCK_TTL_MS", 30000)
	viper.SetDefault("NOSHOW_SCAN_INTERVAL_MIN", 10)
	viper.SetDefault("NOSHOW_GRACE_DEFAULT_MIN", 20)
	viper.SetDefault("NOSHOW_WARNING_DELAY_MIN", 10)
	viper.SetDefault("NOSHOW_LOOKBACK_HOURS", 48)
	viper.SetDefault("NOSHOW_LOOKAHEAD_MIN", 0)
	viper.SetDefault("DEFAULT_PENALTY_POINTS", 100)
	viper.SetDefault("RETENTION_DAYS", 90)
	viper.SetDefault("AUDIT_RETENTION_DAYS", 365)
	viper.SetDefault("CLEANUP_INTERVAL_HOURS", 24)
	viper.SetDefault("STATS_CACHE_SECONDS", 60)
	viper.SetDefault("STRIPE_KEY", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// LockTimeout returns the lock acquisition budget as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// LockTTL returns the lock safety expiry as a duration.
func (c Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMs) * time.Millisecond
}

// IsProduction checks if the environment is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
