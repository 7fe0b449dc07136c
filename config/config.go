package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yogakitties/yogakitties-bot/pkg/timeutil"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Telegram update delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig
	Telegram      TelegramConfig
	Storage       StorageConfig
	Redis         RedisConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
	HTTP          HTTPConfig

	// CatalogFile is an optional YAML file with sessions and class days.
	CatalogFile string `env:"CATALOG_FILE"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `env:"APP_NAME"    envDefault:"yogakitties-bot"`
	Environment Environment `env:"APP_ENV"     envDefault:"development"`
	Debug       bool        `env:"APP_DEBUG"   envDefault:"false"`
	Version     string      `env:"APP_VERSION" envDefault:"0.1.0"`

	// Timezone of the studio. Class days and the weekly reset use it.
	Timezone string         `env:"APP_TIMEZONE" envDefault:"Europe/Moscow"`
	Location *time.Location `env:"-"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	// Bot token from @BotFather
	Token  string `env:"TELEGRAM_BOT_TOKEN"`
	APIURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`

	// Mode is polling or webhook.
	Mode           string        `env:"TELEGRAM_MODE"            envDefault:"polling"`
	PollingTimeout time.Duration `env:"TELEGRAM_POLLING_TIMEOUT" envDefault:"50s"`

	// Webhook settings
	WebhookURL    string `env:"TELEGRAM_WEBHOOK_URL"`
	WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	WebhookListen string `env:"TELEGRAM_WEBHOOK_LISTEN" envDefault:":8443"`

	// TLSDomain enables Let's Encrypt certificates for the webhook listener.
	TLSDomain   string `env:"TELEGRAM_TLS_DOMAIN"`
	TLSCacheDir string `env:"TELEGRAM_TLS_CACHE_DIR" envDefault:"autocert-cache"`

	// Admin user IDs (for admin commands)
	AdminIDs []int64 `env:"TELEGRAM_ADMIN_IDS" envSeparator:","`

	// MaxConcurrency bounds updates handled in parallel.
	MaxConcurrency int `env:"TELEGRAM_MAX_CONCURRENCY" envDefault:"16"`
}

// StorageConfig selects and configures the roster store.
type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DB_MAX_CONNS"   envDefault:"10"`
	SQLitePath  string `env:"SQLITE_PATH"    envDefault:"yogakitties.db"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled         bool          `env:"REDIS_ENABLED"          envDefault:"false"`
	Addr            string        `env:"REDIS_ADDR"             envDefault:"localhost:6379"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB"               envDefault:"0"`
	ConversationTTL time.Duration `env:"REDIS_CONVERSATION_TTL" envDefault:"24h"`
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	Enabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

	// Weekly reset: weekday list and HH:MM in the studio timezone.
	ResetDays string `env:"SCHEDULER_RESET_DAYS" envDefault:"tue,thu,sat"`
	ResetTime string `env:"SCHEDULER_RESET_TIME" envDefault:"00:10"`

	JobTimeout time.Duration `env:"SCHEDULER_JOB_TIMEOUT" envDefault:"2m"`
	LockTTL    time.Duration `env:"SCHEDULER_LOCK_TTL"    envDefault:"10m"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// HTTPConfig holds the health endpoint listener.
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	return load(env.Options{}, true)
}

// LoadFrom loads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars}, true)
}

// LoadWorker loads configuration for maintenance runs, which never talk to
// Telegram and so do not need a bot token.
func LoadWorker() (*Config, error) {
	return load(env.Options{}, false)
}

func load(opts env.Options, needToken bool) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Telegram.Mode = strings.ToLower(strings.TrimSpace(cfg.Telegram.Mode))
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if err := cfg.validate(needToken); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	// Validate has already checked the name.
	cfg.App.Location, _ = timeutil.LoadLocation(cfg.App.Timezone)

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(needToken bool) error {
	var errs []string

	if needToken && strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if _, err := timeutil.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, "APP_TIMEZONE: "+err.Error())
	}

	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			errs = append(errs, "TELEGRAM_WEBHOOK_URL is required in webhook mode")
		}
		if c.Telegram.WebhookSecret == "" {
			errs = append(errs, "TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
		}
	default:
		errs = append(errs, fmt.Sprintf("TELEGRAM_MODE must be %q or %q", ModePolling, ModeWebhook))
	}

	if c.Telegram.MaxConcurrency <= 0 {
		errs = append(errs, "TELEGRAM_MAX_CONCURRENCY must be positive")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER must be one of %s, %s, %s", DriverMemory, DriverPostgres, DriverSQLite))
	}

	if c.IsProduction() && c.Storage.Driver == DriverMemory {
		errs = append(errs, "STORAGE_DRIVER=memory is not allowed in production")
	}

	if c.Redis.Enabled && c.Redis.ConversationTTL <= 0 {
		errs = append(errs, "REDIS_CONVERSATION_TTL must be positive")
	}

	if _, err := timeutil.ParseWeekdays(c.Scheduler.ResetDays); err != nil {
		errs = append(errs, "SCHEDULER_RESET_DAYS: "+err.Error())
	}
	if _, _, err := timeutil.ParseClock(c.Scheduler.ResetTime); err != nil {
		errs = append(errs, "SCHEDULER_RESET_TIME: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// UseWebhook reports whether updates arrive by webhook.
func (c *Config) UseWebhook() bool {
	return c.Telegram.Mode == ModeWebhook
}
