package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the service.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	RatePerSec int    `mapstructure:"rate_per_sec"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig is used for notification de-duplication. When disabled an
// in-process ledger is used instead.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SchedulerConfig struct {
	// CheckAt is the HH:MM time of the daily due check.
	CheckAt string `mapstructure:"check_at"`
	// Timezone names the calendar used to decide what "today" is.
	Timezone string        `mapstructure:"timezone"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// RetryEvery re-runs the due check during the day so failed deliveries are
	// retried. Zero disables it.
	RetryEvery time.Duration `mapstructure:"retry_every"`
}

// Location resolves Timezone, falling back to the process local zone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file and SCHEDULER_* environment
// variables. Environment wins over the file, the file wins over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.rate_per_sec", 20)
	v.SetDefault("db.path", "scheduled_payments.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("scheduler.check_at", "09:00")
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.timeout", "2m")
	v.SetDefault("scheduler.retry_every", "1h")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCHEDULER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted. The Telegram token is only
// required by the serve command and is checked there.
func (c *Config) Validate() error {
	if _, _, err := ParseClock(c.Scheduler.CheckAt); err != nil {
		return fmt.Errorf("config: scheduler.check_at: %w", err)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("config: scheduler.timezone: %w", err)
	}
	if c.Scheduler.Timeout <= 0 {
		return fmt.Errorf("config: scheduler.timeout must be positive")
	}
	if c.Scheduler.RetryEvery < 0 {
		return fmt.Errorf("config: scheduler.retry_every must not be negative")
	}
	if c.Telegram.RatePerSec <= 0 {
		return fmt.Errorf("config: telegram.rate_per_sec must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: db.path is required")
	}
	return nil
}

// ParseClock parses an HH:MM string.
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}
