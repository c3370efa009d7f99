package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	// Core
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"5"`

	// Server
	Port     int    `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Batch
	BatchToken            string `env:"BATCH_TOKEN"`
	ExpireScheduleEnabled bool   `env:"EXPIRE_SCHEDULE_ENABLED" envDefault:"true"`
	ExpireCron            string `env:"EXPIRE_CRON" envDefault:"0 3 * * *"`
	ExpireTimezone        string `env:"EXPIRE_TIMEZONE" envDefault:"Asia/Tokyo"`

	// Telegram logging
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	LogTelegramChatID   int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError       int    `env:"LOG_TOPIC_ERROR"`
	LogTopicExpireBatch int    `env:"LOG_TOPIC_EXPIRE_BATCH"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if _, err := time.LoadLocation(c.ExpireTimezone); err != nil {
		return fmt.Errorf("EXPIRE_TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.LogTelegramChatID != 0
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ExpireTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
