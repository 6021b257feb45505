package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Store       string `env:"STORE" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`

	TxTimeout         time.Duration `env:"TX_TIMEOUT" envDefault:"10s"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifySendTimeout time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"30s"`

	CronSpecReclassify string `env:"CRON_SPEC_RECLASSIFY"` // e.g. "0 3 * * *"; empty disables the sweep job

	TelegramToken   string `env:"TELEGRAM_TOKEN"` // empty disables the bot
	AdminTelegramID int64  `env:"ADMIN_TELEGRAM_ID"`

	SMTP SMTPConfig
}

// SMTPConfig configures the e-mail notice channel. It is disabled while Host or From is empty.
type SMTPConfig struct {
	Host          string `env:"SMTP_HOST"`
	Port          int    `env:"SMTP_PORT" envDefault:"587"`
	User          string `env:"SMTP_USER"`
	Password      string `env:"SMTP_PASS"`
	From          string `env:"SMTP_FROM"` // e.g. "Advising <no-reply@your.edu>"
	SkipTLSVerify bool   `env:"SMTP_SKIP_TLS_VERIFY"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid STORE %q: want %q or %q", cfg.Store, StorePostgres, StoreMemory)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	if cfg.TxTimeout <= 0 {
		return nil, fmt.Errorf("invalid TX_TIMEOUT %s", cfg.TxTimeout)
	}

	return cfg, nil
}

// IsProduction reports whether structured production defaults apply.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}
