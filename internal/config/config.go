// Package config loads application configuration from a YAML file and
// WB_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	Auth          AuthConfig          `koanf:"auth"`
	Notifications NotificationsConfig `koanf:"notifications"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	CORS          CORSConfig          `koanf:"cors"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	Migrate         bool          `koanf:"migrate"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig contains credentials for the operational surfaces.
// CronSecret is the bearer token the external scheduler presents on the
// queue trigger endpoints. AdminKeyHash is a bcrypt hash of the admin API
// key used on policy and stats endpoints.
type AuthConfig struct {
	CronSecret   string `koanf:"cron_secret" validate:"required"`
	AdminKeyHash string `koanf:"admin_key_hash" validate:"required"`
}

// NotificationsConfig contains queue and sender settings.
type NotificationsConfig struct {
	BaseURL          string         `koanf:"base_url"`
	DefaultBatchSize int            `koanf:"default_batch_size"`
	SendTimeout      time.Duration  `koanf:"send_timeout"`
	RetentionDays    int            `koanf:"retention_days"`
	Telegram         TelegramConfig `koanf:"telegram"`
	WhatsApp         WhatsAppConfig `koanf:"whatsapp"`
	Email            EmailConfig    `koanf:"email"`
}

// TelegramConfig contains Telegram Bot API sender settings.
type TelegramConfig struct {
	Enabled   bool    `koanf:"enabled"`
	BotToken  string  `koanf:"bot_token"`
	RateLimit float64 `koanf:"rate_limit"`
}

// WhatsAppConfig contains Fonnte API sender settings.
type WhatsAppConfig struct {
	Enabled  bool   `koanf:"enabled"`
	APIToken string `koanf:"api_token"`
	APIURL   string `koanf:"api_url"`
}

// EmailConfig contains SMTP sender settings.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// RateLimitConfig contains guard settings that are not part of the
// admin-managed policy (those live in the database).
type RateLimitConfig struct {
	PolicyCacheTTL time.Duration `koanf:"policy_cache_ttl"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the configuration defaults applied before file and
// environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			Migrate:         true,
			MigrationsPath:  "file://migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Notifications: NotificationsConfig{
			DefaultBatchSize: 10,
			SendTimeout:      15 * time.Second,
			RetentionDays:    7,
			Telegram: TelegramConfig{
				RateLimit: 25,
			},
			WhatsApp: WhatsAppConfig{
				APIURL: "https://api.fonnte.com/send",
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
		RateLimit: RateLimitConfig{
			PolicyCacheTTL: 5 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads configuration from the optional YAML file at path, then applies
// WB_ environment overrides (WB_DATABASE__URL maps to database.url).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("WB_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "WB_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Notifications.Telegram.Enabled && c.Notifications.Telegram.BotToken == "" {
		return fmt.Errorf("invalid config: telegram enabled without bot_token")
	}
	if c.Notifications.WhatsApp.Enabled && c.Notifications.WhatsApp.APIToken == "" {
		return fmt.Errorf("invalid config: whatsapp enabled without api_token")
	}
	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTPHost == "" {
			return fmt.Errorf("invalid config: email enabled without smtp_host")
		}
		if c.Notifications.Email.FromAddress == "" {
			return fmt.Errorf("invalid config: email enabled without from_address")
		}
	}
	if c.Notifications.DefaultBatchSize <= 0 {
		return fmt.Errorf("invalid config: default_batch_size must be positive")
	}
	if c.Notifications.RetentionDays <= 0 {
		return fmt.Errorf("invalid config: retention_days must be positive")
	}

	return nil
}
