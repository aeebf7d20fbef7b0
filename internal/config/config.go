package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"equilibria/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Backup        BackupConfig       `yaml:"backup"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	API           APIConfig          `yaml:"api"`
	Booking       BookingConfig      `yaml:"booking"`
	Chat          ChatConfig         `yaml:"chat"`
	Exports       ExportConfig       `yaml:"exports"`
	Reminders     ReminderConfig     `yaml:"reminders"`
	Practitioners []PractitionerSeed `yaml:"practitioners"`
}

// PractitionerSeed is a practitioner registered at startup if no
// practitioner with the same name exists yet.
type PractitionerSeed struct {
	Name           string `yaml:"name"`
	AvailableDays  string `yaml:"available_days"`
	AvailableHours string `yaml:"available_hours"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	IdentityHeader  string        `yaml:"identity_header"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BookingConfig bounds how often one user may hit the booking and chat
// endpoints.
type BookingConfig struct {
	UserRateLimit  int `yaml:"user_rate_limit"`
	UserRateWindow int `yaml:"user_rate_window"`
}

type ChatConfig struct {
	// Seed fixes the fallback reply sequence; zero seeds from the clock.
	Seed       int64         `yaml:"seed"`
	LogTimeout time.Duration `yaml:"log_timeout"`
}

// ReminderConfig drives the daily reminder for next-day appointments.
// Time is the local wall clock time, HH:MM.
type ReminderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Time       string `yaml:"time"`
	MaxRetries int    `yaml:"max_retries"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	CacheTTL int    `yaml:"cache_ttl"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.HTTP.Port <= 0 || c.API.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.API.HTTP.Port)
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}

	if c.Reminders.Enabled {
		if _, err := time.Parse(models.TimeLayout, c.Reminders.Time); err != nil {
			return fmt.Errorf("invalid reminder time %q: expected HH:MM", c.Reminders.Time)
		}
	}

	return ValidatePractitioners(c.Practitioners)
}

func ValidatePractitioners(seeds []PractitionerSeed) error {
	names := make(map[string]bool)
	for i, p := range seeds {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("practitioner #%d has an empty name", i+1)
		}
		if names[name] {
			return fmt.Errorf("duplicate practitioner name found: %s", name)
		}
		names[name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "equilibria"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.API.HTTP.ShutdownTimeout == 0 {
		c.API.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.API.HTTP.IdentityHeader == "" {
		c.API.HTTP.IdentityHeader = "X-User-ID"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = models.DefaultCacheTTL
	}

	if c.Booking.UserRateLimit == 0 {
		c.Booking.UserRateLimit = models.RateLimitRequests
	}
	if c.Booking.UserRateWindow == 0 {
		c.Booking.UserRateWindow = models.RateLimitWindow
	}
	if c.Chat.LogTimeout == 0 {
		c.Chat.LogTimeout = models.ExchangeLogTimeout * time.Second
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
	if c.Reminders.Time == "" {
		c.Reminders.Time = "09:00"
	}
	if c.Reminders.MaxRetries == 0 {
		c.Reminders.MaxRetries = 3
	}
}
