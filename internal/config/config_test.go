package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"equilibria/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("EQ_DB_PATH", "test.db")

	yamlContent := `
database:
  path: "${EQ_DB_PATH}"
api:
  http:
    port: 9000
chat:
  seed: 7
practitioners:
  - name: "Dra. Helena Moura"
    available_days: "segunda a sexta"
    available_hours: "09:00-18:00"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.API.HTTP.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Chat.Seed != 7 {
		t.Errorf("expected chat seed 7, got %d", cfg.Chat.Seed)
	}
	if len(cfg.Practitioners) != 1 || cfg.Practitioners[0].AvailableHours != "09:00-18:00" {
		t.Errorf("expected 1 practitioner seed, got %+v", cfg.Practitioners)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database:      DatabaseConfig{Path: "path"},
				API:           APIConfig{HTTP: APIHTTPConfig{Port: 8080}},
				Practitioners: []PractitionerSeed{{Name: "A"}},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				API: APIConfig{HTTP: APIHTTPConfig{Port: 8080}},
			},
			wantErr: true,
		},
		{
			name: "bad port",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API:      APIConfig{HTTP: APIHTTPConfig{Port: 70000}},
			},
			wantErr: true,
		},
		{
			name: "auth without keys",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				API: APIConfig{
					HTTP: APIHTTPConfig{Port: 8080},
					Auth: APIAuthConfig{Enabled: true},
				},
			},
			wantErr: true,
		},
		{
			name: "duplicate practitioner",
			cfg: Config{
				Database:      DatabaseConfig{Path: "path"},
				API:           APIConfig{HTTP: APIHTTPConfig{Port: 8080}},
				Practitioners: []PractitionerSeed{{Name: "A"}, {Name: " A "}},
			},
			wantErr: true,
		},
		{
			name: "bad reminder time",
			cfg: Config{
				Database:  DatabaseConfig{Path: "path"},
				API:       APIConfig{HTTP: APIHTTPConfig{Port: 8080}},
				Reminders: ReminderConfig{Enabled: true, Time: "9h"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.API.HTTP.IdentityHeader != "X-User-ID" {
		t.Errorf("expected identity header X-User-ID, got %s", cfg.API.HTTP.IdentityHeader)
	}
	if cfg.Booking.UserRateLimit != models.RateLimitRequests {
		t.Errorf("expected user rate limit %d, got %d", models.RateLimitRequests, cfg.Booking.UserRateLimit)
	}
	if cfg.Chat.LogTimeout != 5*time.Second {
		t.Errorf("expected chat log timeout 5s, got %s", cfg.Chat.LogTimeout)
	}
	if cfg.Redis.CacheTTL != models.DefaultCacheTTL {
		t.Errorf("expected cache ttl %d, got %d", models.DefaultCacheTTL, cfg.Redis.CacheTTL)
	}
	if cfg.Reminders.Time != "09:00" || cfg.Reminders.MaxRetries != 3 {
		t.Errorf("unexpected reminder defaults %q %d", cfg.Reminders.Time, cfg.Reminders.MaxRetries)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" || cfg.API.Auth.HeaderExtra != "x-api-extra" {
		t.Errorf("unexpected auth headers %q %q", cfg.API.Auth.HeaderAPIKey, cfg.API.Auth.HeaderExtra)
	}
}

func TestValidatePractitioners(t *testing.T) {
	tests := []struct {
		name    string
		seeds   []PractitionerSeed
		wantErr bool
	}{
		{name: "valid", seeds: []PractitionerSeed{{Name: "A"}, {Name: "B"}}, wantErr: false},
		{name: "empty list", seeds: nil, wantErr: false},
		{name: "blank name", seeds: []PractitionerSeed{{Name: "  "}}, wantErr: true},
		{name: "duplicate", seeds: []PractitionerSeed{{Name: "A"}, {Name: "A"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePractitioners(tt.seeds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePractitioners() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
