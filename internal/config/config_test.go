package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
voyager:
  host: observatory.local
  port: 5951
  username: astro
  password: s3cret
  auto_reconnect: false
telegram:
  bot_token: "123:abc"
  chat_id: "-100200"
events:
  exposure_limit: 60
  send_image_msgs: true
  pin_preview: true
database:
  host: localhost
  name: voyager
  user: bot
  password: dbpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Voyager.Host != "observatory.local" {
		t.Errorf("Voyager.Host = %q, want %q", cfg.Voyager.Host, "observatory.local")
	}
	if cfg.Voyager.Port != 5951 {
		t.Errorf("Voyager.Port = %d, want 5951", cfg.Voyager.Port)
	}
	if cfg.Voyager.Reconnect() {
		t.Error("Voyager.Reconnect() = true, want false")
	}
	if cfg.Telegram.ChatID != "-100200" {
		t.Errorf("Telegram.ChatID = %q, want %q", cfg.Telegram.ChatID, "-100200")
	}
	if cfg.Events.ExposureLimit != 60 || !cfg.Events.SendImages || !cfg.Events.PinPreview {
		t.Errorf("Events = %+v", cfg.Events)
	}
	if !cfg.Database.Enabled() {
		t.Error("Database.Enabled() = false, want true")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_VOYAGER_HOST", "10.0.0.5")

	yaml := `
voyager:
  host: ${TEST_VOYAGER_HOST}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Voyager.Host != "10.0.0.5" {
		t.Errorf("Voyager.Host = %q, want %q", cfg.Voyager.Host, "10.0.0.5")
	}
}

func TestLoadWithDefaults_EnvOverrides(t *testing.T) {
	t.Setenv("VOYAGER_USERNAME", "env-user")
	t.Setenv("VOYAGER_PASSWORD", "env-pass")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("DATABASE_PASSWORD", "env-db")

	yaml := `
voyager:
  username: file-user
  password: file-pass
telegram:
  chat_id: "42"
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Voyager.Username != "env-user" || cfg.Voyager.Password != "env-pass" {
		t.Errorf("Voyager credentials = %q/%q, want env values", cfg.Voyager.Username, cfg.Voyager.Password)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("Telegram.BotToken = %q, want env-token", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Errorf("Telegram.ChatID = %q, want file value 42", cfg.Telegram.ChatID)
	}
	if cfg.Database.Password != "env-db" {
		t.Errorf("Database.Password = %q, want env-db", cfg.Database.Password)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "voyager:\n  host: localhost\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Voyager.Port != DefaultVoyagerPort {
		t.Errorf("Voyager.Port = %d, want default %d", cfg.Voyager.Port, DefaultVoyagerPort)
	}
	if !cfg.Voyager.Reconnect() {
		t.Error("Voyager.Reconnect() = false, want default true")
	}
	if cfg.Voyager.ReconnectBaseDelay != time.Second {
		t.Errorf("ReconnectBaseDelay = %v, want 1s", cfg.Voyager.ReconnectBaseDelay)
	}
	if cfg.Voyager.ReconnectMaxDelay != 512*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 512s", cfg.Voyager.ReconnectMaxDelay)
	}
	if cfg.Voyager.KeepAliveInterval != 5*time.Second {
		t.Errorf("KeepAliveInterval = %v, want 5s", cfg.Voyager.KeepAliveInterval)
	}
	if cfg.Events.CoalesceEvery != 30 {
		t.Errorf("CoalesceEvery = %d, want 30", cfg.Events.CoalesceEvery)
	}
	if len(cfg.Events.NotifyLogLevels) != 4 {
		t.Errorf("NotifyLogLevels = %v, want %v", cfg.Events.NotifyLogLevels, DefaultNotifyLogLevels)
	}
	if cfg.Database.Enabled() {
		t.Error("Database.Enabled() = true, want false without host")
	}
	if cfg.Metrics.Port != DefaultMetricsPort || cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("missing file err = %v", err)
	}

	path := writeTempFile(t, "voyager: [unclosed")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("bad yaml err = %v", err)
	}

	path = writeTempFile(t, "voyager:\n  port: 70000\n")
	if _, err := LoadAndValidate(path); err == nil || !strings.Contains(err.Error(), "validate config") {
		t.Errorf("invalid config err = %v", err)
	}
}

func validConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Voyager.Host = "" },
			wantErr: "voyager.host is required",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Voyager.Port = 0 },
			wantErr: "voyager.port must be between 1 and 65535, got 0",
		},
		{
			name:    "password without username",
			mutate:  func(c *Config) { c.Voyager.Password = "x" },
			wantErr: "voyager.username is required when a password is set",
		},
		{
			name: "max delay below base",
			mutate: func(c *Config) {
				c.Voyager.ReconnectBaseDelay = 10 * time.Second
				c.Voyager.ReconnectMaxDelay = time.Second
			},
			wantErr: "voyager.reconnect_max_delay (1s) cannot be less than reconnect_base_delay (10s)",
		},
		{
			name:    "telegram token without chat",
			mutate:  func(c *Config) { c.Telegram.BotToken = "t" },
			wantErr: "telegram.chat_id is required when bot_token is set",
		},
		{
			name:    "log level out of range",
			mutate:  func(c *Config) { c.Events.NotifyLogLevels = []int{3, 12} },
			wantErr: "events.notify_log_levels: level 12 out of range 1-9",
		},
		{
			name:    "database without password",
			mutate:  func(c *Config) { c.Database = DBConfig{Host: "db", Name: "v", User: "u", MaxConns: 1} },
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database = DBConfig{Host: "db", Name: "v", User: "u", Password: "p", MaxConns: 2, MinConns: 5}
			},
			wantErr: "database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
