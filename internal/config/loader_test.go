package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8090" {
		t.Errorf("expected port 8090, got %s", cfg.Server.Port)
	}
	if cfg.Coordinator.BufferWindow != 2*time.Second {
		t.Errorf("expected buffer window 2s, got %v", cfg.Coordinator.BufferWindow)
	}
	if cfg.Coordinator.AutoResolveCeiling != 10 {
		t.Errorf("expected ceiling 10, got %d", cfg.Coordinator.AutoResolveCeiling)
	}
	if cfg.Coordinator.SupervisionLevel != "autonomous" {
		t.Errorf("expected autonomous, got %s", cfg.Coordinator.SupervisionLevel)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	// Optional adapters are off until configured.
	if cfg.Postgres.DSN != "" {
		t.Errorf("expected empty DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected empty NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
coordinator:
  supervision_level: "confirm"
  auto_resolve_ceiling: 5
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Coordinator.SupervisionLevel != "confirm" {
		t.Errorf("expected confirm, got %s", cfg.Coordinator.SupervisionLevel)
	}
	if cfg.Coordinator.AutoResolveCeiling != 5 {
		t.Errorf("expected ceiling 5, got %d", cfg.Coordinator.AutoResolveCeiling)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Coordinator.BufferWindow != 2*time.Second {
		t.Errorf("expected default buffer window, got %v", cfg.Coordinator.BufferWindow)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("SWARMPILOT_PORT", "7071")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("SWARMPILOT_SUPERVISION_LEVEL", "notify")
	t.Setenv("SWARMPILOT_BUFFER_WINDOW", "500ms")
	t.Setenv("SWARMPILOT_LOG_LEVEL", "warn")
	t.Setenv("SWARMPILOT_BREAKER_TIMEOUT", "1m")

	loadEnv(&cfg)

	if cfg.Server.Port != "7071" {
		t.Errorf("expected port 7071, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Coordinator.SupervisionLevel != "notify" {
		t.Errorf("expected notify, got %s", cfg.Coordinator.SupervisionLevel)
	}
	if cfg.Coordinator.BufferWindow != 500*time.Millisecond {
		t.Errorf("expected buffer window 500ms, got %v", cfg.Coordinator.BufferWindow)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty oracle URL",
			modify: func(c *Config) { c.Oracle.URL = "" },
			errMsg: "oracle.url is required",
		},
		{
			name:   "empty session host URL",
			modify: func(c *Config) { c.SessionHost.URL = "" },
			errMsg: "session_host.url is required",
		},
		{
			name:   "bad supervision level",
			modify: func(c *Config) { c.Coordinator.SupervisionLevel = "yolo" },
			errMsg: `coordinator.supervision_level "yolo" is not autonomous, confirm, or notify`,
		},
		{
			name:   "zero buffer window",
			modify: func(c *Config) { c.Coordinator.BufferWindow = 0 },
			errMsg: "coordinator.buffer_window must be > 0",
		},
		{
			name:   "zero ceiling",
			modify: func(c *Config) { c.Coordinator.AutoResolveCeiling = 0 },
			errMsg: "coordinator.auto_resolve_ceiling must be >= 1",
		},
		{
			name: "zero max_conns with DSN set",
			modify: func(c *Config) {
				c.Postgres.DSN = "postgres://x"
				c.Postgres.MaxConns = 0
			},
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
