package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "swarmpilot.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SWARMPILOT_PORT")
	setString(&cfg.Server.CORSOrigin, "SWARMPILOT_CORS_ORIGIN")

	setString(&cfg.Coordinator.SupervisionLevel, "SWARMPILOT_SUPERVISION_LEVEL")
	setDuration(&cfg.Coordinator.BufferWindow, "SWARMPILOT_BUFFER_WINDOW")
	setInt(&cfg.Coordinator.AutoResolveCeiling, "SWARMPILOT_AUTO_RESOLVE_CEILING")
	setInt(&cfg.Coordinator.HistoryLimit, "SWARMPILOT_HISTORY_LIMIT")
	setInt(&cfg.Coordinator.RecentOutputLines, "SWARMPILOT_RECENT_OUTPUT_LINES")
	setInt(&cfg.Coordinator.MaxConcurrentOracles, "SWARMPILOT_MAX_CONCURRENT_ORACLES")
	setDuration(&cfg.Coordinator.ToolNoticeInterval, "SWARMPILOT_TOOL_NOTICE_INTERVAL")
	setDuration(&cfg.Coordinator.IdleInterval, "SWARMPILOT_IDLE_INTERVAL")
	setDuration(&cfg.Coordinator.IdleThreshold, "SWARMPILOT_IDLE_THRESHOLD")
	setInt(&cfg.Coordinator.IdleMaxChecks, "SWARMPILOT_IDLE_MAX_CHECKS")

	setString(&cfg.SessionHost.URL, "SWARMPILOT_HOST_URL")
	setString(&cfg.SessionHost.Token, "SWARMPILOT_HOST_TOKEN")
	setDuration(&cfg.SessionHost.Timeout, "SWARMPILOT_HOST_TIMEOUT")

	setString(&cfg.Oracle.URL, "SWARMPILOT_ORACLE_URL")
	setString(&cfg.Oracle.APIKey, "SWARMPILOT_ORACLE_API_KEY")
	setString(&cfg.Oracle.Model, "SWARMPILOT_ORACLE_MODEL")
	setInt(&cfg.Oracle.MaxTokens, "SWARMPILOT_ORACLE_MAX_TOKENS")
	setFloat64(&cfg.Oracle.Temperature, "SWARMPILOT_ORACLE_TEMPERATURE")

	setString(&cfg.Chat.SlackWebhookURL, "SWARMPILOT_SLACK_WEBHOOK_URL")
	setString(&cfg.Chat.DiscordWebhookURL, "SWARMPILOT_DISCORD_WEBHOOK_URL")
	setString(&cfg.Chat.SMTP.Host, "SWARMPILOT_SMTP_HOST")
	setInt(&cfg.Chat.SMTP.Port, "SWARMPILOT_SMTP_PORT")
	setString(&cfg.Chat.SMTP.From, "SWARMPILOT_SMTP_FROM")
	setString(&cfg.Chat.SMTP.Password, "SWARMPILOT_SMTP_PASSWORD")
	setString(&cfg.Chat.SMTP.To, "SWARMPILOT_SMTP_TO")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SWARMPILOT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SWARMPILOT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SWARMPILOT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SWARMPILOT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SWARMPILOT_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.MaxSizeMB, "SWARMPILOT_CACHE_SIZE_MB")
	setFloat64(&cfg.Rate.RequestsPerSecond, "SWARMPILOT_RATE_RPS")
	setInt(&cfg.Rate.Burst, "SWARMPILOT_RATE_BURST")

	setString(&cfg.Logging.Level, "SWARMPILOT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SWARMPILOT_LOG_SERVICE")

	setInt(&cfg.Breaker.MaxFailures, "SWARMPILOT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "SWARMPILOT_BREAKER_TIMEOUT")

	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Otel.Insecure, "SWARMPILOT_OTEL_INSECURE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Oracle.URL == "" {
		return errors.New("oracle.url is required")
	}
	if cfg.SessionHost.URL == "" {
		return errors.New("session_host.url is required")
	}
	switch cfg.Coordinator.SupervisionLevel {
	case "autonomous", "confirm", "notify":
	default:
		return fmt.Errorf("coordinator.supervision_level %q is not autonomous, confirm, or notify", cfg.Coordinator.SupervisionLevel)
	}
	if cfg.Coordinator.BufferWindow <= 0 {
		return errors.New("coordinator.buffer_window must be > 0")
	}
	if cfg.Coordinator.AutoResolveCeiling < 1 {
		return errors.New("coordinator.auto_resolve_ceiling must be >= 1")
	}
	if cfg.Coordinator.MaxConcurrentOracles < 1 {
		return errors.New("coordinator.max_concurrent_oracles must be >= 1")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
