// Package config provides hierarchical configuration loading for SwarmPilot.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the SwarmPilot coordinator.
type Config struct {
	Server      Server      `yaml:"server"`
	Coordinator Coordinator `yaml:"coordinator"`
	SessionHost SessionHost `yaml:"session_host"`
	Oracle      Oracle      `yaml:"oracle"`
	Chat        Chat        `yaml:"chat"`
	Postgres    Postgres    `yaml:"postgres"`
	NATS        NATS        `yaml:"nats"`
	Cache       Cache       `yaml:"cache"`
	Rate        Rate        `yaml:"rate"`
	Logging     Logging     `yaml:"logging"`
	Breaker     Breaker     `yaml:"breaker"`
	Otel        Otel        `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Coordinator holds session coordination engine configuration.
type Coordinator struct {
	SupervisionLevel     string        `yaml:"supervision_level"`      // initial level: autonomous | confirm | notify
	BufferWindow         time.Duration `yaml:"buffer_window"`          // how long unregistered-session events are held
	AutoResolveCeiling   int           `yaml:"auto_resolve_ceiling"`   // consecutive auto-resolutions before forced escalation
	HistoryLimit         int           `yaml:"history_limit"`          // decisions fed back into oracle prompts
	RecentOutputLines    int           `yaml:"recent_output_lines"`    // lines fetched from the session host
	MaxConcurrentOracles int           `yaml:"max_concurrent_oracles"` // process-wide bound on in-flight oracle calls
	ToolNoticeInterval   time.Duration `yaml:"tool_notice_interval"`   // per-session throttle for tool_running chat notices
	SubscriberBuffer     int           `yaml:"subscriber_buffer"`      // event buffer per broadcast subscriber
	IdleInterval         time.Duration `yaml:"idle_interval"`          // idle watchdog scan period; 0 disables
	IdleThreshold        time.Duration `yaml:"idle_threshold"`         // inactivity before a session counts as idle
	IdleMaxChecks        int           `yaml:"idle_max_checks"`        // idle scans before escalating
}

// SessionHost holds the connection to the process hosting agent sessions.
// Steering calls go out to its base URL; its events arrive on the
// /api/v1/host/events webhook.
type SessionHost struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"` // shared bearer token, empty disables auth
	Timeout time.Duration `yaml:"timeout"`
}

// Oracle holds decision oracle (LLM proxy) configuration.
type Oracle struct {
	URL         string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Chat holds user-facing chat sink configuration. Providers with empty
// connection settings are skipped.
type Chat struct {
	SlackWebhookURL   string   `yaml:"slack_webhook_url"`
	DiscordWebhookURL string   `yaml:"discord_webhook_url"`
	SMTP              SMTP     `yaml:"smtp"`
	EnabledSources    []string `yaml:"enabled_sources"` // empty = all
}

// SMTP holds email notifier configuration. An empty host disables it.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
}

// Postgres holds the optional decision audit store configuration.
// An empty DSN disables the audit store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the optional JetStream event relay configuration.
// An empty URL disables the relay.
type NATS struct {
	URL string `yaml:"url"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	MaxSizeMB int64 `yaml:"max_size_mb"`
}

// Rate holds per-client API rate limiting configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Breaker holds circuit breaker configuration for the oracle client.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Otel holds OpenTelemetry export configuration.
// An empty endpoint disables exporters.
type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8090",
			CORSOrigin: "http://localhost:3000",
		},
		Coordinator: Coordinator{
			SupervisionLevel:     "autonomous",
			BufferWindow:         2 * time.Second,
			AutoResolveCeiling:   10,
			HistoryLimit:         5,
			RecentOutputLines:    50,
			MaxConcurrentOracles: 4,
			ToolNoticeInterval:   30 * time.Second,
			SubscriberBuffer:     64,
			IdleInterval:         time.Minute,
			IdleThreshold:        5 * time.Minute,
			IdleMaxChecks:        3,
		},
		SessionHost: SessionHost{
			URL:     "http://localhost:7070",
			Timeout: 10 * time.Second,
		},
		Oracle: Oracle{
			URL:         "http://localhost:4000",
			Model:       "openai/gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Chat: Chat{
			SMTP: SMTP{Port: 587},
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Cache: Cache{
			MaxSizeMB: 16,
		},
		Rate: Rate{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Logging: Logging{
			Level:   "info",
			Service: "swarmpilot",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}
