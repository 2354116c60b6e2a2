// Package logger provides structured logging setup for SwarmPilot.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/SwarmPilot/internal/config"
)

// New builds the process logger: JSON records on stdout, tagged with the
// service name so multi-replica deployments stay distinguishable.
func New(cfg config.Logging) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler).With("service", cfg.Service)
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
