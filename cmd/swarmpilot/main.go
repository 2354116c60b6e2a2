// SwarmPilot supervises concurrent autonomous coding agent sessions: it
// watches their events, asks a decision oracle what to do when a session
// blocks or finishes a turn, and keeps a human in the loop where wanted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/Strob0t/SwarmPilot/internal/adapter/discord"
	"github.com/Strob0t/SwarmPilot/internal/adapter/email"
	apihttp "github.com/Strob0t/SwarmPilot/internal/adapter/http"
	spnats "github.com/Strob0t/SwarmPilot/internal/adapter/nats"
	"github.com/Strob0t/SwarmPilot/internal/adapter/natskv"
	sporacle "github.com/Strob0t/SwarmPilot/internal/adapter/oracle"
	spotel "github.com/Strob0t/SwarmPilot/internal/adapter/otel"
	"github.com/Strob0t/SwarmPilot/internal/adapter/postgres"
	"github.com/Strob0t/SwarmPilot/internal/adapter/resthost"
	"github.com/Strob0t/SwarmPilot/internal/adapter/ristretto"
	"github.com/Strob0t/SwarmPilot/internal/adapter/slack"
	"github.com/Strob0t/SwarmPilot/internal/adapter/tiered"
	"github.com/Strob0t/SwarmPilot/internal/adapter/ws"
	"github.com/Strob0t/SwarmPilot/internal/config"
	"github.com/Strob0t/SwarmPilot/internal/domain/swarm"
	"github.com/Strob0t/SwarmPilot/internal/logger"
	"github.com/Strob0t/SwarmPilot/internal/middleware"
	"github.com/Strob0t/SwarmPilot/internal/port/cache"
	"github.com/Strob0t/SwarmPilot/internal/port/notifier"
	"github.com/Strob0t/SwarmPilot/internal/resilience"
	"github.com/Strob0t/SwarmPilot/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "swarmpilot",
		Short:         "Coordination engine for autonomous coding agent sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to YAML config file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, configPath)

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"supervision_level", cfg.Coordinator.SupervisionLevel,
		"oracle_url", cfg.Oracle.URL,
		"session_host_url", cfg.SessionHost.URL,
	)

	ctx := context.Background()

	// --- Observability ---
	shutdownOtel, err := spotel.Setup(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := spotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	var relay *spnats.Relay
	if cfg.NATS.URL != "" {
		relay, err = spnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = relay.Close() }()
	}

	local, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer local.Close()

	// With NATS available the notice throttle becomes a shared tier, so
	// replicas do not each send the same tool-running notice.
	var throttle cache.Cache = local
	if relay != nil {
		kv, err := relay.KeyValue(ctx, "swarmpilot-throttle", cfg.Coordinator.ToolNoticeInterval)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		throttle = tiered.New(local, natskv.New(kv), cfg.Coordinator.ToolNoticeInterval)
	}

	var notifiers []notifier.Notifier
	if cfg.Chat.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.NewNotifier(cfg.Chat.SlackWebhookURL))
	}
	if cfg.Chat.DiscordWebhookURL != "" {
		notifiers = append(notifiers, discord.NewNotifier(cfg.Chat.DiscordWebhookURL))
	}
	if cfg.Chat.SMTP.Host != "" {
		notifiers = append(notifiers, email.NewNotifier(email.SMTPConfig{
			Host:     cfg.Chat.SMTP.Host,
			Port:     cfg.Chat.SMTP.Port,
			From:     cfg.Chat.SMTP.From,
			Password: cfg.Chat.SMTP.Password,
			To:       cfg.Chat.SMTP.To,
		}))
	}
	notifySvc := service.NewNotificationService(notifiers, cfg.Chat.EnabledSources)
	slog.Info("chat notifiers configured", "count", notifySvc.NotifierCount())

	oracleClient := sporacle.NewClient(cfg.Oracle)
	oracleClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Coordinator ---
	coordinator := service.NewCoordinator(cfg.Coordinator, oracleClient, notifySvc, throttle)
	coordinator.SetMetrics(metrics)

	hub := ws.NewHub()
	defer hub.Close()
	coordinator.AddSink(hub)

	if relay != nil {
		coordinator.AddSink(relay)
		slog.Info("nats relay connected", "url", cfg.NATS.URL)
	}

	var audit *postgres.AuditStore
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		audit = postgres.NewAuditStore(pool)
		coordinator.SetAuditStore(audit)
		slog.Info("decision audit store enabled")
	}

	bridge := resthost.NewBridge(cfg.SessionHost)
	if err := coordinator.Start(bridge); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	defer coordinator.Stop()

	// --- HTTP ---
	handlers := &apihttp.Handlers{
		Coordinator:  coordinator,
		Host:         bridge,
		Hub:          hub,
		BreakerState: oracleClient.BreakerState,
	}
	if audit != nil {
		handlers.Audit = audit
	}

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := rl.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(rl.Handler)
	r.Use(apihttp.CORS(cfg.Server.CORSOrigin))
	r.Use(apihttp.SecurityHeaders)
	r.Use(apihttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(spotel.HTTPMiddleware(cfg.Logging.Service))

	apihttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		// No write timeout: the SSE and WebSocket streams are long-lived.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	// SIGHUP reloads the config file; only the supervision level is applied
	// live, everything else needs a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Warn("config reload failed", "error", err)
				continue
			}
			level := swarm.SupervisionLevel(holder.Get().Coordinator.SupervisionLevel)
			if err := coordinator.SetSupervisionLevel(level); err != nil {
				slog.Warn("config reload", "error", err)
			}
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
