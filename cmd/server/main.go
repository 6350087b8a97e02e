package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"groomdesk/internal/adapters/api"
	web "groomdesk/internal/adapters/http"
	"groomdesk/internal/adapters/http/perf"
	"groomdesk/internal/adapters/notify"
	"groomdesk/internal/adapters/storage"
	"groomdesk/internal/adapters/storage/localstate"
	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/config"
	"groomdesk/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler).With("service", "groomdesk", "version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "groomdesk",
		Version:      version,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.SampleRatio,
	})
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Performance instrumentation: requests, queries and API calls share one ring buffer
	collector := perf.NewCollector(perf.DefaultRingSize)
	local := localstate.NewSQLiteStore(storage.NewTimedDB(db, collector, cfg.SlowQueryMs))
	if err := orchestrators.EnsureDefaultTemplates(ctx, local); err != nil {
		log.Fatalf("failed to seed alimtalk templates: %v", err)
	}

	client := api.New(api.Options{
		BaseURL:    cfg.BaseURL(),
		Timeout:    cfg.APITimeout,
		Collector:  collector,
		SlowCallMs: cfg.SlowAPICallMs,
	})

	var sender notify.Sender = notify.NewNoopSender()
	if cfg.ResendKey != "" {
		sender = notify.NewRelaySender(cfg.ResendKey, cfg.NotifyFrom, cfg.NotifyRelayTo...)
		slog.Info("notify_sender_configured", "sender", "relay", "relay_to", len(cfg.NotifyRelayTo))
	} else if cfg.IsProduction() {
		slog.Warn("notify_sender_disabled", "reason", "GROOMDESK_RESEND_KEY is not set")
	}

	web.RateLimitPerSecond = cfg.RateLimit
	mux := web.NewMux(&web.Deps{
		API:            client,
		Local:          local,
		Sender:         sender,
		SearchMinChars: cfg.SearchMinChars,
	}, web.Options{
		StaticDir:     cfg.StaticDir,
		CSRFKey:       cfg.CSRFKey,
		SecureCookies: cfg.IsProduction(),
		SlowRequestMs: cfg.SlowRequestMs,
		Collector:     collector,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(mux, "groomdesk"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		slog.Info("server_starting", "addr", cfg.Addr, "env", cfg.Env, "api", cfg.BaseURL(), "schema", storage.LatestSchemaVersion())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry_shutdown_failed", "error", err)
	}
}
