package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrWong99/concatsynth/internal/config"
	"github.com/MrWong99/concatsynth/internal/observe"
	"github.com/MrWong99/concatsynth/internal/server"
)

// serve builds the corpus, serves it over HTTP and rebuilds it whenever the
// corpus section of the config file changes.
func serve(ctx context.Context, configPath string, cfg *config.Config, level *slog.LevelVar) int {
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()
	opts := []server.Option{server.WithMetrics(metrics)}
	if cfg.Telemetry.Metrics {
		opts = append(opts, server.WithMetricsHandler(observe.MetricsHandler(nil)))
	}
	srv := server.New(opts...)

	c, err := buildCorpus(ctx, cfg.Corpus, metrics)
	if err != nil {
		slog.Error("failed to build corpus", "err", err)
		return 1
	}
	srv.Swap(c)

	// ── Hot reload ────────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(configPath, func(change config.Change) {
		d := change.Diff
		if d.LogLevelChanged {
			level.Set(d.NewLogLevel.Level())
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		for _, field := range d.RestartRequired {
			slog.Warn("config change takes effect after restart", "field", field)
		}
		if !d.CorpusChanged {
			return
		}
		c, err := buildCorpus(ctx, change.New.Corpus, metrics)
		if err != nil {
			slog.Error("corpus rebuild failed, keeping previous corpus", "err", err)
			return
		}
		srv.Swap(c)
		slog.Info("corpus reloaded", "utterances", c.Len())
	})
	if err != nil {
		slog.Error("failed to watch config", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── HTTP server ───────────────────────────────────────────────────────────
	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	slog.Info("server ready", "listen_addr", cfg.Server.ListenAddr, "utterances", c.Len())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
