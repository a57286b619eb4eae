package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pidwatch/pidwatch/internal/api"
	"github.com/pidwatch/pidwatch/internal/checker"
	"github.com/pidwatch/pidwatch/internal/config"
	"github.com/pidwatch/pidwatch/internal/fifo"
	"github.com/pidwatch/pidwatch/internal/metrics"
	"github.com/pidwatch/pidwatch/internal/notify"
	"github.com/pidwatch/pidwatch/internal/reactor"
	"github.com/pidwatch/pidwatch/internal/registry"
	"github.com/pidwatch/pidwatch/internal/stream"
)

const shutdownGrace = 3 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pidwatchd starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"fifo", cfg.Watch.FIFOPath,
		"check_interval", cfg.Watch.CheckInterval,
		"stale_after", cfg.Watch.StaleAfter,
		"http_port", cfg.Watch.HTTPPort,
		"webhooks", len(cfg.Notify.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := fifo.Ensure(cfg.Watch.FIFOPath); err != nil {
		slog.Error("announcement channel unusable", "path", cfg.Watch.FIFOPath, "err", err)
		os.Exit(1)
	}
	ch, err := fifo.Open(cfg.Watch.FIFOPath)
	if err != nil {
		slog.Error("failed to open announcement channel", "path", cfg.Watch.FIFOPath, "err", err)
		os.Exit(1)
	}

	reg := registry.New()
	met := metrics.New(prometheus.DefaultRegisterer, reg)
	webhooks := notify.NewWebhooks(cfg.Notify.Webhooks)

	// Liveness checker — probes silent PIDs once per interval.
	chk := checker.New(reg, webhooks, cfg.Watch.CheckInterval, cfg.Watch.StaleAfter, met)
	chkDone := make(chan struct{})
	go func() {
		chk.Run(ctx)
		close(chkDone)
	}()

	// Hot-reload webhook targets on config file changes.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			webhooks.SetTargets(next.Notify.Webhooks)
			slog.Info("webhook targets reloaded", "webhooks", len(next.Notify.Webhooks))
		})
		if err != nil {
			slog.Warn("config watcher stopped", "err", err)
		}
	}()

	// Optional HTTP surface: operator API, websocket stream, Prometheus.
	var httpSrv *http.Server
	if cfg.Watch.HTTPPort > 0 {
		handler := api.New(reg, chk, cfg.Watch.StaleAfter)
		hub := stream.New(handler, cfg.Watch.StreamInterval)
		go hub.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/api/", handler)
		mux.Handle("/ws/stream", hub)
		mux.Handle("/metrics", promhttp.Handler())

		httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Watch.HTTPPort),
			Handler: mux,
		}
		go func() {
			slog.Info("HTTP server listening", "port", cfg.Watch.HTTPPort)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	// The reactor owns the channel from here; it closes it on exit.
	reactorErr := make(chan error, 1)
	go func() {
		reactorErr <- reactor.New(ch, reg, met).Run(ctx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("pidwatchd shutting down")
		select {
		case err := <-reactorErr:
			if err != nil {
				slog.Error("reactor stopped with error", "err", err)
				exitCode = 1
			}
		case <-time.After(shutdownGrace):
			slog.Warn("reactor did not stop within grace period")
			exitCode = 1
		}
	case err := <-reactorErr:
		// The reactor only returns before cancellation on an unrecoverable
		// channel failure.
		slog.Error("reactor failed", "err", err)
		exitCode = 1
		cancel()
	}

	// Let an in-flight check cycle (and its alert POST) finish.
	select {
	case <-chkDone:
	case <-time.After(shutdownGrace):
		slog.Warn("checker did not stop within grace period")
		exitCode = 1
	}

	if httpSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
		shutdownCancel()
	}

	slog.Info("pidwatchd stopped", "tracked_pids", reg.Count())
	os.Exit(exitCode)
}
