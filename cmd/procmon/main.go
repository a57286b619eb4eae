package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pidwatch/pidwatch/internal/config"
	"github.com/pidwatch/pidwatch/internal/monitor"
	"github.com/pidwatch/pidwatch/internal/notify"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "", "event source: supervisor | systemd (overrides config)")
	service := flag.String("service", "", "systemd unit to watch (overrides config)")
	flag.Parse()

	// supervisord owns stdout in supervisor mode (it is the protocol
	// channel), so logs go to stderr for both modes.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("procmon starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Monitor.Mode = *mode
	}
	if *service != "" {
		cfg.Monitor.Service = *service
	}

	slog.Info("config loaded",
		"mode", cfg.Monitor.Mode,
		"service", cfg.Monitor.Service,
		"webhooks", len(cfg.Notify.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var n notify.Notifier = notify.NewWebhooks(cfg.Notify.Webhooks)

	runner, err := monitor.New(monitor.Mode(cfg.Monitor.Mode), n, cfg.Monitor)
	if err != nil {
		slog.Error("cannot build monitor", "err", err)
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		slog.Error("monitor stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("procmon stopped")
}
