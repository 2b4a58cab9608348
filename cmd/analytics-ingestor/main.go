package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	analyticsingestor "github.com/edlatam/lms-platform/internal/app/analytics-ingestor"
	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting analytics ingestor", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := analyticsingestor.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize analytics ingestor app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("analytics ingestor stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("analytics ingestor stopped gracefully")
}
