package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	notificationsender "github.com/edlatam/lms-platform/internal/app/notification-sender"
	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting notification sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := notificationsender.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize notification sender app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("notification sender stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("notification sender stopped gracefully")
}
