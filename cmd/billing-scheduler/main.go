package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	billingscheduler "github.com/edlatam/lms-platform/internal/app/billing-scheduler"
	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting billing scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := billingscheduler.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize billing scheduler app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("billing scheduler stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("billing scheduler stopped gracefully")
}
