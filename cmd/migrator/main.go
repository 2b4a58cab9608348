// Утилита для ручного наката миграций. API накатывает их сам при старте,
// бинарь нужен для CI и восстановления базы без запуска сервера.
package main

import (
	"log/slog"
	"os"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/logger"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/migrations"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("running migrations", slog.String("env", cfg.Env))

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		log.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()

	if err := migrations.Run(db.DB); err != nil {
		log.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	log.Info("migrations applied")
}
