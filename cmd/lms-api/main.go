// Package main LMS Platform API
//
// @title           LMS Platform API
// @version         1.0
// @description     API учебной платформы: каталог курсов, записи, заказы, подписки и тесты
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-User-ID
// @description Идентификатор пользователя, проставляется шлюзом после проверки сессии.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	lmsapi "github.com/edlatam/lms-platform/internal/app/lms-api"
	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting lms-api", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := lmsapi.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("lms-api stopped gracefully")
}
