// Package lmsapi собирает HTTP-приложение платформы: хранилище, кэш,
// брокер, бизнес-сервисы и маршруты.
package lmsapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/cache"
	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/events"
	"github.com/edlatam/lms-platform/internal/migrations"
	"github.com/edlatam/lms-platform/internal/rabbitmq"
	assessmentservice "github.com/edlatam/lms-platform/internal/services/assessment"
	authservice "github.com/edlatam/lms-platform/internal/services/auth"
	complianceservice "github.com/edlatam/lms-platform/internal/services/compliance"
	courseservice "github.com/edlatam/lms-platform/internal/services/course"
	enrollmentservice "github.com/edlatam/lms-platform/internal/services/enrollment"
	lessonservice "github.com/edlatam/lms-platform/internal/services/lesson"
	notificationservice "github.com/edlatam/lms-platform/internal/services/notification"
	orderservice "github.com/edlatam/lms-platform/internal/services/order"
	profileservice "github.com/edlatam/lms-platform/internal/services/profile"
	subscriptionservice "github.com/edlatam/lms-platform/internal/services/subscription"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// App представляет HTTP-приложение платформы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: подключает базу, накатывает миграции,
// поднимает Redis и RabbitMQ, создаёт сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	publisher := events.NewPublisher(ch, logger)

	authService := authservice.NewAuthService(db, publisher, logger)
	profileService := profileservice.NewProfileService(db, logger)
	courseService := courseservice.NewCourseService(db, cacheRedis, publisher, logger)
	lessonService := lessonservice.NewLessonService(db, logger)
	enrollmentService := enrollmentservice.NewEnrollmentService(db, publisher, logger)
	assessmentService := assessmentservice.NewAssessmentService(db, publisher, logger)
	orderService := orderservice.NewOrderService(db, publisher, logger)
	subscriptionService := subscriptionservice.NewSubscriptionService(db, publisher, logger)
	notificationService := notificationservice.NewNotificationService(db, logger)
	complianceService := complianceservice.NewComplianceService(db, publisher, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, cfg, logger,
		authService, profileService, courseService, lessonService,
		enrollmentService, assessmentService, orderService,
		subscriptionService, notificationService, complianceService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и завершает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		if cerr := a.cache.Close(); cerr != nil {
			a.logger.Error("failed to close cache", slog.Any("err", cerr))
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close database", slog.Any("err", cerr))
		}
		return err
	}
}
