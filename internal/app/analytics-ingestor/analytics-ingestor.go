// Package analyticsingestor собирает приложение приёмника событий аналитики.
package analyticsingestor

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/rabbitmq"
	ingestorservice "github.com/edlatam/lms-platform/internal/services/analytics-ingestor"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// App представляет приложение приёмника событий.
type App struct {
	conn            *amqp.Connection
	ch              *amqp.Channel
	ingestorService *ingestorservice.AnalyticsIngestorService
	maintenance     time.Duration
	db              *repository.Storage
	logger          *slog.Logger
}

// New создает новый экземпляр приложения приёмника.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := []rabbitmq.QueueConfig{
		{QueueName: rabbitmq.AnalyticsQueue, RoutingKey: rabbitmq.AnalyticsKey},
	}
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	ingestorService := ingestorservice.NewAnalyticsIngestorService(db,
		cfg.RetentionMonths, logger)

	return &App{
		conn:            conn,
		ch:              ch,
		ingestorService: ingestorService,
		maintenance:     cfg.MaintenanceInterval,
		db:              db,
		logger:          logger,
	}, nil
}

// Run запускает потребителя очереди событий и обслуживание партиций.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.Consume(ctx, a.ch, rabbitmq.AnalyticsQueue, a.ingestorService.HandleMessage, a.logger)
	if err != nil {
		a.logger.Error("failed to start analytics consumer", slog.Any("err", err))
		return err
	}

	go a.ingestorService.RunPartitionMaintenance(ctx, a.maintenance)

	<-ctx.Done()
	a.logger.Info("analytics ingestor shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}

	return nil
}
