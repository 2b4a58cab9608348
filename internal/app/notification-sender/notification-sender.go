// Package notificationsender собирает приложение отправителя уведомлений.
package notificationsender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/lib/smtp"
	"github.com/edlatam/lms-platform/internal/rabbitmq"
	senderservice "github.com/edlatam/lms-platform/internal/services/notification-sender"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// App представляет приложение отправителя уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.NotificationSenderService
	db            *repository.Storage
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправителя.
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
		{QueueName: rabbitmq.NotificationsQueue, RoutingKey: rabbitmq.NotificationsKey},
	}
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewNotificationSenderService(db, transport, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		db:            db,
		logger:        logger,
	}, nil
}

// Run запускает потребителя очереди уведомлений.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.Consume(ctx, a.ch, rabbitmq.NotificationsQueue, a.senderService.HandleMessage, a.logger)
	if err != nil {
		a.logger.Error("failed to start notifications consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notification sender shutting down gracefully")

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
