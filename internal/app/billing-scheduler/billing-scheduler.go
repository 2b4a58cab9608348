// Package billingscheduler собирает приложение планировщика биллинга.
package billingscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/events"
	"github.com/edlatam/lms-platform/internal/rabbitmq"
	billingservice "github.com/edlatam/lms-platform/internal/services/billing-scheduler"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// App представляет приложение планировщика биллинга.
type App struct {
	billingService *billingservice.BillingSchedulerService
	interval       time.Duration
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *repository.Storage
	logger         *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := events.NewPublisher(ch, logger)
	billingService := billingservice.NewBillingSchedulerService(db, publisher,
		cfg.InvoiceGrace, cfg.RenewalNoticeDays, logger)

	return &App{
		billingService: billingService,
		interval:       cfg.BillingInterval,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает циклы биллинга и напоминаний.
func (a *App) Run(ctx context.Context) error {
	go a.billingService.ProcessBillingCycle(ctx, a.interval)
	go a.billingService.SendRenewalNotices(ctx)
	go a.billingService.RemindOverdueDataRights(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down billing scheduler")

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
