// Package events публикует доменные события и уведомления в RabbitMQ.
// Публикация не блокирует бизнес-операцию: ошибка брокера пишется в лог,
// вызвавший сервис продолжает работу.
package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/rabbitmq"
)

// Publisher отправляет события аналитики и сообщения о уведомлениях
// через общий канал AMQP.
type Publisher struct {
	channel *amqp.Channel
	log     *slog.Logger
}

// NewPublisher создает издателя поверх открытого канала.
func NewPublisher(channel *amqp.Channel, log *slog.Logger) *Publisher {
	return &Publisher{channel: channel, log: log}
}

// Record публикует доменное событие в очередь аналитики.
// Пустые EventID и OccurredAt заполняются при публикации.
func (p *Publisher) Record(event models.Event) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	err := rabbitmq.Publish(p.channel, rabbitmq.Exchange, rabbitmq.AnalyticsKey, event)
	if err != nil {
		p.log.Error("failed to publish analytics event", sl.Err(err),
			slog.String("event_type", event.EventType))
	}
}

// Notify публикует сообщение в очередь уведомлений.
// Канал по умолчанию email.
func (p *Publisher) Notify(msg models.NotificationMessage) {
	if msg.Channel == "" {
		msg.Channel = models.NotificationChannelEmail
	}

	err := rabbitmq.Publish(p.channel, rabbitmq.Exchange, rabbitmq.NotificationsKey, msg)
	if err != nil {
		p.log.Error("failed to publish notification", sl.Err(err),
			slog.String("topic", msg.Topic))
	}
}
