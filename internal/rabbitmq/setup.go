package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange единственный обменник платформы, direct и durable.
const Exchange = "lms"

// Очереди и ключи маршрутизации воркеров.
const (
	AnalyticsQueue      = "analytics.events"
	AnalyticsKey        = "analytics.event"
	NotificationsQueue  = "notifications.send"
	NotificationsKey    = "notification.send"
)

// QueueConfig связывает очередь с ключом маршрутизации в обменнике.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetQueues возвращает полную топологию очередей платформы.
// API объявляет её целиком при старте, воркеры могут объявлять
// только свою очередь.
func GetQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: AnalyticsQueue, RoutingKey: AnalyticsKey},
		{QueueName: NotificationsQueue, RoutingKey: NotificationsKey},
	}
}

// SetupChannel открывает канал, объявляет обменник и переданные очереди
// с привязками. Объявления идемпотентны, повторный вызов на живом
// брокере ничего не меняет.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
