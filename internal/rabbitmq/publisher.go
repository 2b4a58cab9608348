package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// Publish сериализует msg в JSON и отправляет его в обменник exchange
// с ключом маршрутизации key в постоянном режиме доставки.
func Publish(ch *amqp.Channel, exchange, key string, msg any) error {
	const op = "rabbitmq.Publish"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := ch.Publish(exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
