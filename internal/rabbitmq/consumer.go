package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/edlatam/lms-platform/internal/lib/sl"
)

// Предел одновременно обрабатываемых доставок одной очереди.
const maxInflight = 10

// Consume запускает чтение очереди queue и передает тело каждой
// доставки в handler. Доставки обрабатываются параллельно, не более
// maxInflight одновременно. Ошибка обработчика возвращает сообщение
// в очередь через Nack с повторной доставкой. Чтение останавливается
// при отмене ctx или закрытии канала.
func Consume(ctx context.Context, ch *amqp.Channel, queue string, handler func([]byte) error, log *slog.Logger) error {
	const op = "rabbitmq.Consume"

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, maxInflight)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						if nackErr := d.Nack(false, true); nackErr != nil {
							log.Error("failed to nack delivery", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack delivery", sl.Err(ackErr))
					}
				}(d)
			}
		}
	}()
	return nil
}
