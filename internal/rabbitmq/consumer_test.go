package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// openTestChannel поднимает брокер, открывает канал и объявляет очередь name.
// Соединение и контейнер закрываются при завершении теста.
func openTestChannel(ctx context.Context, t *testing.T, name string) *amqp.Channel {
	t.Helper()

	amqpURI, cleanup := startRabbitMQ(ctx, t)
	t.Cleanup(cleanup)

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	})

	ch, err := conn.Channel()
	require.NoError(t, err)

	_, err = ch.QueueDeclare(name, false, false, false, false, nil)
	require.NoError(t, err)
	return ch
}

func TestConsume_DeliversToHandler(t *testing.T) {
	skipIfNoBroker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch := openTestChannel(ctx, t, "consumer-test")

	var mu sync.Mutex
	var received []string
	handler := func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		return nil
	}

	require.NoError(t, Consume(ctx, ch, "consumer-test", handler, newNoopLogger()))

	for _, msg := range []string{"hola", "mundo"} {
		require.NoError(t, ch.Publish("", "consumer-test", false, false, amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(msg),
		}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 10*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"hola", "mundo"}, received)
}

func TestConsume_HandlerErrorTriggersNack(t *testing.T) {
	skipIfNoBroker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch := openTestChannel(ctx, t, "nack-test")

	// Обработчик всегда падает, сообщение должно вернуться в очередь.
	handler := func(_ []byte) error {
		return errors.New("fail")
	}
	require.NoError(t, Consume(ctx, ch, "nack-test", handler, newNoopLogger()))

	require.NoError(t, ch.Publish("", "nack-test", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte("bad"),
	}))

	deliveries, err := ch.Consume("nack-test", "verify-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		assert.Equal(t, "bad", string(d.Body))
	case <-time.After(10 * time.Second):
		t.Fatal("did not receive requeued message after nack")
	}
}
