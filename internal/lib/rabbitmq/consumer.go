package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// ErrDeliveriesClosed канал доставок закрыт брокером.
var ErrDeliveriesClosed = errors.New("deliveries channel closed")

// Consumer часть amqp.Channel, нужная для потребления.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, body []byte) error

// ConsumerMessage читает очередь и обрабатывает сообщения не более чем
// в concurrency горутинах. Блокируется до отмены ctx или закрытия канала
// доставок и дожидается обработчиков, которые уже запущены.
func ConsumerMessage(ctx context.Context, ch Consumer, queueName string, concurrency int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return consume(ctx, deliveries, concurrency, log, handler)
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func consume(ctx context.Context, deliveries <-chan amqp.Delivery, concurrency int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.consume"
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: %w", op, ErrDeliveriesClosed)
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					wg.Done()
				}()
				settle(ctx, d, d.Body, log, handler)
			}(d)
		}
	}
}

func settle(ctx context.Context, ack acknowledger, body []byte, log *slog.Logger, handler Handler) {
	if err := handler(ctx, body); err != nil {
		log.Warn("message handler failed, requeueing", sl.Err(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
