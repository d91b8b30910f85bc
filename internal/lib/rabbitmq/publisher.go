package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Publisher часть amqp.Channel, нужная для публикации.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SyncPublisher сериализует публикации в один канал: amqp.Channel
// не допускает конкурентный Publish.
type SyncPublisher struct {
	mu sync.Mutex
	ch Publisher
}

// NewSyncPublisher оборачивает канал.
func NewSyncPublisher(ch Publisher) *SyncPublisher {
	return &SyncPublisher{ch: ch}
}

func (p *SyncPublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Publish(exchange, key, mandatory, immediate, msg)
}

// PublishMessage публикует сообщение в JSON с persistent доставкой.
func PublishMessage(ch Publisher, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	return publish(op, ch, exchange, routingkey, message, 0)
}

// PublishDelayed публикует сообщение с TTL delay. Используется для очередей
// с dead-letter обменником, чтобы вернуть сообщение через delay.
func PublishDelayed(ch Publisher, exchange string, routingkey string, message any, delay time.Duration) error {
	const op = "rabbitmq.PublishDelayed"
	return publish(op, ch, exchange, routingkey, message, delay)
}

func publish(op string, ch Publisher, exchange, routingkey string, message any, delay time.Duration) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	}
	if delay > 0 {
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	}

	if err := ch.Publish(exchange, routingkey, false, false, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
