package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Топология очереди писем.
const (
	MailExchange       = "mail"
	WelcomeQueue       = "mail.welcome"
	WelcomeRetryQueue  = "mail.welcome.retry"
	WelcomeFailedQueue = "mail.welcome.failed"
	WelcomeKey         = "welcome"
	WelcomeRetryKey    = "welcome.retry"
	WelcomeFailedKey   = "welcome.failed"
)

// QueueConfig описывает очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
	Args       amqp.Table
}

// Topology обменник и привязанные к нему очереди.
type Topology struct {
	Exchange string
	Queues   []QueueConfig
}

// MailTopology возвращает топологию очереди приветственных писем.
// Сообщения из retry очереди по истечении TTL возвращаются в основную.
func MailTopology() Topology {
	return Topology{
		Exchange: MailExchange,
		Queues: []QueueConfig{
			{QueueName: WelcomeQueue, RoutingKey: WelcomeKey},
			{
				QueueName:  WelcomeRetryQueue,
				RoutingKey: WelcomeRetryKey,
				Args: amqp.Table{
					"x-dead-letter-exchange":    MailExchange,
					"x-dead-letter-routing-key": WelcomeKey,
				},
			},
			{QueueName: WelcomeFailedQueue, RoutingKey: WelcomeFailedKey},
		},
	}
}

// Declarer часть amqp.Channel, нужная для объявления топологии.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare объявляет durable direct обменник и очереди топологии.
func Declare(ch Declarer, topology Topology) error {
	const op = "rabbitmq.Declare"
	if err := ch.ExchangeDeclare(topology.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range topology.Queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, q.Args); err != nil {
			return fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, topology.Exchange, false, nil); err != nil {
			return fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}

// SetupChannel открывает канал, выставляет prefetch и объявляет топологию.
func SetupChannel(conn *amqp.Connection, topology Topology, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}
	if err := Declare(ch, topology); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}
