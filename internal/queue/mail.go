// Package queue ставит задания на отправку писем в RabbitMQ.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Политика повторов приветственного письма.
const (
	MaxAttempts        = 3
	BaseBackoff        = 5 * time.Second
	DefaultEnqueueWait = 5 * time.Second
)

// WelcomeJob задание на отправку приветственного письма.
type WelcomeJob struct {
	To      string `json:"to"`
	Name    string `json:"name"`
	Attempt int    `json:"attempt"`
}

// Backoff задержка перед попыткой attempt+1: 5s, 10s, 20s...
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return BaseBackoff << (attempt - 1)
}

// MailQueue публикует задания в обменник mail.
type MailQueue struct {
	pub     rabbitmq.Publisher
	timeout time.Duration
}

// NewMailQueue создаёт очередь. timeout <= 0 заменяется на DefaultEnqueueWait.
func NewMailQueue(pub rabbitmq.Publisher, timeout time.Duration) *MailQueue {
	if timeout <= 0 {
		timeout = DefaultEnqueueWait
	}
	return &MailQueue{pub: pub, timeout: timeout}
}

// EnqueueWelcome ставит письмо в очередь и ждёт публикации не дольше timeout.
// По истечении ожидания возвращает models.ErrEnqueueTimeout.
func (q *MailQueue) EnqueueWelcome(ctx context.Context, to, name string) error {
	const op = "queue.EnqueueWelcome"
	job := WelcomeJob{To: to, Name: name, Attempt: 1}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- rabbitmq.PublishMessage(q.pub, rabbitmq.MailExchange, rabbitmq.WelcomeKey, job)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, models.ErrEnqueueTimeout)
	}
}

// Enqueuer ставит приветственное письмо в очередь.
type Enqueuer interface {
	EnqueueWelcome(ctx context.Context, to, name string) error
}

// WelcomeNotifier ставит письмо в очередь, не прерывая создание аккаунта:
// ошибка пишется в лог и в метрику account_welcome_enqueue_failures_total.
type WelcomeNotifier struct {
	q       Enqueuer
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewWelcomeNotifier создаёт WelcomeNotifier.
func NewWelcomeNotifier(q Enqueuer, log *slog.Logger, m *metrics.Metrics) *WelcomeNotifier {
	return &WelcomeNotifier{q: q, log: log, metrics: m}
}

// Notify ставит письмо в очередь и возвращает ошибку постановки, если она была.
func (n *WelcomeNotifier) Notify(ctx context.Context, to, name string) error {
	err := n.q.EnqueueWelcome(ctx, to, name)
	if err != nil {
		n.log.Warn("failed to enqueue welcome email", slog.String("to", to), sl.Err(err))
		n.metrics.WelcomeEnqueueFailed()
	}
	return err
}
