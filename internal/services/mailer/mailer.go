// Package mailer обрабатывает задания очереди писем.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/queue"
)

const welcomeSubject = "Welcome to the platform!"

// Sender отправляет одно письмо.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service отправляет приветственные письма с ограничением скорости
// и отложенными повторами через очередь mail.welcome.retry.
type Service struct {
	sender  Sender
	pub     rabbitmq.Publisher
	limiter *rate.Limiter
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New создает Service. perSecond <= 0 снимает ограничение скорости.
func New(sender Sender, pub rabbitmq.Publisher, perSecond float64, log *slog.Logger, m *metrics.Metrics) *Service {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Service{
		sender:  sender,
		pub:     pub,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		metrics: m,
	}
}

// HandleWelcome обрабатывает тело сообщения из mail.welcome.
//
// Битое сообщение подтверждается и отбрасывается. Неудачная отправка
// публикуется повторно с задержкой queue.Backoff(attempt), после
// queue.MaxAttempts попыток задание уходит в mail.welcome.failed.
// Ошибка возвращается только если не удалось переопубликовать задание.
func (s *Service) HandleWelcome(ctx context.Context, body []byte) error {
	const op = "mailer.HandleWelcome"

	var job queue.WelcomeJob
	if err := json.Unmarshal(body, &job); err != nil || job.To == "" {
		s.log.Error("dropping malformed welcome job", slog.String("body", string(body)), sl.Err(err))
		return nil
	}
	if job.Attempt < 1 {
		job.Attempt = 1
	}
	log := s.log.With(slog.String("to", job.To), slog.Int("attempt", job.Attempt))

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.sender.Send(ctx, job.To, welcomeSubject, WelcomeBody(job.Name))
	if err == nil {
		log.Info("welcome email sent")
		s.metrics.ObserveEmail(metrics.EmailSent)
		return nil
	}
	log.Warn("failed to send welcome email", sl.Err(err))

	if job.Attempt >= queue.MaxAttempts {
		if err := rabbitmq.PublishMessage(s.pub, rabbitmq.MailExchange, rabbitmq.WelcomeFailedKey, job); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Error("welcome email parked after max attempts")
		s.metrics.ObserveEmail(metrics.EmailFailed)
		return nil
	}

	delay := queue.Backoff(job.Attempt)
	next := job
	next.Attempt++
	if err := rabbitmq.PublishDelayed(s.pub, rabbitmq.MailExchange, rabbitmq.WelcomeRetryKey, next, delay); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("welcome email scheduled for retry", slog.Duration("delay", delay))
	s.metrics.ObserveEmail(metrics.EmailRetried)
	return nil
}

// WelcomeBody текст приветственного письма.
func WelcomeBody(name string) string {
	return fmt.Sprintf("Welcome, %s!\n\n"+
		"Thank you for joining our platform. We are excited to have you on board.\n\n"+
		"Best regards,\nThe Team", name)
}
