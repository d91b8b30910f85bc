// Package sweeper периодически снимает истёкшие блокировки аккаунтов.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
)

// DefaultSchedule расписание по умолчанию.
const DefaultSchedule = "@every 5m"

// LockRepository сбрасывает блокировки, истёкшие к моменту now.
type LockRepository interface {
	ClearExpiredLocks(ctx context.Context, now time.Time) (int64, error)
}

// CacheInvalidator удаляет ключ кеша.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Sweeper сбрасывает счётчик неудачных входов у аккаунтов с истёкшей блокировкой.
// Операция идемпотентна, несколько воркеров могут выполнять её одновременно.
type Sweeper struct {
	repo     LockRepository
	cache    CacheInvalidator
	cacheKey string
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	timeout  time.Duration
}

// New создает Sweeper. После снятия блокировок инвалидирует cacheKey.
func New(repo LockRepository, cache CacheInvalidator, cacheKey string, log *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		repo:     repo,
		cache:    cache,
		cacheKey: cacheKey,
		log:      log,
		metrics:  m,
		now:      time.Now,
		timeout:  30 * time.Second,
	}
}

// Sweep выполняет один проход и возвращает число разблокированных аккаунтов.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	const op = "sweeper.Sweep"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repo.ClearExpiredLocks(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return 0, nil
	}

	s.log.Info("cleared expired account locks", slog.Int64("count", n))
	s.metrics.LocksCleared(n)
	if err := s.cache.Invalidate(ctx, s.cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", s.cacheKey), sl.Err(err))
	}
	return n, nil
}

// Run запускает Sweep по расписанию schedule и блокируется до отмены ctx.
func (s *Sweeper) Run(ctx context.Context, schedule string) error {
	const op = "sweeper.Run"
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("lock sweep failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.Start()
	s.log.Info("lock sweeper started", slog.String("schedule", schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("lock sweeper stopped")
	return nil
}
