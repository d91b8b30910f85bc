// Package health проверяет доступность зависимостей сервиса.
package health

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Статусы проверки.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusUp    = "up"
	StatusDown  = "down"
)

// Ключ, через который проверяется Redis.
const redisProbeKey = "__health_check__"

var errProbeMismatch = errors.New("Redis health check value mismatch")

// Indicator состояние одной зависимости.
type Indicator struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report итог проверки. Details содержит все зависимости, Info только доступные,
// Error только недоступные.
type Report struct {
	Status  string               `json:"status"`
	Info    map[string]Indicator `json:"info"`
	Error   map[string]Indicator `json:"error"`
	Details map[string]Indicator `json:"details"`
}

// Healthy сообщает, доступны ли все зависимости.
func (r Report) Healthy() bool {
	return r.Status == StatusOK
}

// DB минимальный интерфейс базы для проверки.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Checker проверяет Postgres и Redis.
type Checker struct {
	db      DB
	redis   redis.Cmdable
	timeout time.Duration
	now     func() time.Time
}

// NewChecker создает Checker. timeout ограничивает проверку каждой зависимости.
func NewChecker(db DB, rdb redis.Cmdable, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Checker{db: db, redis: rdb, timeout: timeout, now: time.Now}
}

// Liveness всегда возвращает ok, если процесс отвечает.
func (c *Checker) Liveness() Report {
	return newReport()
}

// Readiness проверяет все зависимости. Статус error, если хотя бы одна недоступна.
func (c *Checker) Readiness(ctx context.Context) Report {
	report := newReport()
	report.add("database", c.checkDatabase(ctx))
	report.add("redis", c.checkRedis(ctx))
	return report
}

func (c *Checker) checkDatabase(ctx context.Context) Indicator {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return Indicator{Status: StatusDown, Message: err.Error()}
	}
	return Indicator{Status: StatusUp}
}

func (c *Checker) checkRedis(ctx context.Context) Indicator {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value := strconv.FormatInt(c.now().UnixNano(), 10)
	if err := c.redis.Set(ctx, redisProbeKey, value, time.Second).Err(); err != nil {
		return Indicator{Status: StatusDown, Message: err.Error()}
	}
	got, err := c.redis.Get(ctx, redisProbeKey).Result()
	if err != nil {
		return Indicator{Status: StatusDown, Message: err.Error()}
	}
	if got != value {
		return Indicator{Status: StatusDown, Message: errProbeMismatch.Error()}
	}
	return Indicator{Status: StatusUp, Message: "Redis is reachable"}
}

func newReport() Report {
	return Report{
		Status:  StatusOK,
		Info:    map[string]Indicator{},
		Error:   map[string]Indicator{},
		Details: map[string]Indicator{},
	}
}

func (r *Report) add(name string, ind Indicator) {
	r.Details[name] = ind
	if ind.Status == StatusUp {
		r.Info[name] = ind
		return
	}
	r.Error[name] = ind
	r.Status = StatusError
}
