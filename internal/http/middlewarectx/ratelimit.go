package middlewarectx

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
)

// RateLimiter ограничивает число запросов с одного IP в фиксированном окне.
// Счётчики хранятся в Redis и общие для всех экземпляров сервиса.
type RateLimiter struct {
	db      redis.Cmdable
	limit   int
	window  time.Duration
	prefix  string
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRateLimiter создает RateLimiter на limit запросов за window.
func NewRateLimiter(db redis.Cmdable, limit int, window time.Duration, log *slog.Logger, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		db:      db,
		limit:   limit,
		window:  window,
		prefix:  "ratelimit:ip",
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Allow увеличивает счётчик key в текущем окне. Возвращает число
// оставшихся запросов и время сброса окна.
func (l *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time, err error) {
	const op = "middlewarectx.RateLimiter.Allow"

	now := l.now()
	windowStart := now.Truncate(l.window)
	reset = windowStart.Add(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.UnixMilli())

	pipe := l.db.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.limit, reset, fmt.Errorf("%s: %w", op, err)
	}

	count := int(incr.Val())
	remaining = l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, reset, nil
}

// Middleware возвращает 429 при превышении лимита. При недоступности
// Redis запрос пропускается.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, reset, err := l.Allow(r.Context(), clientIP(r))
		if err != nil {
			l.log.Warn("rate limiter unavailable, allowing request", sl.Err(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			l.metrics.RateLimited()
			retryAfter := int(reset.Sub(l.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			response.Fail(w, r, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
