// Package metrics регистрирует Prometheus метрики сервиса.
// Все методы безопасны для вызова на nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы попытки входа.
const (
	LoginSuccess = "success"
	LoginInvalid = "invalid_credentials"
	LoginLocked  = "locked"
)

// Исходы отправки письма.
const (
	EmailSent    = "sent"
	EmailRetried = "retried"
	EmailFailed  = "failed"
)

// Metrics набор метрик сервиса.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	LoginAttemptsTotal     *prometheus.CounterVec
	AccountLockoutsTotal   prometheus.Counter
	TokensRevokedTotal     prometheus.Counter
	WelcomeEnqueueFailures prometheus.Counter
	EmailsTotal            *prometheus.CounterVec
	RateLimitedTotal       prometheus.Counter
	LocksClearedTotal      prometheus.Counter
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "account_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		AccountLockoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_lockouts_total",
			Help: "Accounts locked after too many failed logins",
		}),
		TokensRevokedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_tokens_revoked_total",
			Help: "Tokens added to the revocation store",
		}),
		WelcomeEnqueueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_welcome_enqueue_failures_total",
			Help: "Welcome email jobs that could not be enqueued",
		}),
		EmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_emails_total",
				Help: "Welcome email deliveries by status",
			},
			[]string{"status"},
		),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		LocksClearedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "account_locks_cleared_total",
			Help: "Expired account locks cleared by the sweeper",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.AccountLockoutsTotal,
		m.TokensRevokedTotal,
		m.WelcomeEnqueueFailures,
		m.EmailsTotal,
		m.RateLimitedTotal,
		m.LocksClearedTotal,
	)
	return m
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// AccountLocked отмечает новую блокировку аккаунта.
func (m *Metrics) AccountLocked() {
	if m == nil {
		return
	}
	m.AccountLockoutsTotal.Inc()
}

func (m *Metrics) TokenRevoked() {
	if m == nil {
		return
	}
	m.TokensRevokedTotal.Inc()
}

func (m *Metrics) WelcomeEnqueueFailed() {
	if m == nil {
		return
	}
	m.WelcomeEnqueueFailures.Inc()
}

func (m *Metrics) ObserveEmail(status string) {
	if m == nil {
		return
	}
	m.EmailsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

func (m *Metrics) LocksCleared(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.LocksClearedTotal.Add(float64(n))
}

// Middleware считает запросы и их длительность по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
