// Package health реализует HTTP-обработчики проверок живости и готовности.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/health"
	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// Checker источник отчётов о здоровье.
type Checker interface {
	Liveness() health.Report
	Readiness(ctx context.Context) health.Report
}

// Handler обрабатывает GET /health и GET /health/ready.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создает Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce  json
// @Success 200 {object} health.Report
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.checker.Liveness())
}

// Ready godoc
// @Summary Проверка готовности
// @Description Проверяет Postgres и Redis. 503, если хотя бы одна зависимость недоступна.
// @Tags Health
// @Produce  json
// @Success 200 {object} health.Report
// @Failure 503 {object} health.Report
// @Router /health/ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health.ready"

	report := h.checker.Readiness(r.Context())
	if !report.Healthy() {
		h.log.Warn("service is not ready",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", report.Error),
		)
		response.JSON(w, r, http.StatusServiceUnavailable, report)
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}
