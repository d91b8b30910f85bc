// Package testwelcome реализует служебный HTTP-обработчик, ставящий
// тестовое приветственное письмо в очередь.
package testwelcome

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Значения по умолчанию для пустых параметров запроса.
const (
	DefaultEmail = "test@example.com"
	DefaultName  = "Tester"
)

// Job поставленное в очередь задание.
type Job struct {
	To   string `json:"to" validate:"required,email"`
	Name string `json:"name"`
}

// Response ответ обработчика.
type Response struct {
	Message string `json:"message" example:"Welcome email job added to queue!"`
	Data    Job    `json:"data"`
}

// Enqueuer ставит письмо в очередь.
type Enqueuer interface {
	EnqueueWelcome(ctx context.Context, to, name string) error
}

// Handler обрабатывает GET /mail/test-welcome.
type Handler struct {
	log      *slog.Logger
	queue    Enqueuer
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, queue Enqueuer) *Handler {
	return &Handler{
		log:      log,
		queue:    queue,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Тестовое приветственное письмо
// @Description Доступно только администратору.
// @Tags Mail
// @Produce  json
// @Security BearerAuth
// @Param email query string false "Адрес получателя"
// @Param name query string false "Имя получателя"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /mail/test-welcome [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mail.testwelcome"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	job := Job{
		To:   r.URL.Query().Get("email"),
		Name: r.URL.Query().Get("name"),
	}
	if job.To == "" {
		job.To = DefaultEmail
	}
	if job.Name == "" {
		job.Name = DefaultName
	}
	if !response.Validate(w, r, log, h.validate, job) {
		return
	}

	if err := h.queue.EnqueueWelcome(r.Context(), job.To, job.Name); err != nil {
		log.Error("failed to enqueue test welcome email", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("test welcome email enqueued", slog.String("to", job.To))
	response.JSON(w, r, http.StatusOK, Response{Message: "Welcome email job added to queue!", Data: job})
}
