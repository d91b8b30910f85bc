// Package read реализует HTTP-обработчик получения аккаунта по id.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Service описывает интерфейс получения аккаунта.
type Service interface {
	Get(ctx context.Context, id string) (*models.Account, error)
}

// Handler обрабатывает GET /users/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Аккаунт по id
// @Description Доступно владельцу аккаунта и администратору.
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID аккаунта"
// @Success 200 {object} models.Account
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Warn("failed to get account", slog.String("id", id), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, account)
}
