// Package list реализует HTTP-обработчик получения списка аккаунтов.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Service описывает интерфейс получения списка аккаунтов.
type Service interface {
	List(ctx context.Context) ([]models.Account, error)
}

// Handler обрабатывает GET /users.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список аккаунтов
// @Description Доступно только администратору. Ответ кэшируется в Redis.
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accounts, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list accounts", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	response.JSON(w, r, http.StatusOK, accounts)
}
