// Package remove реализует HTTP-обработчик удаления аккаунта.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Service описывает интерфейс удаления аккаунта.
type Service interface {
	Remove(ctx context.Context, id string) error
}

// Handler обрабатывает DELETE /users/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление аккаунта
// @Description Доступно владельцу аккаунта и администратору. Публикации удаляются каскадно.
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID аккаунта"
// @Success 200 {object} response.MessageResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), id); err != nil {
		log.Warn("failed to remove account", slog.String("id", id), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("account removed", slog.String("id", id))
	response.JSON(w, r, http.StatusOK, response.MessageResponse{Message: "User deleted successfully"})
}
