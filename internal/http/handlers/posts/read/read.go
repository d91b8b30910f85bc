// Package read реализует HTTP-обработчик получения публикации.
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

// Service описывает интерфейс получения публикации.
type Service interface {
	Get(ctx context.Context, id string) (*models.Post, error)
}

// Handler обрабатывает GET /posts/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Публикация по id
// @Tags Posts
// @Produce  json
// @Param id path string true "ID публикации"
// @Success 200 {object} models.Post
// @Failure 404 {object} response.ErrorResponse
// @Router /posts/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.posts.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Warn("failed to get post", slog.String("id", id), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, post)
}
