// Package list реализует HTTP-обработчик публичного списка публикаций.
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

// Service описывает интерфейс получения публикаций.
type Service interface {
	List(ctx context.Context) ([]models.Post, error)
}

// Handler обрабатывает GET /posts.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список публикаций
// @Tags Posts
// @Produce  json
// @Success 200 {array} models.Post
// @Failure 500 {object} response.ErrorResponse
// @Router /posts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.posts.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	items, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list posts", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	if items == nil {
		items = []models.Post{}
	}
	response.JSON(w, r, http.StatusOK, items)
}
