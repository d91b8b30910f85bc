// Package mine реализует HTTP-обработчик списка публикаций вызывающего.
package mine

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Service описывает интерфейс получения публикаций владельца.
type Service interface {
	ListMine(ctx context.Context, ownerID string) ([]models.Post, error)
}

// Handler обрабатывает GET /posts/me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мои публикации
// @Tags Posts
// @Produce  json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Failure 401 {object} response.ErrorResponse
// @Router /posts/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.posts.mine"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	items, err := h.service.ListMine(r.Context(), p.Subject)
	if err != nil {
		log.Error("failed to list own posts", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	if items == nil {
		items = []models.Post{}
	}
	response.JSON(w, r, http.StatusOK, items)
}
