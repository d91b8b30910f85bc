// Package update реализует HTTP-обработчик частичного изменения публикации.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Request изменяемые поля публикации.
type Request struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Content   *string `json:"content,omitempty"`
	Published *bool   `json:"published,omitempty"`
}

// Service описывает интерфейс изменения публикации.
type Service interface {
	Update(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error)
}

// Handler обрабатывает PATCH /posts/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменение публикации
// @Description Доступно владельцу публикации и администратору.
// @Tags Posts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID публикации"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} models.Post
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /posts/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.posts.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !response.Validate(w, r, log, h.validate, req) {
		return
	}

	id := chi.URLParam(r, "id")
	post, err := h.service.Update(r.Context(), id, models.PostChanges{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		log.Warn("failed to update post", slog.String("id", id), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, post)
}
