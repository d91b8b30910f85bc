// Package create реализует HTTP-обработчик создания публикации.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/posts"
)

// Request входные данные публикации.
type Request struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

// Service описывает интерфейс создания публикации.
type Service interface {
	Create(ctx context.Context, ownerID string, in posts.CreateInput) (*models.Post, error)
}

// Handler обрабатывает POST /posts.
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
// @Summary Создание публикации
// @Description Владельцем становится вызывающий.
// @Tags Posts
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Публикация"
// @Success 201 {object} models.Post
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /posts [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.posts.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !response.Validate(w, r, log, h.validate, req) {
		return
	}

	post, err := h.service.Create(r.Context(), p.Subject, posts.CreateInput{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		log.Error("failed to create post", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, post)
}
