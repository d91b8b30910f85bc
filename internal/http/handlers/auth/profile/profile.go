// Package profile реализует HTTP-обработчик получения профиля вызывающего.
package profile

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

// Service описывает интерфейс получения профиля.
type Service interface {
	Profile(ctx context.Context, accountID string) (*models.Account, error)
}

// Handler обрабатывает GET /auth/profile.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль
// @Description Возвращает аккаунт владельца токена.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /auth/profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		log.Error("principal missing in context")
		response.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	account, err := h.service.Profile(r.Context(), p.Subject)
	if err != nil {
		log.Warn("failed to load profile", slog.String("account_id", p.Subject), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}
	response.JSON(w, r, http.StatusOK, account)
}
