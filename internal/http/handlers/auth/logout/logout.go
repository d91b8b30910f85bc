// Package logout реализует HTTP-обработчик выхода: токен вызывающего
// попадает в хранилище отозванных до истечения срока его действия.
package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Service описывает интерфейс отзыва токена.
type Service interface {
	Logout(ctx context.Context, token string, expiresAt time.Time) error
}

// Handler обрабатывает POST /auth/logout.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выход
// @Description Отзывает текущий токен.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.MessageResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok || p.Token == "" {
		log.Error("principal missing in context")
		response.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	if err := h.service.Logout(r.Context(), p.Token, p.ExpiresAt); err != nil {
		log.Error("failed to revoke token", sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("user logged out", slog.String("account_id", p.Subject))
	response.JSON(w, r, http.StatusOK, response.MessageResponse{Message: "User logged out successfully"})
}
