// Package update реализует HTTP-обработчик изменения аккаунта.
//
// Владелец может менять имя и пароль. Email и роль меняет только
// администратор, у остальных вызывающих эти поля игнорируются.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/users"
)

// Request изменяемые поля. Отсутствующее поле не меняется.
type Request struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=USER ADMIN"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// Service описывает интерфейс изменения аккаунта.
type Service interface {
	Update(ctx context.Context, id string, in users.UpdateInput) (*models.Account, error)
	UpdateAsAdmin(ctx context.Context, id string, in users.UpdateInput) (*models.Account, error)
}

// Handler обрабатывает PUT /users/{id}.
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
// @Summary Изменение аккаунта
// @Description Доступно владельцу аккаунта и администратору.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID аккаунта"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} models.Account
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.update"

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

	id := chi.URLParam(r, "id")
	in := users.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	}

	var (
		account *models.Account
		err     error
	)
	if p.IsAdmin() {
		account, err = h.service.UpdateAsAdmin(r.Context(), id, in)
	} else {
		account, err = h.service.Update(r.Context(), id, in)
	}
	if err != nil {
		log.Warn("failed to update account", slog.String("id", id), sl.Err(err))
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("account updated", slog.String("id", id), slog.String("by", p.Subject))
	response.JSON(w, r, http.StatusOK, account)
}
