// Package response содержит вспомогательные типы и функции для формирования
// JSON‑ответов HTTP‑обработчиков. Ошибки возвращаются в едином формате
// {status, message}, где status совпадает с HTTP статусом.
package response

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// ErrorResponse структура ошибки, в том числе для Swagger-документации.
type ErrorResponse struct {
	Status  int    `json:"status" example:"401"`
	Message string `json:"message" example:"Invalid email or password"`
}

// MessageResponse ответ без данных.
type MessageResponse struct {
	Message string `json:"message" example:"User logged out successfully"`
}

const internalMessage = "internal server error"

// Error возвращает ErrorResponse с переданным статусом и сообщением.
func Error(status int, msg string) ErrorResponse {
	return ErrorResponse{Status: status, Message: msg}
}

// JSON пишет v со статусом status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// Fail пишет ErrorResponse со статусом status.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, Error(status, msg))
}

// ValidationError формирует ErrorResponse 422 на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Error(http.StatusUnprocessableEntity, strings.Join(errsMsgs, ", "))
}

// Validate проверяет структуру и при ошибке сам пишет ответ 422.
// Возвращает false, если обработчик должен завершиться.
func Validate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, req any) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}
	log.Error("validation failed", sl.Err(err))

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		JSON(w, r, http.StatusUnprocessableEntity, ValidationError(verrs))
		return false
	}
	Fail(w, r, http.StatusBadRequest, "invalid request body")
	return false
}

type detailsKey struct{}

// ExposeDetails middleware разрешает показывать текст неизвестных ошибок
// клиенту. Включается вне прода.
func ExposeDetails(expose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), detailsKey{}, expose)))
		})
	}
}

// StatusFor возвращает HTTP статус и сообщение для доменной ошибки.
// ok == false для ошибок, не относящихся к предметной области.
func StatusFor(err error) (status int, msg string, ok bool) {
	var locked *models.AccountLockedError
	switch {
	case errors.As(err, &locked):
		return http.StatusUnauthorized, locked.Error(), true
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrInvalidCredentials.Error(), true
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized", true
	case errors.Is(err, models.ErrDuplicateEmail):
		return http.StatusConflict, "Email already exists", true
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "Forbidden resource", true
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "Resource not found", true
	case errors.Is(err, models.ErrInvalidRole):
		return http.StatusUnprocessableEntity, models.ErrInvalidRole.Error(), true
	case errors.Is(err, models.ErrEnqueueTimeout):
		return http.StatusServiceUnavailable, "mail queue is unavailable", true
	}
	return http.StatusInternalServerError, internalMessage, false
}

// WriteError пишет доменную ошибку с её статусом. Неизвестные ошибки
// логируются и возвращаются как 500 без подробностей, если их показ
// не включён через ExposeDetails.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg, ok := StatusFor(err)
	if !ok {
		log.Error("unexpected error", sl.Err(err))
		if expose, _ := r.Context().Value(detailsKey{}).(bool); expose {
			msg = err.Error()
		}
	}
	Fail(w, r, status, msg)
}
