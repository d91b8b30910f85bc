package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var got ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return got
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expose     bool
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "duplicate email",
			err:        fmt.Errorf("auth.Register: %w", models.ErrDuplicateEmail),
			wantStatus: http.StatusConflict,
			wantMsg:    "Email already exists",
		},
		{
			name:       "invalid credentials",
			err:        fmt.Errorf("auth.Login: %w", models.ErrInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "locked",
			err:        fmt.Errorf("auth.Login: %w", &models.AccountLockedError{Remaining: 90 * time.Second}),
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Account is locked. Try again in 2 minutes",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("users.Get: %w", models.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantMsg:    "Resource not found",
		},
		{
			name:       "forbidden",
			err:        models.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantMsg:    "Forbidden resource",
		},
		{
			name:       "invalid role",
			err:        models.ErrInvalidRole,
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    models.ErrInvalidRole.Error(),
		},
		{
			name:       "unknown error hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
		{
			name:       "unknown error exposed outside prod",
			err:        errors.New("pq: connection refused"),
			expose:     true,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "pq: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h := ExposeDetails(tt.expose)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				WriteError(w, r, newNoopLogger(), tt.err)
			}))
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			got := decode(t, rec)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

type validated struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     string `validate:"omitempty,oneof=USER ADMIN"`
}

func TestValidate(t *testing.T) {
	v := validator.New()

	rec := httptest.NewRecorder()
	ok := Validate(rec, httptest.NewRequest(http.MethodPost, "/", nil), newNoopLogger(), v,
		validated{Email: "nope", Password: "123", Role: "ROOT"})
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode(t, rec)
	assert.Contains(t, got.Message, "field Email must be a valid email")
	assert.Contains(t, got.Message, "field Password must be at least 6 characters")
	assert.Contains(t, got.Message, "field Role must be one of USER ADMIN")

	rec = httptest.NewRecorder()
	ok = Validate(rec, httptest.NewRequest(http.MethodPost, "/", nil), newNoopLogger(), v,
		validated{Email: "a@example.com", Password: "secret1"})
	assert.True(t, ok)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestValidationError_Required(t *testing.T) {
	err := validator.New().Struct(validated{})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	got := ValidationError(verrs)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Status)
	assert.Equal(t, "field Email is a required field, field Password is a required field", got.Message)
}
