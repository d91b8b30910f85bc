package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/users"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Create(ctx context.Context, in users.CreateInput) (*models.Account, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*models.Account)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *ServiceMock)
		wantStatus int
		wantMsg    string
	}{
		{
			name: "admin creates admin",
			body: `{"name":"Bob","email":"bob@example.com","password":"secret1","role":"ADMIN"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, users.CreateInput{
					Name: "Bob", Email: "bob@example.com", Password: "secret1", Role: models.RoleAdmin,
				}).Return(&models.Account{ID: "acc-2", Role: models.RoleAdmin}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "role omitted",
			body: `{"name":"Bob","email":"bob@example.com","password":"secret1"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, users.CreateInput{
					Name: "Bob", Email: "bob@example.com", Password: "secret1",
				}).Return(&models.Account{ID: "acc-2", Role: models.RoleUser}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown role",
			body:       `{"name":"Bob","email":"bob@example.com","password":"secret1","role":"ROOT"}`,
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "field Role must be one of USER ADMIN",
		},
		{
			name:       "short password",
			body:       `{"name":"Bob","email":"bob@example.com","password":"123"}`,
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "field Password must be at least 6 characters",
		},
		{
			name: "duplicate",
			body: `{"name":"Bob","email":"bob@example.com","password":"secret1"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, models.ErrDuplicateEmail).Once()
			},
			wantStatus: http.StatusConflict,
			wantMsg:    "Email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				var got map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, tt.wantMsg, got["message"])
			}
			svc.AssertExpectations(t)
		})
	}
}
