package mine

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/authz"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) ListMine(ctx context.Context, ownerID string) ([]models.Post, error) {
	args := m.Called(ctx, ownerID)
	res, _ := args.Get(0).([]models.Post)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestMineHandler(t *testing.T) {
	t.Run("lists caller posts", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("ListMine", mock.Anything, "acc-1").Return([]models.Post{{ID: "p1", UserID: "acc-1"}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/posts/me", nil)
		req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), &authz.Principal{Subject: "acc-1"}))
		rec := httptest.NewRecorder()
		New(newNoopLogger(), svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"userId":"acc-1"`)
		svc.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(newNoopLogger(), new(ServiceMock)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
