package update

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Update(ctx context.Context, id string, changes models.PostChanges) (*models.Post, error) {
	args := m.Called(ctx, id, changes)
	res, _ := args.Get(0).(*models.Post)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func patch(svc *ServiceMock, body string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Patch("/posts/{id}", New(newNoopLogger(), svc).ServeHTTP)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/posts/p1", bytes.NewBufferString(body)))
	return rec
}

func TestUpdatePostHandler(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Update", mock.Anything, "p1", mock.MatchedBy(func(c models.PostChanges) bool {
			return c.Title == nil && c.Content == nil && c.Published != nil && *c.Published
		})).Return(&models.Post{ID: "p1", Published: true}, nil).Once()

		rec := patch(svc, `{"published":true}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"published":true`)
		svc.AssertExpectations(t)
	})

	t.Run("title too long", func(t *testing.T) {
		rec := patch(new(ServiceMock), `{"title":"`+strings.Repeat("x", 201)+`"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := patch(new(ServiceMock), `[]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing post", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("Update", mock.Anything, "p1", mock.Anything).Return(nil, models.ErrNotFound).Once()

		rec := patch(svc, `{"content":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
