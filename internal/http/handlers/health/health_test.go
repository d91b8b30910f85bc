package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/health"
)

type stubChecker struct {
	ready health.Report
}

func (s stubChecker) Liveness() health.Report {
	return health.Report{Status: health.StatusOK}
}

func (s stubChecker) Readiness(context.Context) health.Report {
	return s.ready
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHealthHandler(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		New(newNoopLogger(), stubChecker{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})

	tests := []struct {
		name       string
		report     health.Report
		wantStatus int
	}{
		{
			name: "ready",
			report: health.Report{
				Status: health.StatusOK,
				Info:   map[string]health.Indicator{"database": {Status: health.StatusUp}},
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "redis down",
			report: health.Report{
				Status: health.StatusError,
				Error:  map[string]health.Indicator{"redis": {Status: health.StatusDown, Message: "dial tcp: refused"}},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(newNoopLogger(), stubChecker{ready: tt.report}).Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got health.Report
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.report.Status, got.Status)
		})
	}
}
