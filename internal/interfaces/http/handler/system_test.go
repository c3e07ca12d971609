package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		ping     error
		status   int
		state    string
		database string
	}{
		{"reachable", nil, http.StatusOK, "ok", "ok"},
		{"unreachable", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded", "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				return tt.ping
			}), "1.4.0")

			engine := gin.New()
			engine.GET("/health", h.Health)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.status, w.Code)
			env := decode[dto.HealthResponse](t, w)
			assert.Equal(t, tt.state, env.Data.Status)
			assert.Equal(t, tt.database, env.Data.Database)
			assert.Equal(t, "1.4.0", env.Data.Version)
			if tt.ping != nil {
				assert.Equal(t, dto.ErrCodeUnavailable, env.Error.Code)
			}
		})
	}
}

func TestHealth_Fixture(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
