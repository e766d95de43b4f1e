package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrient-resolver/internal/pkg/common"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(Status{Version: "1.2.3", CatalogEntries: 42, ActiveSessions: func() int { return 3 }})
	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, common.ParseJSONBytes(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, 42, resp.CatalogEntries)
	assert.Equal(t, 3, resp.ActiveSessions)
}

func TestReadinessCheck(t *testing.T) {
	ok := NewHandler(Status{CatalogEntries: 1, Store: pingFunc(func(context.Context) error { return nil })})
	assert.Equal(t, http.StatusOK, serve(ok, "/ready").Code)

	empty := NewHandler(Status{})
	assert.Equal(t, http.StatusServiceUnavailable, serve(empty, "/ready").Code)

	down := NewHandler(Status{CatalogEntries: 1, Store: pingFunc(func(context.Context) error { return errors.New("closed") })})
	w := serve(down, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "closed")

	assert.Equal(t, http.StatusOK, serve(empty, "/live").Code)
}
