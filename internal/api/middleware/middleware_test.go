package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerClient(t *testing.T) {
	r := newEngine(RateLimit(2, time.Minute))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "a").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "b").Code)

	w := do(r, http.MethodPost, "/echo", "c")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
}

func TestDeduplicationRejectsRepeatedBody(t *testing.T) {
	r := newEngine(Deduplication(time.Minute))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", `{"image":"x"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/echo", `{"image":"x"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", `{"image":"y"}`).Code)
}

func TestDeduplicationDisabled(t *testing.T) {
	r := newEngine(Deduplication(0))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "same").Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(4))
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPost, "/echo", "12345").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "1234").Code)
}

func TestRecoveryAndLogger(t *testing.T) {
	r := newEngine(Logger(), Recovery())
	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}
