package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/gymlog/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenCounter struct{}

func (brokenCounter) Hit(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func limitedRouter(counter ratelimit.Counter, limit int) *gin.Engine {
	rl := NewRateLimiter(counter, limit, time.Minute)

	r := gin.New()
	r.GET("/x", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	r := limitedRouter(ratelimit.NewMemoryCounter(), 2)

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)

	w := hit(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.2").Code, "other clients are unaffected")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	r := limitedRouter(brokenCounter{}, 1)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := limitedRouter(brokenCounter{}, 0)

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
}

func TestKeyByUserOrIP(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:1234"

	require.Equal(t, "ip:192.0.2.7", KeyByUserOrIP(c))

	setIdentity(c, "user-42", "", "bearer")
	require.Equal(t, "user:user-42", KeyByUserOrIP(c))
}
