package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-authz/internal/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, 2) // 2 req/sec, burst of 2

	// First two requests should succeed
	assert.True(t, rl.Allow("test-key"))
	assert.True(t, rl.Allow("test-key"))

	// Third request should be rate limited
	assert.False(t, rl.Allow("test-key"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2, 2)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	middleware := rl.Middleware()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, middleware(handler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get(headerRateLimit))
		assert.NotEmpty(t, rec.Header().Get(headerRateLimitRemaining))
	}

	// Third request should be rate limited
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := middleware(handler)(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
	assert.Equal(t, "0", rec.Header().Get(headerRateLimitRemaining))
	assert.Equal(t, "1", rec.Header().Get(headerRetryAfter))
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(1, 1)
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	newCtx := func(userID *uuid.UUID) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		c := e.NewContext(req, httptest.NewRecorder())
		if userID != nil {
			c.Set(auth.ContextKeyUserID, *userID)
		}
		return c
	}

	alice, bob := uuid.New(), uuid.New()

	// Same IP, different users: independent buckets
	assert.NoError(t, rl.Middleware()(handler)(newCtx(&alice)))
	assert.NoError(t, rl.Middleware()(handler)(newCtx(&bob)))
	assert.NoError(t, rl.Middleware()(handler)(newCtx(nil)))

	assert.Error(t, rl.Middleware()(handler)(newCtx(&alice)))
	assert.Error(t, rl.Middleware()(handler)(newCtx(nil)))
}

func TestRateLimiter_DifferentKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	// Different keys should have independent rate limits
	assert.True(t, rl.Allow("key1"))
	assert.True(t, rl.Allow("key2"))

	// Both keys should now be rate limited
	assert.False(t, rl.Allow("key1"))
	assert.False(t, rl.Allow("key2"))
}
