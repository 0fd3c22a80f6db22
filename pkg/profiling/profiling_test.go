package profiling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthOK(t *testing.T) {
	e := echo.New()
	RegisterHealthRoutes(e, map[string]CheckFunc{
		"policy": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
		Memory MemoryStats       `json:"memory"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["policy"])
	assert.Positive(t, body.Memory.Goroutines)
}

func TestHealthDegraded(t *testing.T) {
	e := echo.New()
	RegisterHealthRoutes(e, map[string]CheckFunc{
		"policy":   func(context.Context) error { return nil },
		"database": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMemoryRoute(t *testing.T) {
	e := echo.New()
	RegisterHealthRoutes(e, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/memory", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPprofRoutes(t *testing.T) {
	e := echo.New()
	RegisterPprofRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/goroutine?debug=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}
