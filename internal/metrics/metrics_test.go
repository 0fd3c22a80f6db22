package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-authz/internal/policy"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecision(t *testing.T) {
	m := New()

	m.RecordDecision("users", policy.DecisionAllow)
	m.RecordDecision("users", policy.DecisionDenyRole)
	m.RecordDecision("finance", policy.DecisionDenyCondition)
	m.RecordDecision("finance", policy.DecisionDenyNoPolicy)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Allowed)
	assert.Equal(t, int64(3), s.Denied)
	assert.Equal(t, int64(1), s.Decisions[policy.DecisionDenyRole])
	assert.Equal(t, int64(1), s.ResourceDenials["users"])
	assert.Equal(t, int64(2), s.ResourceDenials["finance"])
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden, "no") })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	for _, path := range []string{"/ok", "/ok", "/fail", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	s := m.Snapshot()
	assert.Equal(t, int64(4), s.TotalRequests)
	assert.Equal(t, int64(0), s.ActiveRequests)
	assert.Equal(t, int64(2), s.TotalErrors)
	assert.Equal(t, 50.0, s.ErrorRate)
	assert.Equal(t, int64(2), s.EndpointCounts["GET /ok"])
	assert.Equal(t, int64(1), s.StatusCodes[http.StatusForbidden])
	assert.Equal(t, int64(1), s.StatusCodes[http.StatusInternalServerError])
}

func TestSnapshotIsCopy(t *testing.T) {
	m := New()
	m.RecordDecision("users", policy.DecisionDenyRole)

	s := m.Snapshot()
	s.ResourceDenials["users"] = 100

	assert.Equal(t, int64(1), m.Snapshot().ResourceDenials["users"])
}

func TestUptimeUsesClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Metrics{now: func() time.Time { return start }}
	m.reset()
	m.now = func() time.Time { return start.Add(90 * time.Second) }

	assert.Equal(t, 90.0, m.Snapshot().UptimeSeconds)
}

func TestRoutes(t *testing.T) {
	m := New()
	m.RecordDecision("users", policy.DecisionAllow)

	e := echo.New()
	m.RegisterRoutes(e.Group("/metrics"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/decisions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var s Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, int64(1), s.Allowed)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics/reset", nil))
	assert.NotEqual(t, http.StatusOK, rec.Code, "reset is not part of the public routes")
	assert.Equal(t, int64(1), m.Snapshot().Allowed)
}

func TestResetHandler(t *testing.T) {
	m := New()
	m.RecordDecision("users", policy.DecisionDenyRole)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/metrics/reset", nil), rec)
	require.NoError(t, m.ResetHandler()(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), m.Snapshot().Denied)
	assert.Empty(t, m.Snapshot().ResourceDenials)
}
