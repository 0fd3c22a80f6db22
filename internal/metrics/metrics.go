package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"clinic-authz/internal/policy"

	"github.com/labstack/echo/v4"
)

// Metrics holds request and decision counters for the service.
// Thread-safe via atomics and mutex.
type Metrics struct {
	totalRequests  atomic.Int64
	activeRequests atomic.Int64
	totalErrors    atomic.Int64
	totalLatencyMs atomic.Int64
	maxLatencyMs   atomic.Int64
	allowed        atomic.Int64
	denied         atomic.Int64

	mu                sync.Mutex
	startTime         time.Time
	endpointCounts    map[string]int64
	endpointLatencies map[string]int64 // total ms per endpoint
	statusCodes       map[int]int64
	decisions         map[policy.Decision]int64
	resourceDenials   map[policy.Resource]int64

	now func() time.Time
}

func New() *Metrics {
	m := &Metrics{now: time.Now}
	m.reset()
	return m
}

func (m *Metrics) reset() {
	m.totalRequests.Store(0)
	m.activeRequests.Store(0)
	m.totalErrors.Store(0)
	m.totalLatencyMs.Store(0)
	m.maxLatencyMs.Store(0)
	m.allowed.Store(0)
	m.denied.Store(0)

	m.mu.Lock()
	m.startTime = m.now()
	m.endpointCounts = make(map[string]int64)
	m.endpointLatencies = make(map[string]int64)
	m.statusCodes = make(map[int]int64)
	m.decisions = make(map[policy.Decision]int64)
	m.resourceDenials = make(map[policy.Resource]int64)
	m.mu.Unlock()
}

// RecordDecision counts one evaluated permission check
func (m *Metrics) RecordDecision(resource policy.Resource, decision policy.Decision) {
	if decision == policy.DecisionAllow {
		m.allowed.Add(1)
	} else {
		m.denied.Add(1)
	}

	m.mu.Lock()
	m.decisions[decision]++
	if decision != policy.DecisionAllow && resource != "" {
		m.resourceDenials[resource]++
	}
	m.mu.Unlock()
}

// Middleware tracks request count, latency, active connections, and error rates
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Add(1)
			start := m.now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final
				c.Error(err)
			}

			latencyMs := m.now().Sub(start).Milliseconds()
			m.activeRequests.Add(-1)
			m.totalRequests.Add(1)
			m.totalLatencyMs.Add(latencyMs)

			// Update max latency (lock-free CAS loop)
			for {
				current := m.maxLatencyMs.Load()
				if latencyMs <= current || m.maxLatencyMs.CompareAndSwap(current, latencyMs) {
					break
				}
			}

			statusCode := c.Response().Status
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			endpoint := fmt.Sprintf("%s %s", c.Request().Method, path)

			m.mu.Lock()
			m.endpointCounts[endpoint]++
			m.endpointLatencies[endpoint] += latencyMs
			m.statusCodes[statusCode]++
			m.mu.Unlock()

			if statusCode >= http.StatusBadRequest {
				m.totalErrors.Add(1)
			}

			return nil
		}
	}
}

// Snapshot is a point-in-time view of the counters
type Snapshot struct {
	TotalRequests   int64                     `json:"total_requests"`
	ActiveRequests  int64                     `json:"active_requests"`
	TotalErrors     int64                     `json:"total_errors"`
	ErrorRate       float64                   `json:"error_rate_pct"`
	AvgLatencyMs    float64                   `json:"avg_latency_ms"`
	MaxLatencyMs    int64                     `json:"max_latency_ms"`
	UptimeSeconds   float64                   `json:"uptime_seconds"`
	Allowed         int64                     `json:"allowed"`
	Denied          int64                     `json:"denied"`
	Decisions       map[policy.Decision]int64 `json:"decisions"`
	ResourceDenials map[policy.Resource]int64 `json:"resource_denials"`
	EndpointCounts  map[string]int64          `json:"endpoint_counts"`
	EndpointAvgMs   map[string]int64          `json:"endpoint_avg_latency_ms"`
	StatusCodes     map[int]int64             `json:"status_codes"`
}

func (m *Metrics) Snapshot() Snapshot {
	total := m.totalRequests.Load()
	errors := m.totalErrors.Load()

	s := Snapshot{
		TotalRequests:  total,
		ActiveRequests: m.activeRequests.Load(),
		TotalErrors:    errors,
		MaxLatencyMs:   m.maxLatencyMs.Load(),
		Allowed:        m.allowed.Load(),
		Denied:         m.denied.Load(),
	}
	if total > 0 {
		s.AvgLatencyMs = float64(m.totalLatencyMs.Load()) / float64(total)
		s.ErrorRate = float64(errors) / float64(total) * 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s.UptimeSeconds = m.now().Sub(m.startTime).Seconds()
	s.Decisions = make(map[policy.Decision]int64, len(m.decisions))
	for k, v := range m.decisions {
		s.Decisions[k] = v
	}
	s.ResourceDenials = make(map[policy.Resource]int64, len(m.resourceDenials))
	for k, v := range m.resourceDenials {
		s.ResourceDenials[k] = v
	}
	s.EndpointCounts = make(map[string]int64, len(m.endpointCounts))
	s.EndpointAvgMs = make(map[string]int64, len(m.endpointLatencies))
	for k, v := range m.endpointCounts {
		s.EndpointCounts[k] = v
		if v > 0 {
			s.EndpointAvgMs[k] = m.endpointLatencies[k] / v
		}
	}
	s.StatusCodes = make(map[int]int64, len(m.statusCodes))
	for k, v := range m.statusCodes {
		s.StatusCodes[k] = v
	}

	return s
}

// RegisterRoutes adds the read-only /metrics/decisions endpoint
func (m *Metrics) RegisterRoutes(g *echo.Group) {
	g.GET("/decisions", func(c echo.Context) error {
		return c.JSON(http.StatusOK, m.Snapshot())
	})
}

// ResetHandler zeroes every counter. The decision counters are security
// telemetry, so callers mount it behind authentication.
func (m *Metrics) ResetHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		m.reset()
		return c.JSON(http.StatusOK, map[string]string{"status": "metrics_reset"})
	}
}
