package echo

import (
	"context"
	"log/slog"
	"net/http"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/auth"
	"clinic-authz/internal/config"
	"clinic-authz/internal/guard"
	"clinic-authz/internal/http/middleware"
	"clinic-authz/internal/metrics"
	"clinic-authz/internal/policy"
	"clinic-authz/internal/policy/presets"
	"clinic-authz/pkg/profiling"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestBodyLimit = "64K"
	tracerName       = "clinic-authz/transport/echo"

	defaultRPS   = 50
	defaultBurst = 100
)

// Reloader rebuilds the catalog from its source and swaps it in.
// It returns the number of entries now in service.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// AuditQuerier reads back recorded decisions
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// PrincipalInvalidator drops a cached role assignment
type PrincipalInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type ServerDependencies struct {
	Config      config.ServerConfig
	Holder      *policy.Holder
	Routes      guard.Routes
	Auth        *auth.Middleware
	Recorder    DecisionRecorder
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
	Reloader    Reloader
	Audit       AuditQuerier
	Principals  PrincipalInvalidator
	Health      map[string]profiling.CheckFunc
	Logger      *slog.Logger
}

// Server wraps the Echo server with dependencies
type Server struct {
	echo   *echo.Echo
	deps   *ServerDependencies
	guard  *Guard
	tracer trace.Tracer
}

// NewServer creates a new Echo server with middleware and routes
func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	e.Server.ReadTimeout = deps.Config.ReadTimeout
	e.Server.WriteTimeout = deps.Config.WriteTimeout

	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(defaultRPS, defaultBurst)
	}

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(requestLogger(deps.Logger))
	e.Use(deps.Metrics.Middleware())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	s := &Server{
		echo:   e,
		deps:   deps,
		guard:  NewGuard(deps.Holder, deps.Recorder, deps.Metrics, deps.Logger),
		tracer: otel.Tracer(tracerName),
	}

	s.registerRoutes()

	return s
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	limit := s.deps.RateLimiter.Middleware()

	s.echo.GET("/ping", s.pingHandler)
	profiling.RegisterHealthRoutes(s.echo, s.deps.Health)
	if s.deps.Config.Profiling {
		profiling.RegisterPprofRoutes(s.echo)
	}
	s.deps.Metrics.RegisterRoutes(s.echo.Group("/metrics"))

	v1 := s.echo.Group("/v1", limit)
	v1.POST("/check", s.checkHandler)
	v1.POST("/check/all", s.checkAllHandler)
	v1.POST("/check/any", s.checkAnyHandler)
	v1.GET("/routes", s.listRoutesHandler)
	v1.POST("/routes/check", s.checkRouteHandler)
	v1.GET("/roles/:role/resources", s.roleResourcesHandler)
	v1.GET("/roles/:role/resources/:resource/actions", s.roleActionsHandler)
	v1.GET("/policies", s.listPoliciesHandler)

	if s.deps.Auth == nil {
		return
	}

	// Authenticated routes: limit per user once the token is verified
	authed := []echo.MiddlewareFunc{s.deps.Auth.RequireJWT(), limit, s.deps.Auth.ResolvePrincipal()}

	s.echo.GET("/v1/me/permissions", s.myPermissionsHandler, authed...)
	s.echo.POST("/v1/policies/reload", s.reloadHandler, append(authed,
		middleware.NewStrictRateLimiter().Middleware(),
		s.guard.RequirePermission(presets.ResourceSettings, presets.ActionConfigure))...)
	s.echo.POST("/metrics/reset", s.deps.Metrics.ResetHandler(), append(authed,
		s.guard.RequirePermission(presets.ResourceSettings, presets.ActionConfigure))...)

	if s.deps.Audit != nil {
		s.echo.GET("/v1/audit", s.auditHandler, append(authed,
			s.guard.RequirePermission(presets.ResourceAudit, presets.ActionRead))...)
	}
	if s.deps.Principals != nil {
		s.echo.POST("/v1/principals/:user_id/invalidate", s.invalidatePrincipalHandler, append(authed,
			s.guard.RequirePermission(presets.ResourceUsers, presets.ActionManageUsers))...)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.echo.Start(":" + s.deps.Config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP exposes the router, mainly for tests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}
