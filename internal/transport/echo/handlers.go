package echo

import (
	"errors"

	"clinic-authz/internal/auth"
	"clinic-authz/internal/guard"
	"clinic-authz/internal/policy"
	apperrors "clinic-authz/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPolicyCheck = "policy.check"

	msgInvalidBody       = "invalid request body"
	msgReloadUnavailable = "policy reload is not configured"
	msgRouteRequired     = "route is required"
	msgRouteUnknown      = "route is not in the guard table"
)

type checkRequest struct {
	Resource policy.Resource `json:"resource"`
	Action   policy.Action   `json:"action"`
	Role     policy.Role     `json:"role"`
	Context  policy.Context  `json:"context"`
}

type checkSetRequest struct {
	Permissions []policy.Permission `json:"permissions"`
	Role        policy.Role         `json:"role"`
	Context     policy.Context      `json:"context"`
}

type routeCheckRequest struct {
	Route   string         `json:"route"`
	Role    policy.Role    `json:"role"`
	Context policy.Context `json:"context"`
}

type allowedResponse struct {
	Allowed bool `json:"allowed"`
}

func (s *Server) pingHandler(c echo.Context) error {
	return ok(c, map[string]string{"message": "pong"})
}

func (s *Server) checkHandler(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest(msgInvalidBody)
	}

	span := s.startSpan(c, attribute.String("authz.resource", string(req.Resource)),
		attribute.String("authz.action", string(req.Action)),
		attribute.String("authz.role", string(req.Role)))
	defer span.End()

	ex := s.deps.Holder.Load().Explain(req.Resource, req.Action, req.Role, req.Context)
	s.guard.observe(c, "", req.Resource, req.Action, req.Role, ex)
	endSpan(span, ex.Allowed, attribute.String("authz.decision", string(ex.Decision)))

	return ok(c, ex)
}

func (s *Server) checkAllHandler(c echo.Context) error {
	return s.checkSet(c, "all", (*policy.Engine).CanAll)
}

func (s *Server) checkAnyHandler(c echo.Context) error {
	return s.checkSet(c, "any", (*policy.Engine).CanAny)
}

func (s *Server) checkSet(c echo.Context, mode string, eval func(*policy.Engine, []policy.Permission, policy.Role, policy.Context) bool) error {
	var req checkSetRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest(msgInvalidBody)
	}

	span := s.startSpan(c, attribute.String("authz.mode", mode),
		attribute.String("authz.role", string(req.Role)),
		attribute.Int("authz.permissions", len(req.Permissions)))
	defer span.End()

	engine := s.deps.Holder.Load()
	s.observeEach(c, engine, "", req.Permissions, req.Role, req.Context)
	allowed := eval(engine, req.Permissions, req.Role, req.Context)
	endSpan(span, allowed)

	return ok(c, allowedResponse{Allowed: allowed})
}

// observeEach records every permission of a set check, evaluated against the
// same engine snapshot that decides the response.
func (s *Server) observeEach(c echo.Context, engine *policy.Engine, route string, perms []policy.Permission, role policy.Role, pctx policy.Context) {
	for _, p := range perms {
		ex := engine.Explain(p.Resource, p.Action, role, pctx)
		s.guard.observe(c, route, p.Resource, p.Action, role, ex)
	}
}

func (s *Server) listRoutesHandler(c echo.Context) error {
	return ok(c, s.deps.Routes)
}

func (s *Server) checkRouteHandler(c echo.Context) error {
	var req routeCheckRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest(msgInvalidBody)
	}
	if req.Route == "" {
		return apperrors.BadRequest(msgRouteRequired)
	}

	span := s.startSpan(c, attribute.String("authz.route", req.Route),
		attribute.String("authz.role", string(req.Role)))
	defer span.End()

	engine := s.deps.Holder.Load()
	if required, known := s.deps.Routes.Required(req.Route); known {
		s.observeEach(c, engine, req.Route, required, req.Role, req.Context)
	} else {
		s.guard.observe(c, req.Route, "", "", req.Role, policy.Explanation{
			Decision: policy.DecisionDenyNoPolicy,
			Reason:   msgRouteUnknown,
		})
	}
	allowed := guard.CanAccessRoute(engine, s.deps.Routes, req.Route, req.Role, req.Context)
	endSpan(span, allowed)

	return ok(c, allowedResponse{Allowed: allowed})
}

func (s *Server) roleResourcesHandler(c echo.Context) error {
	role := policy.Role(c.Param("role"))

	return ok(c, map[string]any{
		"role":      role,
		"resources": nonNil(s.deps.Holder.Load().UserResources(role)),
	})
}

func (s *Server) roleActionsHandler(c echo.Context) error {
	role := policy.Role(c.Param("role"))
	resource := policy.Resource(c.Param("resource"))

	return ok(c, map[string]any{
		"role":     role,
		"resource": resource,
		"actions":  nonNil(s.deps.Holder.Load().ResourcePermissions(resource, role)),
	})
}

func (s *Server) listPoliciesHandler(c echo.Context) error {
	return ok(c, s.deps.Holder.Load().Entries())
}

func (s *Server) myPermissionsHandler(c echo.Context) error {
	p, found := auth.GetPrincipal(c)
	if !found {
		return apperrors.Unauthorized(msgPrincipalMissing)
	}

	engine := s.deps.Holder.Load()
	return ok(c, map[string]any{
		"principal":   p,
		"resources":   nonNil(engine.UserResources(p.Role)),
		"permissions": engine.PermissionMap(p.Role),
	})
}

func (s *Server) reloadHandler(c echo.Context) error {
	if s.deps.Reloader == nil {
		return apperrors.Unavailable(msgReloadUnavailable)
	}

	n, err := s.deps.Reloader.Reload(c.Request().Context())
	if errors.Is(err, policy.ErrInvalidConfig) {
		return err
	}
	if err != nil {
		return apperrors.InternalServer("failed to reload policy", err)
	}

	s.deps.Logger.Info("policy reloaded", "entries", n)

	return ok(c, map[string]int{"entries": n})
}

// startSpan opens a policy.check span and makes it the parent of
// anything the handler does with the request context
func (s *Server) startSpan(c echo.Context, attrs ...attribute.KeyValue) trace.Span {
	ctx, span := s.tracer.Start(c.Request().Context(), spanPolicyCheck, trace.WithAttributes(attrs...))
	c.SetRequest(c.Request().WithContext(ctx))
	return span
}

func endSpan(span trace.Span, allowed bool, attrs ...attribute.KeyValue) {
	span.SetAttributes(append(attrs, attribute.Bool("authz.allowed", allowed))...)
}

// nonNil keeps empty sets encoded as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
