package echo

import (
	"log/slog"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/auth"
	"clinic-authz/internal/metrics"
	"clinic-authz/internal/policy"
	apperrors "clinic-authz/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	msgPrincipalMissing = "user not authenticated"
	msgPermissionDenied = "permission denied"
)

// DecisionRecorder receives audit events. audit.Recorder implements it.
type DecisionRecorder interface {
	Record(e audit.Event) bool
}

// Guard enforces catalog permissions on routes served by this process
type Guard struct {
	holder   *policy.Holder
	recorder DecisionRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewGuard(holder *policy.Holder, recorder DecisionRecorder, m *metrics.Metrics, logger *slog.Logger) *Guard {
	return &Guard{holder: holder, recorder: recorder, metrics: m, logger: logger}
}

// RequirePermission creates middleware that lets the request through only if
// the resolved principal holds resource:action. It must run after
// auth.Middleware.ResolvePrincipal.
func (g *Guard) RequirePermission(resource policy.Resource, action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, found := auth.GetPrincipal(c)
			if !found {
				return apperrors.Unauthorized(msgPrincipalMissing)
			}

			ex := g.holder.Load().Explain(resource, action, p.Role, principalContext(c, p))
			g.observe(c, "", resource, action, p.Role, ex)

			if !ex.Allowed {
				return apperrors.Forbidden(msgPermissionDenied)
			}

			return next(c)
		}
	}
}

// observe feeds a decision to metrics, the audit trail and the log. An empty
// route audits the request path.
func (g *Guard) observe(c echo.Context, route string, resource policy.Resource, action policy.Action, role policy.Role, ex policy.Explanation) {
	if g.metrics != nil {
		g.metrics.RecordDecision(resource, ex.Decision)
	}

	if g.recorder != nil {
		e := audit.NewEvent(resource, action, role, ex)
		e.Route = route
		g.recorder.Record(e.WithRequest(c))
	}

	if !ex.Allowed {
		g.logger.Info("permission denied",
			"route", route,
			"resource", resource,
			"action", action,
			"role", role,
			"decision", ex.Decision,
			"reason", ex.Reason,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	}
}
