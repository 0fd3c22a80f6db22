package echo

import (
	"time"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/policy"
	apperrors "clinic-authz/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	maxAuditQueryLimit = 1000

	msgInvalidAuditQuery = "invalid audit query"
	msgInvalidUserID     = "invalid user id"
)

// auditHandler lists recorded decisions. Every filter is optional; times are RFC 3339.
func (s *Server) auditHandler(c echo.Context) error {
	var (
		f                                  audit.QueryFilter
		userID, resource, action, decision string
		since, until                       time.Time
	)

	err := echo.QueryParamsBinder(c).
		String("user_id", &userID).
		String("resource", &resource).
		String("action", &action).
		String("decision", &decision).
		Time("since", &since, time.RFC3339).
		Time("until", &until, time.RFC3339).
		Int("limit", &f.Limit).
		Int("offset", &f.Offset).
		BindError()
	if err != nil || f.Limit < 0 || f.Limit > maxAuditQueryLimit || f.Offset < 0 {
		return apperrors.BadRequest(msgInvalidAuditQuery)
	}

	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return apperrors.BadRequest(msgInvalidUserID)
		}
		f.UserID = &id
	}
	if resource != "" {
		r := policy.Resource(resource)
		f.Resource = &r
	}
	if action != "" {
		a := policy.Action(action)
		f.Action = &a
	}
	if decision != "" {
		d := policy.Decision(decision)
		f.Decision = &d
	}
	if !since.IsZero() {
		f.StartTime = &since
	}
	if !until.IsZero() {
		f.EndTime = &until
	}

	events, err := s.deps.Audit.Query(c.Request().Context(), f)
	if err != nil {
		return apperrors.InternalServer("failed to query audit events", err)
	}

	return ok(c, nonNil(events))
}

func (s *Server) invalidatePrincipalHandler(c echo.Context) error {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apperrors.BadRequest(msgInvalidUserID)
	}

	if err := s.deps.Principals.Invalidate(c.Request().Context(), id); err != nil {
		return apperrors.InternalServer("failed to invalidate principal", err)
	}

	s.deps.Logger.Info("principal cache invalidated", "user_id", id)

	return ok(c, map[string]string{"user_id": id.String()})
}
