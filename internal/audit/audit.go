package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"clinic-authz/internal/policy"
)

// ContextKeyUserID is the echo context key holding the authenticated user id
const ContextKeyUserID = "user_id"

// Event records a single authorization decision
type Event struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Role      policy.Role     `json:"role"`
	Resource  policy.Resource `json:"resource"`
	Action    policy.Action   `json:"action"`
	Decision  policy.Decision `json:"decision"`
	Allowed   bool            `json:"allowed"`
	Reason    string          `json:"reason"`
	Route     string          `json:"route,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds an event from an explained decision
func NewEvent(resource policy.Resource, action policy.Action, role policy.Role, ex policy.Explanation) Event {
	return Event{
		ID:        uuid.New(),
		Role:      role,
		Resource:  resource,
		Action:    action,
		Decision:  ex.Decision,
		Allowed:   ex.Allowed,
		Reason:    ex.Reason,
		CreatedAt: time.Now().UTC(),
	}
}

// WithRequest fills the request metadata of the event from an echo context
func (e Event) WithRequest(c echo.Context) Event {
	e.IPAddress = c.RealIP()
	e.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	if e.Route == "" {
		e.Route = c.Path()
	}
	if userID, ok := c.Get(ContextKeyUserID).(uuid.UUID); ok {
		e.UserID = &userID
	}
	return e
}

// Sink persists batches of events
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// QueryFilter narrows an audit query. Nil fields are ignored.
type QueryFilter struct {
	UserID    *uuid.UUID
	Resource  *policy.Resource
	Action    *policy.Action
	Decision  *policy.Decision
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}
