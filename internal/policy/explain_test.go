package policy_test

import (
	"reflect"
	"strings"
	"testing"

	"clinic-authz/internal/policy"
)

func TestExplain(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		resource policy.Resource
		action   policy.Action
		role     policy.Role
		pctx     policy.Context
		decision policy.Decision
		reason   string
		roles    []policy.Role
		hasCond  bool
	}{
		{
			"Granted", "users", "read", "admin", policy.Context{},
			policy.DecisionAllow,
			`permission granted to role "admin" for users:read`,
			[]policy.Role{"admin"}, false,
		},
		{
			"No policy", "users", "purge", "admin", policy.Context{},
			policy.DecisionDenyNoPolicy,
			"no policy defined for users:purge",
			nil, false,
		},
		{
			"Role not authorized", "users", "read", "staff", policy.Context{},
			policy.DecisionDenyRole,
			`role "staff" not authorized for users:read; permitted roles: admin`,
			[]policy.Role{"admin"}, false,
		},
		{
			"Role not authorized lists all roles", "users", "update", "guest", policy.Context{},
			policy.DecisionDenyRole,
			`role "guest" not authorized for users:update; permitted roles: admin, staff`,
			[]policy.Role{"admin", "staff"}, true,
		},
		{
			"Caller role spells the allow marker", "users", "read", "granted", policy.Context{},
			policy.DecisionDenyRole,
			`role "gr*nted" not authorized for users:read; permitted roles: admin`,
			[]policy.Role{"admin"}, false,
		},
		{
			"Caller permission spells the allow marker", "granted", "granted", "admin", policy.Context{},
			policy.DecisionDenyNoPolicy,
			"no policy defined for gr*nted:gr*nted",
			nil, false,
		},
		{
			"Condition not met", "users", "update", "staff", policy.Context{UserID: "u1", TargetUserID: "u2"},
			policy.DecisionDenyCondition,
			`condition is_self not met for role "staff" on users:update`,
			[]policy.Role{"admin", "staff"}, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := engine.Explain(tt.resource, tt.action, tt.role, tt.pctx)
			if ex.Decision != tt.decision {
				t.Errorf("Decision = %s, expected %s", ex.Decision, tt.decision)
			}
			if ex.Reason != tt.reason {
				t.Errorf("Reason = %q, expected %q", ex.Reason, tt.reason)
			}
			if !reflect.DeepEqual(ex.PermittedRoles, tt.roles) {
				t.Errorf("PermittedRoles = %v, expected %v", ex.PermittedRoles, tt.roles)
			}
			if (ex.Condition != nil) != tt.hasCond {
				t.Errorf("Condition = %+v, expected present=%v", ex.Condition, tt.hasCond)
			}
			if ex.Allowed != engine.Can(tt.resource, tt.action, tt.role, tt.pctx) {
				t.Errorf("Allowed = %v disagrees with Can", ex.Allowed)
			}
			if got := engine.ExplainPermission(tt.resource, tt.action, tt.role, tt.pctx); got != ex.Reason {
				t.Errorf("ExplainPermission() = %q, expected %q", got, ex.Reason)
			}
		})
	}
}

func TestExplainGrantedOnlyWhenAllowed(t *testing.T) {
	engine := newEngine(t)
	contexts := []policy.Context{
		{},
		{Self: true},
		{UserID: "u1", TargetUserID: "u2"},
	}

	for _, res := range append(engine.Resources(), "finance", "granted", "ungranted_files") {
		for _, act := range append(engine.Actions(), "purge", "granted") {
			for _, role := range append(engine.Roles(), "Admin", "", "granted", "granted_viewer") {
				for _, pctx := range contexts {
					reason := engine.ExplainPermission(res, act, role, pctx)
					granted := strings.Contains(reason, "granted")
					if granted != engine.Can(res, act, role, pctx) {
						t.Errorf("ExplainPermission(%s, %s, %q) = %q disagrees with Can", res, act, role, reason)
					}
				}
			}
		}
	}
}
