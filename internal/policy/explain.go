package policy

import (
	"fmt"
	"strings"
)

// allowMarker appears in a reason only when the decision is allow. Catalog
// names may not contain it and caller tokens echoed in deny reasons are masked.
const (
	allowMarker       = "granted"
	maskedAllowMarker = "gr*nted"
)

var markerMasker = strings.NewReplacer(allowMarker, maskedAllowMarker)

// Decision categorizes the outcome of an evaluation
type Decision string

const (
	DecisionAllow         Decision = "allow"
	DecisionDenyNoPolicy  Decision = "deny_no_policy"
	DecisionDenyRole      Decision = "deny_role"
	DecisionDenyCondition Decision = "deny_condition"
)

// Explanation is the diagnostic form of a decision, meant for logs and support tooling
type Explanation struct {
	Allowed        bool       `json:"allowed"`
	Decision       Decision   `json:"decision"`
	Reason         string     `json:"reason"`
	PermittedRoles []Role     `json:"permitted_roles,omitempty"`
	Condition      *Condition `json:"condition,omitempty"`
}

// Explain evaluates the request exactly like Can and reports why
func (e *Engine) Explain(resource Resource, action Action, role Role, pctx Context) Explanation {
	key := Permission{Resource: resource, Action: action}
	decision := e.evaluate(resource, action, role, pctx)

	ex := Explanation{
		Allowed:  decision == DecisionAllow,
		Decision: decision,
	}
	if r, ok := e.rules[key]; ok {
		entry := cloneEntry(r.entry)
		ex.PermittedRoles = entry.Roles
		ex.Condition = entry.Condition
	}

	switch decision {
	case DecisionAllow:
		ex.Reason = fmt.Sprintf(msgGrantedFmt, role, key)
	case DecisionDenyNoPolicy:
		ex.Reason = fmt.Sprintf(msgNoPolicyFmt, mask(key.String()))
	case DecisionDenyRole:
		ex.Reason = fmt.Sprintf(msgRoleNotAuthorizedFmt, mask(string(role)), mask(key.String()), mask(joinRoles(ex.PermittedRoles)))
	case DecisionDenyCondition:
		ex.Reason = fmt.Sprintf(msgConditionNotMetFmt, ex.Condition.Kind, mask(string(role)), mask(key.String()))
	}

	return ex
}

// ExplainPermission returns the human-readable reason for a decision
func (e *Engine) ExplainPermission(resource Resource, action Action, role Role, pctx Context) string {
	return e.Explain(resource, action, role, pctx).Reason
}

func mask(token string) string {
	return markerMasker.Replace(token)
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
