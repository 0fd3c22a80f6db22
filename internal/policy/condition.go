package policy

import "slices"

// ConditionKind selects the predicate a Condition applies
type ConditionKind string

const (
	// ConditionIsSelf holds when the operation targets the caller itself
	ConditionIsSelf ConditionKind = "is_self"
	// ConditionSameUnit holds when the target belongs to the caller's unit
	ConditionSameUnit ConditionKind = "same_unit"
)

// Condition restricts an Entry beyond role membership.
// Roles listed in Exempt are granted without evaluating the predicate.
type Condition struct {
	Kind   ConditionKind `json:"kind" yaml:"kind"`
	Exempt []Role        `json:"exempt,omitempty" yaml:"exempt,omitempty"`
}

// IsSelf builds an is_self condition
func IsSelf(exempt ...Role) *Condition {
	return &Condition{Kind: ConditionIsSelf, Exempt: exempt}
}

// SameUnit builds a same_unit condition
func SameUnit(exempt ...Role) *Condition {
	return &Condition{Kind: ConditionSameUnit, Exempt: exempt}
}

// Known reports whether the kind is one the engine can evaluate
func (k ConditionKind) Known() bool {
	switch k {
	case ConditionIsSelf, ConditionSameUnit:
		return true
	default:
		return false
	}
}

// Exempts reports whether role bypasses the predicate
func (c *Condition) Exempts(role Role) bool {
	return c != nil && slices.Contains(c.Exempt, role)
}

// Holds evaluates the predicate. Missing context fields never match.
func (c *Condition) Holds(pctx Context) bool {
	if c == nil {
		return true
	}

	switch c.Kind {
	case ConditionIsSelf:
		if pctx.Self {
			return true
		}
		return pctx.UserID != "" && pctx.UserID == pctx.TargetUserID
	case ConditionSameUnit:
		return pctx.UnitID != "" && pctx.UnitID == pctx.TargetUnitID
	default:
		return false
	}
}

func (c *Condition) clone() *Condition {
	if c == nil {
		return nil
	}
	return &Condition{Kind: c.Kind, Exempt: slices.Clone(c.Exempt)}
}
