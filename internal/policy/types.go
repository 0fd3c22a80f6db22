package policy

// Resource is a protected category of data or functionality
type Resource string

// Action is an operation performed on a Resource
type Action string

// Role is an opaque authorization level assigned to a principal.
// Roles carry no hierarchy; every Entry lists the exact roles it admits.
type Role string

// Permission is a (Resource, Action) pair, the key of the catalog
type Permission struct {
	Resource Resource `json:"resource" yaml:"resource"`
	Action   Action   `json:"action" yaml:"action"`
}

func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Entry binds a Permission to the roles allowed to exercise it
type Entry struct {
	Resource  Resource   `json:"resource"`
	Action    Action     `json:"action"`
	Roles     []Role     `json:"roles"`
	Condition *Condition `json:"condition,omitempty"`
}

// Permission returns the catalog key of the entry
func (e Entry) Permission() Permission {
	return Permission{Resource: e.Resource, Action: e.Action}
}

// Context carries request-scoped values used by conditions.
// The zero value is the empty context.
type Context struct {
	UserID       string `json:"user_id,omitempty"`
	UnitID       string `json:"unit_id,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	TargetUnitID string `json:"target_unit_id,omitempty"`
	Self         bool   `json:"self,omitempty"`
}
