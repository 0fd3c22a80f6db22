package policy

import (
	"fmt"
	"slices"
)

// rule is the compiled form of an Entry
type rule struct {
	entry Entry
	roles map[Role]bool
}

// Engine answers authorization questions against a validated Config.
// It is safe for concurrent use: all state is read-only after New.
type Engine struct {
	config Config

	rules      map[Permission]*rule
	byResource map[Resource][]Action
}

// New creates an Engine from a validated Config
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{config: cloneConfig(cfg)}
	e.buildLookups()
	return e, nil
}

// MustNew creates an Engine and panics on invalid config.
// Use it with the built-in presets at startup.
func MustNew(cfg Config) *Engine {
	e, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return e
}

func (e *Engine) buildLookups() {
	cfg := e.config

	e.rules = make(map[Permission]*rule, len(cfg.Entries))
	e.byResource = make(map[Resource][]Action, len(cfg.Resources))
	for _, entry := range cfg.Entries {
		roles := make(map[Role]bool, len(entry.Roles))
		for _, r := range entry.Roles {
			roles[r] = true
		}
		e.rules[entry.Permission()] = &rule{entry: entry, roles: roles}
		e.byResource[entry.Resource] = append(e.byResource[entry.Resource], entry.Action)
	}
}

// Lookup returns the entry for a (resource, action) pair.
// Values outside the declared enumerations simply report false.
func (e *Engine) Lookup(resource Resource, action Action) (Entry, bool) {
	r, ok := e.rules[Permission{Resource: resource, Action: action}]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(r.entry), true
}

// Can reports whether role may perform action on resource
func (e *Engine) Can(resource Resource, action Action, role Role, pctx Context) bool {
	return e.evaluate(resource, action, role, pctx) == DecisionAllow
}

// Authorize is the error-returning form of Can.
// Denials wrap ErrDenied and one of ErrNoPolicy, ErrRoleNotAuthorized or ErrConditionNotMet.
func (e *Engine) Authorize(resource Resource, action Action, role Role, pctx Context) error {
	ex := e.Explain(resource, action, role, pctx)
	switch ex.Decision {
	case DecisionAllow:
		return nil
	case DecisionDenyNoPolicy:
		return fmt.Errorf(errDeniedFmt, ErrDenied, ErrNoPolicy, ex.Reason)
	case DecisionDenyRole:
		return fmt.Errorf(errDeniedFmt, ErrDenied, ErrRoleNotAuthorized, ex.Reason)
	default:
		return fmt.Errorf(errDeniedFmt, ErrDenied, ErrConditionNotMet, ex.Reason)
	}
}

// CanAll reports whether every permission is granted. An empty list is granted.
func (e *Engine) CanAll(perms []Permission, role Role, pctx Context) bool {
	for _, p := range perms {
		if !e.Can(p.Resource, p.Action, role, pctx) {
			return false
		}
	}
	return true
}

// CanAny reports whether at least one permission is granted. An empty list is denied.
func (e *Engine) CanAny(perms []Permission, role Role, pctx Context) bool {
	for _, p := range perms {
		if e.Can(p.Resource, p.Action, role, pctx) {
			return true
		}
	}
	return false
}

// ResourcePermissions lists the actions role may perform on resource with an empty context.
// Entries guarded by a condition only count when role is exempt from it.
func (e *Engine) ResourcePermissions(resource Resource, role Role) []Action {
	var actions []Action
	for _, action := range e.byResource[resource] {
		if e.Can(resource, action, role, Context{}) {
			actions = append(actions, action)
		}
	}
	return actions
}

// UserResources lists the resources on which role has at least one permitted action
func (e *Engine) UserResources(role Role) []Resource {
	var resources []Resource
	for _, res := range e.config.Resources {
		if len(e.ResourcePermissions(res, role)) > 0 {
			resources = append(resources, res)
		}
	}
	return resources
}

// PermissionMap returns ResourcePermissions for every resource in UserResources
func (e *Engine) PermissionMap(role Role) map[Resource][]Action {
	out := make(map[Resource][]Action)
	for _, res := range e.config.Resources {
		if actions := e.ResourcePermissions(res, role); len(actions) > 0 {
			out[res] = actions
		}
	}
	return out
}

// Entries returns a copy of the catalog in declaration order
func (e *Engine) Entries() []Entry {
	out := make([]Entry, 0, len(e.config.Entries))
	for _, entry := range e.config.Entries {
		out = append(out, cloneEntry(entry))
	}
	return out
}

// Roles returns the declared roles
func (e *Engine) Roles() []Role {
	return slices.Clone(e.config.Roles)
}

// Resources returns the declared resources
func (e *Engine) Resources() []Resource {
	return slices.Clone(e.config.Resources)
}

// Actions returns the declared actions
func (e *Engine) Actions() []Action {
	return slices.Clone(e.config.Actions)
}

func (e *Engine) evaluate(resource Resource, action Action, role Role, pctx Context) Decision {
	r, ok := e.rules[Permission{Resource: resource, Action: action}]
	if !ok {
		return DecisionDenyNoPolicy
	}
	if !r.roles[role] {
		return DecisionDenyRole
	}
	cond := r.entry.Condition
	if cond != nil && !cond.Exempts(role) && !cond.Holds(pctx) {
		return DecisionDenyCondition
	}
	return DecisionAllow
}

func cloneEntry(e Entry) Entry {
	return Entry{
		Resource:  e.Resource,
		Action:    e.Action,
		Roles:     slices.Clone(e.Roles),
		Condition: e.Condition.clone(),
	}
}

func cloneConfig(cfg Config) Config {
	entries := make([]Entry, 0, len(cfg.Entries))
	for _, e := range cfg.Entries {
		entries = append(entries, cloneEntry(e))
	}
	return Config{
		Roles:     slices.Clone(cfg.Roles),
		Resources: slices.Clone(cfg.Resources),
		Actions:   slices.Clone(cfg.Actions),
		Entries:   entries,
	}
}
