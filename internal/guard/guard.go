package guard

import (
	"fmt"
	"slices"

	"clinic-authz/internal/policy"
	"clinic-authz/internal/policy/presets"
)

const errRouteUnknownPermissionFmt = "route %s requires %s which has no policy entry"

// Routes maps a route path to the permissions it needs.
// A route declared with no permissions is public.
type Routes map[string][]policy.Permission

// CanAccessRoute reports whether role may open route. Unknown routes deny.
func CanAccessRoute(engine *policy.Engine, routes Routes, route string, role policy.Role, pctx policy.Context) bool {
	required, ok := routes[route]
	if !ok {
		return false
	}
	return engine.CanAll(required, role, pctx)
}

// Required returns the permissions declared for route
func (r Routes) Required(route string) ([]policy.Permission, bool) {
	perms, ok := r[route]
	return slices.Clone(perms), ok
}

// Paths returns the declared routes in lexical order
func (r Routes) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Validate reports every route that references a pair missing from the catalog
func (r Routes) Validate(engine *policy.Engine) []error {
	var errs []error
	for _, path := range r.Paths() {
		for _, perm := range r[path] {
			if _, ok := engine.Lookup(perm.Resource, perm.Action); !ok {
				errs = append(errs, fmt.Errorf(errRouteUnknownPermissionFmt, path, perm))
			}
		}
	}
	return errs
}

func perm(res policy.Resource, act policy.Action) policy.Permission {
	return policy.Permission{Resource: res, Action: act}
}

// Clinic returns the back office route table
func Clinic() Routes {
	return Routes{
		"/login":           {},
		"/dashboard":       {perm(presets.ResourceDashboard, presets.ActionRead)},
		"/clients":         {perm(presets.ResourceClients, presets.ActionRead)},
		"/clients/new":     {perm(presets.ResourceClients, presets.ActionRead), perm(presets.ResourceClients, presets.ActionCreate)},
		"/schedule":        {perm(presets.ResourceSchedule, presets.ActionRead)},
		"/professionals":   {perm(presets.ResourceProfessionals, presets.ActionRead)},
		"/finance":         {perm(presets.ResourceFinance, presets.ActionRead)},
		"/finance/revenue": {perm(presets.ResourceFinance, presets.ActionRead), perm(presets.ResourceFinance, presets.ActionViewRevenue)},
		"/reports":         {perm(presets.ResourceReports, presets.ActionViewReports)},
		"/users":           {perm(presets.ResourceUsers, presets.ActionRead)},
		"/settings":        {perm(presets.ResourceSettings, presets.ActionRead)},
		"/audit":           {perm(presets.ResourceAudit, presets.ActionRead)},
	}
}
