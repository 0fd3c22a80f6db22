package echo

import (
	"clinic-authz/internal/policy"
	"clinic-authz/internal/principal"

	"github.com/labstack/echo/v4"
)

const (
	paramTargetUserID = "user_id"
	paramTargetUnitID = "unit_id"
)

// principalContext builds the policy context for a guarded route: the caller
// half comes from the principal, the target half from route parameters.
func principalContext(c echo.Context, p principal.Principal) policy.Context {
	pctx := p.Context()
	pctx.TargetUserID = c.Param(paramTargetUserID)
	pctx.TargetUnitID = c.Param(paramTargetUnitID)
	return pctx
}
