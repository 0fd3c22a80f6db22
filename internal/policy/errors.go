package policy

import "errors"

var (
	ErrDenied            = errors.New("authorization denied")
	ErrNoPolicy          = errors.New("no policy defined")
	ErrRoleNotAuthorized = errors.New("role not authorized")
	ErrConditionNotMet   = errors.New("condition not met")
	ErrInvalidConfig     = errors.New("invalid policy config")
)

const (
	errConfigRolesEmpty                  = "roles must not be empty"
	errConfigResourcesEmpty              = "resources must not be empty"
	errConfigActionsEmpty                = "actions must not be empty"
	errConfigEntriesEmpty                = "policy entries must not be empty"
	errConfigRoleNameEmpty               = "role name must not be empty"
	errConfigDuplicateRoleFmt            = "duplicate role: %s"
	errConfigResourceEmpty               = "resource must not be empty"
	errConfigDuplicateResourceFmt        = "duplicate resource: %s"
	errConfigActionEmpty                 = "action must not be empty"
	errConfigDuplicateActionFmt          = "duplicate action: %s"
	errConfigReservedNameFmt             = "%s name %q contains the reserved word %q"
	errConfigEntryUnknownResourceFmt     = "entry %s references unknown resource: %s"
	errConfigEntryUnknownActionFmt       = "entry %s references unknown action: %s"
	errConfigEntryUnknownRoleFmt         = "entry %s references unknown role: %s"
	errConfigEntryDuplicateFmt           = "duplicate entry for %s"
	errConfigEntryRolesEmptyFmt          = "entry %s has an empty role set"
	errConfigEntryDuplicateRoleFmt       = "entry %s lists role %s twice"
	errConfigConditionUnknownKindFmt     = "entry %s has unknown condition kind: %q"
	errConfigConditionExemptNotListedFmt = "entry %s exempts role %s which it does not permit"
	errConfigWrapFmt                     = "%w: %s"
	errMustNewPanicFmt                   = "policy.MustNew: %v"
	errReadFileFmt                       = "read policy file %s: %w"
	errDecodeYAMLFmt                     = "decode policy yaml: %w"

	msgNoPolicyFmt          = "no policy defined for %s"
	msgRoleNotAuthorizedFmt = "role %q not authorized for %s; permitted roles: %s"
	msgConditionNotMetFmt   = "condition %s not met for role %q on %s"
	msgGrantedFmt           = "permission granted to role %q for %s"
	errDeniedFmt            = "%w: %w: %s"
)
