package policy

import (
	"fmt"
	"strings"
)

// Config is the literal policy table together with the enumerations it draws from
type Config struct {
	Roles     []Role
	Resources []Resource
	Actions   []Action
	Entries   []Entry
}

// Validate checks internal consistency of the Config.
// Every returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf(errConfigWrapFmt, ErrInvalidConfig, err.Error())
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf(errConfigResourcesEmpty)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf(errConfigActionsEmpty)
	}
	if len(c.Entries) == 0 {
		return fmt.Errorf(errConfigEntriesEmpty)
	}

	roleSet := make(map[Role]bool, len(c.Roles))
	for _, r := range c.Roles {
		if r == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if strings.Contains(string(r), allowMarker) {
			return fmt.Errorf(errConfigReservedNameFmt, "role", r, allowMarker)
		}
		if roleSet[r] {
			return fmt.Errorf(errConfigDuplicateRoleFmt, r)
		}
		roleSet[r] = true
	}

	resSet := make(map[Resource]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r == "" {
			return fmt.Errorf(errConfigResourceEmpty)
		}
		if strings.Contains(string(r), allowMarker) {
			return fmt.Errorf(errConfigReservedNameFmt, "resource", r, allowMarker)
		}
		if resSet[r] {
			return fmt.Errorf(errConfigDuplicateResourceFmt, r)
		}
		resSet[r] = true
	}

	actSet := make(map[Action]bool, len(c.Actions))
	for _, a := range c.Actions {
		if a == "" {
			return fmt.Errorf(errConfigActionEmpty)
		}
		if strings.Contains(string(a), allowMarker) {
			return fmt.Errorf(errConfigReservedNameFmt, "action", a, allowMarker)
		}
		if actSet[a] {
			return fmt.Errorf(errConfigDuplicateActionFmt, a)
		}
		actSet[a] = true
	}

	seen := make(map[Permission]bool, len(c.Entries))
	for _, e := range c.Entries {
		key := e.Permission()
		if !resSet[e.Resource] {
			return fmt.Errorf(errConfigEntryUnknownResourceFmt, key, e.Resource)
		}
		if !actSet[e.Action] {
			return fmt.Errorf(errConfigEntryUnknownActionFmt, key, e.Action)
		}
		if seen[key] {
			return fmt.Errorf(errConfigEntryDuplicateFmt, key)
		}
		seen[key] = true

		if len(e.Roles) == 0 {
			return fmt.Errorf(errConfigEntryRolesEmptyFmt, key)
		}
		listed := make(map[Role]bool, len(e.Roles))
		for _, r := range e.Roles {
			if !roleSet[r] {
				return fmt.Errorf(errConfigEntryUnknownRoleFmt, key, r)
			}
			if listed[r] {
				return fmt.Errorf(errConfigEntryDuplicateRoleFmt, key, r)
			}
			listed[r] = true
		}

		if e.Condition == nil {
			continue
		}
		if !e.Condition.Kind.Known() {
			return fmt.Errorf(errConfigConditionUnknownKindFmt, key, e.Condition.Kind)
		}
		for _, r := range e.Condition.Exempt {
			if !listed[r] {
				return fmt.Errorf(errConfigConditionExemptNotListedFmt, key, r)
			}
		}
	}

	return nil
}
