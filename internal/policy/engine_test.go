package policy_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"clinic-authz/internal/policy"
)

func newEngine(t *testing.T) *policy.Engine {
	t.Helper()
	engine, err := policy.New(validBaseConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

// ============================================================================
// Evaluator Tests
// ============================================================================

func TestCan(t *testing.T) {
	engine := newEngine(t)
	self := policy.Context{UserID: "u1", TargetUserID: "u1"}
	other := policy.Context{UserID: "u1", TargetUserID: "u2"}

	tests := []struct {
		name     string
		resource policy.Resource
		action   policy.Action
		role     policy.Role
		pctx     policy.Context
		expected bool
	}{
		{"Listed role", "dashboard", "read", "staff", policy.Context{}, true},
		{"Unlisted role", "users", "read", "staff", policy.Context{}, false},
		{"Unknown role", "dashboard", "read", "guest", policy.Context{}, false},
		{"Empty role", "dashboard", "read", "", policy.Context{}, false},
		{"Case differs", "dashboard", "read", "Admin", policy.Context{}, false},
		{"Padded role", "dashboard", "read", " admin", policy.Context{}, false},
		{"Unknown resource", "finance", "read", "admin", policy.Context{}, false},
		{"Unknown action", "users", "purge", "admin", policy.Context{}, false},
		{"Action of another resource", "dashboard", "update", "admin", policy.Context{}, false},
		{"Condition met", "users", "update", "staff", self, true},
		{"Condition not met", "users", "update", "staff", other, false},
		{"Condition with empty context", "users", "update", "staff", policy.Context{}, false},
		{"Condition via self flag", "users", "update", "staff", policy.Context{Self: true}, true},
		{"Exempt role skips condition", "users", "update", "admin", other, true},
		{"Exempt role with empty context", "users", "update", "admin", policy.Context{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Can(tt.resource, tt.action, tt.role, tt.pctx)
			if result != tt.expected {
				t.Errorf("Can(%s, %s, %q) = %v, expected %v", tt.resource, tt.action, tt.role, result, tt.expected)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		resource policy.Resource
		action   policy.Action
		role     policy.Role
		wantErr  error
	}{
		{"Granted", "users", "read", "admin", nil},
		{"No policy", "users", "purge", "admin", policy.ErrNoPolicy},
		{"Role not authorized", "users", "read", "staff", policy.ErrRoleNotAuthorized},
		{"Condition not met", "users", "update", "staff", policy.ErrConditionNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Authorize(tt.resource, tt.action, tt.role, policy.Context{})
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Authorize() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, policy.ErrDenied) {
				t.Errorf("Authorize() error should wrap ErrDenied, got: %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() error should wrap %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	engine := newEngine(t)

	entry, ok := engine.Lookup("users", "update")
	if !ok {
		t.Fatal("Lookup(users, update) should find an entry")
	}
	if entry.Condition == nil || entry.Condition.Kind != policy.ConditionIsSelf {
		t.Errorf("Lookup(users, update) condition = %+v, expected is_self", entry.Condition)
	}

	if _, ok := engine.Lookup("users", "purge"); ok {
		t.Error("Lookup(users, purge) should report NotFound")
	}
	if _, ok := engine.Lookup("", ""); ok {
		t.Error("Lookup of empty values should report NotFound")
	}
}

// ============================================================================
// Aggregate Query Tests
// ============================================================================

func TestCanAllCanAny(t *testing.T) {
	engine := newEngine(t)

	dashboard := policy.Permission{Resource: "dashboard", Action: "read"}
	usersRead := policy.Permission{Resource: "users", Action: "read"}
	missing := policy.Permission{Resource: "users", Action: "purge"}

	tests := []struct {
		name    string
		perms   []policy.Permission
		role    policy.Role
		wantAll bool
		wantAny bool
	}{
		{"Empty list", nil, "staff", true, false},
		{"Empty list unknown role", []policy.Permission{}, "guest", true, false},
		{"All granted", []policy.Permission{dashboard, usersRead}, "admin", true, true},
		{"Mixed", []policy.Permission{dashboard, usersRead}, "staff", false, true},
		{"None granted", []policy.Permission{usersRead, missing}, "staff", false, false},
		{"Missing policy", []policy.Permission{dashboard, missing}, "admin", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.CanAll(tt.perms, tt.role, policy.Context{}); got != tt.wantAll {
				t.Errorf("CanAll(%v, %s) = %v, expected %v", tt.perms, tt.role, got, tt.wantAll)
			}
			if got := engine.CanAny(tt.perms, tt.role, policy.Context{}); got != tt.wantAny {
				t.Errorf("CanAny(%v, %s) = %v, expected %v", tt.perms, tt.role, got, tt.wantAny)
			}
		})
	}
}

func TestResourcePermissions(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		resource policy.Resource
		role     policy.Role
		expected []policy.Action
	}{
		{"Admin on users", "users", "admin", []policy.Action{"read", "update"}},
		{"Staff on users skips conditional entry", "users", "staff", nil},
		{"Staff on dashboard", "dashboard", "staff", []policy.Action{"read"}},
		{"Unknown resource", "finance", "admin", nil},
		{"Unknown role", "users", "guest", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ResourcePermissions(tt.resource, tt.role)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ResourcePermissions(%s, %s) = %v, expected %v", tt.resource, tt.role, result, tt.expected)
			}
		})
	}
}

func TestUserResources(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		role     policy.Role
		expected []policy.Resource
	}{
		{"Admin", "admin", []policy.Resource{"users", "dashboard"}},
		{"Staff", "staff", []policy.Resource{"dashboard"}},
		{"Unknown role", "guest", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.UserResources(tt.role)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("UserResources(%s) = %v, expected %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestPermissionMap(t *testing.T) {
	engine := newEngine(t)

	expected := map[policy.Resource][]policy.Action{
		"users":     {"read", "update"},
		"dashboard": {"read"},
	}
	if got := engine.PermissionMap("admin"); !reflect.DeepEqual(got, expected) {
		t.Errorf("PermissionMap(admin) = %v, expected %v", got, expected)
	}
	if got := engine.PermissionMap("guest"); len(got) != 0 {
		t.Errorf("PermissionMap(guest) = %v, expected empty", got)
	}
}

func TestEnumerations(t *testing.T) {
	engine := newEngine(t)
	cfg := validBaseConfig()

	if !reflect.DeepEqual(engine.Roles(), cfg.Roles) {
		t.Errorf("Roles() = %v, expected %v", engine.Roles(), cfg.Roles)
	}
	if !reflect.DeepEqual(engine.Resources(), cfg.Resources) {
		t.Errorf("Resources() = %v, expected %v", engine.Resources(), cfg.Resources)
	}
	if !reflect.DeepEqual(engine.Actions(), cfg.Actions) {
		t.Errorf("Actions() = %v, expected %v", engine.Actions(), cfg.Actions)
	}
	if !reflect.DeepEqual(engine.Entries(), cfg.Entries) {
		t.Errorf("Entries() = %v, expected %v", engine.Entries(), cfg.Entries)
	}
}

func TestConcurrentReads(t *testing.T) {
	engine := newEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				engine.Can("users", "update", "staff", policy.Context{Self: true})
				engine.UserResources("admin")
				engine.Explain("users", "read", "staff", policy.Context{})
			}
		}()
	}
	wg.Wait()
}
