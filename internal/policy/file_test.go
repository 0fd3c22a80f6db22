package policy_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"clinic-authz/internal/policy"
	"clinic-authz/internal/policy/presets"
)

const sampleYAML = `
roles: [admin, funcionario]
resources: [dashboard, users]
actions: [read, update]
policies:
  - resource: dashboard
    action: read
    roles: [admin, funcionario]
  - resource: users
    action: update
    roles: [admin, funcionario]
    condition:
      kind: is_self
      exempt: [admin]
`

func TestLoadConfig(t *testing.T) {
	cfg, err := policy.LoadConfig(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}

	engine, err := policy.New(cfg)
	if err != nil {
		t.Fatalf("loaded config should be valid: %v", err)
	}

	if !engine.Can("dashboard", "read", "funcionario", policy.Context{}) {
		t.Error("funcionario should read the dashboard")
	}
	if engine.Can("users", "update", "funcionario", policy.Context{}) {
		t.Error("funcionario should not update users without is_self")
	}
	if !engine.Can("users", "update", "admin", policy.Context{}) {
		t.Error("admin is exempt from is_self")
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	doc := sampleYAML + "hierarchy: [admin]\n"
	if _, err := policy.LoadConfig(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadConfig() should reject unknown top-level fields")
	}

	doc = strings.Replace(sampleYAML, "kind: is_self", "kind: is_self\n      when: always", 1)
	if _, err := policy.LoadConfig(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadConfig() should reject unknown condition fields")
	}
}

func TestLoadConfigLeavesValidationToNew(t *testing.T) {
	doc := strings.Replace(sampleYAML, "kind: is_self", "kind: owner", 1)
	cfg, err := policy.LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}
	if _, err := policy.New(cfg); !errors.Is(err, policy.ErrInvalidConfig) {
		t.Fatalf("New() should reject unknown condition kind, got: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	cfg, err := policy.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() unexpected error: %v", err)
	}
	if len(cfg.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(cfg.Entries))
	}

	if _, err := policy.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfigFile() should fail for a missing file")
	}
}

func TestMarshalConfigRoundTrip(t *testing.T) {
	original := presets.Clinic()

	data, err := policy.MarshalConfig(original)
	if err != nil {
		t.Fatalf("MarshalConfig() unexpected error: %v", err)
	}

	loaded, err := policy.LoadConfig(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("LoadConfig() of marshalled preset failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, original) {
		t.Error("marshalled preset should load back to the same config")
	}
}
