package policy

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Roles     []Role      `yaml:"roles"`
	Resources []Resource  `yaml:"resources"`
	Actions   []Action    `yaml:"actions"`
	Policies  []fileEntry `yaml:"policies"`
}

type fileEntry struct {
	Resource  Resource   `yaml:"resource"`
	Action    Action     `yaml:"action"`
	Roles     []Role     `yaml:"roles"`
	Condition *Condition `yaml:"condition,omitempty"`
}

// LoadConfig decodes a policy table from YAML. Unknown fields are rejected.
// The result is not validated; pass it to New.
func LoadConfig(r io.Reader) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fc fileConfig
	if err := dec.Decode(&fc); err != nil {
		return Config{}, fmt.Errorf(errDecodeYAMLFmt, err)
	}

	cfg := Config{
		Roles:     fc.Roles,
		Resources: fc.Resources,
		Actions:   fc.Actions,
		Entries:   make([]Entry, 0, len(fc.Policies)),
	}
	for _, p := range fc.Policies {
		cfg.Entries = append(cfg.Entries, Entry(p))
	}
	return cfg, nil
}

// LoadConfigFile reads and decodes a YAML policy table from path
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf(errReadFileFmt, path, err)
	}
	return LoadConfig(bytes.NewReader(data))
}

// MarshalConfig encodes a policy table as YAML, the inverse of LoadConfig
func MarshalConfig(cfg Config) ([]byte, error) {
	fc := fileConfig{
		Roles:     cfg.Roles,
		Resources: cfg.Resources,
		Actions:   cfg.Actions,
		Policies:  make([]fileEntry, 0, len(cfg.Entries)),
	}
	for _, e := range cfg.Entries {
		fc.Policies = append(fc.Policies, fileEntry(e))
	}
	return yaml.Marshal(fc)
}
