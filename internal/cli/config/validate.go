package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/autodash/internal/cli/output"
	"github.com/leapstack-labs/autodash/pkg/adapter"
)

// Validate checks the configuration values that do not depend on the target.
func (c *Config) Validate() error {
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.MaxCandidatesPerCard < 0 {
		return fmt.Errorf("max_candidates_per_card must not be negative, got %d", c.MaxCandidatesPerCard)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	if !output.Mode(c.OutputFormat).IsValid() {
		return fmt.Errorf("invalid output format %q (expected one of %v)", c.OutputFormat, output.ValidModes)
	}
	return nil
}

// Validate checks that the target names a registered adapter.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// ApplyDefaults normalises the type and fills the schema, port and catalog
// name when unset.
func (t *TargetConfig) ApplyDefaults() {
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Port == 0 && t.Type == "postgres" {
		t.Port = 5432
	}
	if t.Name == "" {
		t.Name = t.Database
	}
	if t.Name == "" || t.Name == ":memory:" {
		t.Name = t.Type
	}
}

// AdapterConfig converts the target into an adapter configuration. File-based
// engines take Database as their path.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}

// DefaultSchemaForType returns the default schema of a registered adapter
// type, or "main" for unknown types.
func DefaultSchemaForType(dbType string) string {
	factory, ok := adapter.Get(strings.ToLower(dbType))
	if !ok {
		return "main"
	}
	return factory(nil).DefaultSchema()
}
