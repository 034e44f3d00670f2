// Package config provides configuration management for the autodash CLI.
package config

// Default configuration values.
const (
	DefaultStateFile     = ".autodash/state.db"
	DefaultMaxCandidates = 50
	DefaultParallelism   = 4
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath string `koanf:"state_path"`
	// RulesDir holds rule YAML files; empty uses the embedded defaults.
	RulesDir string `koanf:"rules_dir"`
	// TypesFile extends the default type hierarchy.
	TypesFile            string               `koanf:"types_file"`
	MaxCandidatesPerCard int                  `koanf:"max_candidates_per_card"`
	Parallelism          int                  `koanf:"parallelism"`
	Environment          string               `koanf:"environment"`
	Verbose              bool                 `koanf:"verbose"`
	OutputFormat         string               `koanf:"output"`
	Permissions          PermissionsConfig    `koanf:"permissions"`
	Target               *TargetConfig        `koanf:"target"`
	Environments         map[string]EnvConfig `koanf:"environments"`

	// ConfigDir is the directory relative paths were resolved against.
	ConfigDir string `koanf:"-"`
}

// PermissionsConfig configures the permission policy applied to candidates.
type PermissionsConfig struct {
	// AllowAll disables every check.
	AllowAll bool `koanf:"allow_all"`
	// Databases allow-lists catalog database ids; empty allows all.
	Databases []int64 `koanf:"databases"`
	// DeniedTables names tables ("table" or "schema.table") no query may use
	// as its source.
	DeniedTables []string `koanf:"denied_tables"`
	AllowNative  bool     `koanf:"allow_native"`
}

// TargetConfig describes the database introspected by sync.
type TargetConfig struct {
	Type string `koanf:"type"`
	// Name registers the database in the catalog; defaults to Database, then Type.
	Name     string            `koanf:"name"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}
