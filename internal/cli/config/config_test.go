package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/autodash/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/autodash/pkg/adapters/postgres"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "autodash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("rules-dir", "", "")
	flags.String("types-file", "", "")
	flags.String("output", "", "")
	flags.Int("parallelism", 0, "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultMaxCandidates, cfg.MaxCandidatesPerCard)
	assert.Equal(t, DefaultParallelism, cfg.Parallelism)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, cfg.RulesDir)
	assert.Nil(t, cfg.Target)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
state_path: state/catalog.db
rules_dir: rules
max_candidates_per_card: 10
permissions:
  databases: [1, 2]
  denied_tables: [payroll]
  allow_native: true
target:
  type: DuckDB
  database: warehouse.duckdb
  options:
    threads: "2"
`)
	ResetConfig()

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "state", "catalog.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(dir, "rules"), cfg.RulesDir)
	assert.Equal(t, 10, cfg.MaxCandidatesPerCard)
	assert.Equal(t, []int64{1, 2}, cfg.Permissions.Databases)
	assert.Equal(t, []string{"payroll"}, cfg.Permissions.DeniedTables)
	assert.True(t, cfg.Permissions.AllowNative)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, filepath.Join(dir, "warehouse.duckdb"), cfg.Target.Database)
	assert.Equal(t, cfg.Target.Database, cfg.Target.Name)
	assert.Equal(t, "2", cfg.Target.Options["threads"])
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "parallelism: 2\n")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, "autodash.yaml", filepath.Base(GetConfigFileUsed()))
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "parallelism: 2\noutput: text\n")
	t.Chdir(dir)
	t.Setenv("AUTODASH_PARALLELISM", "3")
	t.Setenv("AUTODASH_OUTPUT", "markdown")
	ResetConfig()

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--output", "json", "--state", "custom.db"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Parallelism, "env overrides file")
	assert.Equal(t, "json", cfg.OutputFormat, "flag overrides env")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "custom.db"), cfg.StatePath)
}

func TestLoadConfig_UnchangedFlagsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "parallelism: 7\n")
	ResetConfig()

	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Parallelism)
}

func TestLoadConfigWithTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
target:
  type: postgres
  host: localhost
  database: dev
  user: ${AUTODASH_TEST_USER}
environments:
  prod:
    target:
      host: db.internal
      database: analytics
      port: 6543
`)
	t.Setenv("AUTODASH_TEST_USER", "reporter")

	tests := []struct {
		name     string
		override string
		host     string
		database string
		port     int
	}{
		{name: "base target", override: "", host: "localhost", database: "dev", port: 5432},
		{name: "environment override", override: "prod", host: "db.internal", database: "analytics", port: 6543},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfg, err := LoadConfigWithTarget(path, tt.override, nil)
			require.NoError(t, err)
			require.NotNil(t, cfg.Target)
			assert.Equal(t, "postgres", cfg.Target.Type)
			assert.Equal(t, tt.host, cfg.Target.Host)
			assert.Equal(t, tt.database, cfg.Target.Database)
			assert.Equal(t, tt.database, cfg.Target.Name)
			assert.Equal(t, tt.port, cfg.Target.Port)
			assert.Equal(t, "public", cfg.Target.Schema)
			assert.Equal(t, "reporter", cfg.Target.User)
		})
	}

	ResetConfig()
	_, err := LoadConfigWithTarget(path, "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown environment "staging"`)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{name: "unknown adapter", body: "target:\n  type: oracle\n", errMsg: "invalid target configuration"},
		{name: "missing target type", body: "target:\n  database: x\n", errMsg: "target type is required"},
		{name: "bad output", body: "output: xml\n", errMsg: "invalid output format"},
		{name: "negative parallelism", body: "parallelism: -1\n", errMsg: "parallelism must not be negative"},
		{name: "negative cap", body: "max_candidates_per_card: -5\n", errMsg: "max_candidates_per_card"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			ResetConfig()
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Nil(t, GetCurrentConfig())
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestTargetConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target TargetConfig
		want   TargetConfig
	}{
		{
			name:   "duckdb in memory",
			target: TargetConfig{Type: "duckdb", Database: ":memory:"},
			want:   TargetConfig{Type: "duckdb", Name: "duckdb", Database: ":memory:", Schema: "main"},
		},
		{
			name:   "postgres",
			target: TargetConfig{Type: "Postgres", Database: "shop"},
			want:   TargetConfig{Type: "postgres", Name: "shop", Database: "shop", Schema: "public", Port: 5432},
		},
		{
			name:   "explicit values kept",
			target: TargetConfig{Type: "postgres", Name: "prod", Schema: "sales", Port: 1234},
			want:   TargetConfig{Type: "postgres", Name: "prod", Schema: "sales", Port: 1234},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.target.ApplyDefaults()
			assert.Equal(t, tt.want, tt.target)
		})
	}
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := TargetConfig{Type: "postgres", Host: "h", Port: 5, User: "u", Password: "p", Database: "d", Schema: "s"}
	cfg := target.AdapterConfig()
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "u", cfg.Username)
	assert.Equal(t, "d", cfg.Database)
	assert.Equal(t, "d", cfg.Path)
	assert.Equal(t, "s", cfg.Schema)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AUTODASH_TEST_SECRET", "s3cret")

	assert.Equal(t, "s3cret", expandEnvVars("${AUTODASH_TEST_SECRET}"))
	assert.Equal(t, "pw-s3cret-x", expandEnvVars("pw-${AUTODASH_TEST_SECRET}-x"))
	assert.Equal(t, "${AUTODASH_TEST_UNSET_VAR}", expandEnvVars("${AUTODASH_TEST_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{Type: "postgres", Host: "a", Port: 1, Options: map[string]string{"x": "1", "y": "1"}}
	override := &TargetConfig{Host: "b", Options: map[string]string{"y": "2"}}

	merged := MergeTargetConfig(base, override)
	assert.Equal(t, "postgres", merged.Type)
	assert.Equal(t, "b", merged.Host)
	assert.Equal(t, 1, merged.Port)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, merged.Options)
	assert.Equal(t, "1", base.Options["y"], "base is not mutated")

	assert.Same(t, override, MergeTargetConfig(nil, override))
	assert.Same(t, base, MergeTargetConfig(base, nil))
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))
}
