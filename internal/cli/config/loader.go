package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type loggerKey struct{}

// maxUpwardSearchLevels bounds the parent directories searched for autodash.yaml.
const maxUpwardSearchLevels = 10

// configNames lists the config file names searched, in priority order.
var configNames = []string{"autodash.yaml", "autodash.yml"}

// pathFlags maps path-valued flags to their config keys. Flag values are
// relative to the working directory, not the config file.
var pathFlags = map[string]string{
	"state":      "state_path",
	"rules-dir":  "rules_dir",
	"types-file": "types_file",
}

// skipFlags are handled by the caller rather than loaded as config keys.
var skipFlags = map[string]bool{"config": true, "target": true}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Loader state. ResetConfig clears it between tests.
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigIn returns the config file in dir, or "".
func findConfigIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := findConfigIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration, merging the target of the named
// environment (or the configured one when targetOverride is empty) over the
// base target.
func LoadConfigWithTarget(cfgFile, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":              DefaultStateFile,
		"max_candidates_per_card": DefaultMaxCandidates,
		"parallelism":             DefaultParallelism,
		"verbose":                 false,
		"output":                  DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit, then searched upward from the working directory
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	} else {
		configFileUsed = findConfigUpward(cwd)
	}
	baseDir := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// 3. Environment variables: AUTODASH_STATE_PATH -> state_path
	if err := k.Load(env.Provider("AUTODASH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AUTODASH_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || skipFlags[f.Name] {
				return "", nil
			}
			if key, ok := pathFlags[f.Name]; ok {
				if abs, err := filepath.Abs(f.Value.String()); err == nil {
					flagPaths[key] = abs
				}
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigDir = baseDir

	cfg.StatePath = resolveConfigPath(cfg.StatePath, flagPaths["state_path"], baseDir)
	cfg.RulesDir = resolveConfigPath(cfg.RulesDir, flagPaths["rules_dir"], baseDir)
	cfg.TypesFile = resolveConfigPath(cfg.TypesFile, flagPaths["types_file"], baseDir)

	envName := cfg.Environment
	if targetOverride != "" {
		envName = targetOverride
	}
	if envName != "" {
		envCfg, ok := cfg.Environments[envName]
		if !ok && targetOverride != "" {
			return nil, fmt.Errorf("unknown environment %q", targetOverride)
		}
		if ok && envCfg.Target != nil {
			cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		}
	}

	if cfg.Target != nil {
		expandTargetEnvVars(cfg.Target)
		if strings.EqualFold(cfg.Target.Type, "duckdb") && cfg.Target.Database != ":memory:" {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, baseDir)
		}
		cfg.Target.ApplyDefaults()
		if err := cfg.Target.Validate(); err != nil {
			return nil, fmt.Errorf("invalid target configuration: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// resolveConfigPath prefers the absolute flag value; otherwise resolves the
// configured value against the config directory.
func resolveConfigPath(value, flagValue, baseDir string) string {
	if flagValue != "" {
		return flagValue
	}
	return resolvePathRelativeTo(value, baseDir)
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration stored by the last successful load.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands ${VAR} in the connection fields and options
// of t, so credentials can stay out of autodash.yaml.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	for _, field := range []*string{&t.Host, &t.User, &t.Password, &t.Database} {
		*field = expandEnvVars(*field)
	}
	for key, v := range t.Options {
		t.Options[key] = expandEnvVars(v)
	}
}

// MergeTargetConfig overlays the non-empty fields of override on base.
// Options are merged key by key. Neither input is modified.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	switch {
	case base == nil:
		return override
	case override == nil:
		return base
	}

	merged := *base
	for _, f := range []struct{ dst, src *string }{
		{&merged.Type, &override.Type},
		{&merged.Name, &override.Name},
		{&merged.Host, &override.Host},
		{&merged.User, &override.User},
		{&merged.Password, &override.Password},
		{&merged.Database, &override.Database},
		{&merged.Schema, &override.Schema},
	} {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}

	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Options, override.Options)
	return &merged
}
