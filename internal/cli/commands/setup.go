// Package commands implements the autodash CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/config"
	"github.com/leapstack-labs/autodash/internal/cli/output"
	"github.com/leapstack-labs/autodash/internal/engine"
	"github.com/leapstack-labs/autodash/internal/hierarchy"
	"github.com/leapstack-labs/autodash/internal/permission"
	"github.com/leapstack-labs/autodash/internal/rules"
	"github.com/leapstack-labs/autodash/internal/state"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Store    *state.SQLiteStore
	Types    *hierarchy.Hierarchy
	Rules    *rules.RuleSet
	Engine   *engine.Engine
}

// NewCommandContext opens the catalog and builds the engine.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, cleanup, err := NewCommandContextWithStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	if err := cc.buildEngine(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, err
	}
	return cc, cleanup, nil
}

// NewCommandContextWithStore opens the catalog without building the engine.
func NewCommandContextWithStore(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutStore(cmd)

	store, err := openStore(cmd.Context(), cc.Cfg.StatePath, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext with neither
// catalog nor engine. Useful for commands that only read rule files.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the loaded configuration, or defaults when commands run
// without the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:            config.DefaultStateFile,
		MaxCandidatesPerCard: config.DefaultMaxCandidates,
		Parallelism:          config.DefaultParallelism,
		OutputFormat:         config.DefaultOutput,
	}
}

func openStore(ctx context.Context, path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(path)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return store, nil
}

// LoadTypes returns the default hierarchy extended by the configured types file.
func (cc *CommandContext) LoadTypes() (*hierarchy.Hierarchy, error) {
	if cc.Types != nil {
		return cc.Types, nil
	}
	types := hierarchy.Default()
	if cc.Cfg.TypesFile != "" {
		if err := types.LoadFile(cc.Cfg.TypesFile); err != nil {
			return nil, fmt.Errorf("failed to load types file: %w", err)
		}
		cc.Logger.Debug("loaded types file", slog.String("path", cc.Cfg.TypesFile))
	}
	cc.Types = types
	return types, nil
}

// LoadRules loads the configured rules directory, or the embedded defaults.
func (cc *CommandContext) LoadRules() (*rules.RuleSet, error) {
	if cc.Rules != nil {
		return cc.Rules, nil
	}
	types, err := cc.LoadTypes()
	if err != nil {
		return nil, err
	}

	var set *rules.RuleSet
	if cc.Cfg.RulesDir != "" {
		set, err = rules.LoadDir(cc.Cfg.RulesDir, types)
	} else {
		set, err = rules.Defaults(types)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	cc.Logger.Debug("loaded rules", slog.Int("count", len(set.Rules())))
	cc.Rules = set
	return set, nil
}

func (cc *CommandContext) buildEngine(ctx context.Context) error {
	types, err := cc.LoadTypes()
	if err != nil {
		return err
	}
	set, err := cc.LoadRules()
	if err != nil {
		return err
	}
	policy, err := cc.policy(ctx)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		Types:                types,
		Rules:                set,
		Provider:             cc.Store,
		Permissions:          policy,
		Sink:                 cc.Store,
		MaxCandidatesPerCard: cc.Cfg.MaxCandidatesPerCard,
		Parallelism:          cc.Cfg.Parallelism,
		Logger:               cc.Logger,
	})
	if err != nil {
		return err
	}
	cc.Engine = eng
	return nil
}

// policy builds the permission policy, resolving denied table names against
// the catalog. Names that match no table are ignored.
func (cc *CommandContext) policy(ctx context.Context) (core.PermissionChecker, error) {
	perms := cc.Cfg.Permissions
	if perms.AllowAll {
		return permission.AllowAll, nil
	}

	policy := &permission.Policy{
		Databases:   perms.Databases,
		AllowNative: perms.AllowNative,
	}
	if len(perms.DeniedTables) == 0 {
		return policy, nil
	}

	tables, err := cc.Store.ListTables(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	for _, name := range perms.DeniedTables {
		matched := matchTables(tables, name)
		if len(matched) == 0 {
			cc.Logger.Warn("denied table not in catalog", slog.String("table", name))
		}
		for _, t := range matched {
			policy.DeniedTables = append(policy.DeniedTables, t.ID)
		}
	}
	return policy, nil
}

// matchTables returns the tables named "table" or "schema.table".
func matchTables(tables []*core.Table, ref string) []*core.Table {
	schema, name, qualified := strings.Cut(ref, ".")
	if !qualified {
		name, schema = schema, ""
	}

	var out []*core.Table
	for _, t := range tables {
		if !strings.EqualFold(t.Name, name) {
			continue
		}
		if qualified && !strings.EqualFold(t.Schema, schema) {
			continue
		}
		out = append(out, t)
	}
	return out
}
