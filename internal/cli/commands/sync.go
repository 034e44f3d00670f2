package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/autodash/internal/cli/output"
	"github.com/leapstack-labs/autodash/internal/sync"
	"github.com/leapstack-labs/autodash/pkg/adapter"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Introspect the target database into the catalog",
		Long: `Connect to the configured target, read its tables, columns and foreign
keys, classify them into semantic types and store them in the catalog.

Running sync again updates existing tables and fields in place.`,
		Example: `  # Sync the configured target
  autodash sync

  # Sync a non-default schema of the prod environment
  autodash sync --target prod --schema sales`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, schema)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Schema to introspect (default: target schema)")
	return cmd
}

func runSync(cmd *cobra.Command, schema string) error {
	ctx := cmd.Context()
	cc, cleanup, err := NewCommandContextWithStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	target := cc.Cfg.Target
	if target == nil {
		return errors.New("no target configured; add a target section to autodash.yaml")
	}
	if schema == "" {
		schema = target.Schema
	}

	adp, err := adapter.NewAdapter(target.AdapterConfig(), cc.Logger)
	if err != nil {
		return err
	}
	if err := adp.Connect(ctx, target.AdapterConfig()); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target.Type, err)
	}
	defer func() { _ = adp.Close() }()

	dbID, err := cc.Store.SaveDatabase(ctx, target.Name, adp.Engine())
	if err != nil {
		return err
	}
	cc.Logger.Debug("syncing database",
		slog.String("name", target.Name),
		slog.Int64("id", dbID),
		slog.String("schema", schema))

	summary, err := sync.New(sync.Config{
		Catalog: cc.Store,
		Schema:  schema,
		Logger:  cc.Logger,
	}).Run(ctx, adp, dbID)
	if err != nil {
		return err
	}

	out := output.SyncOutput{
		Database:           target.Name,
		DatabaseID:         dbID,
		Engine:             adp.Engine(),
		Schema:             schema,
		Tables:             summary.Tables,
		Fields:             summary.Fields,
		ForeignKeys:        summary.ForeignKeys,
		SkippedForeignKeys: summary.SkippedForeignKeys,
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Synced %s (%s)", out.Database, out.Engine))
	r.Table([]string{"Schema", "Tables", "Fields", "Foreign keys"}, [][]string{{
		out.Schema,
		fmt.Sprint(out.Tables),
		fmt.Sprint(out.Fields),
		fmt.Sprint(out.ForeignKeys),
	}})
	if out.SkippedForeignKeys > 0 {
		r.Warning(fmt.Sprintf("%d foreign keys reference tables outside the catalog and were skipped", out.SkippedForeignKeys))
	}
	r.Success(fmt.Sprintf("catalog database id %d", dbID))
	return nil
}
