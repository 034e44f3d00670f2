// Package duckdb provides a DuckDB introspection adapter.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/autodash/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:      logger,
			Placeholder: adapter.PlaceholderQuestion,
		},
	}
}

// Engine implements adapter.Adapter.
func (a *Adapter) Engine() string { return "duckdb" }

// DefaultSchema implements adapter.Adapter.
func (a *Adapter) DefaultSchema() string { return "main" }

// Connect opens the database file at cfg.Path and applies cfg.Options as
// session settings. Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range settingStatements(cfg.Options) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply setting: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// settingStatements renders options as SET statements in key order.
func settingStatements(options map[string]string) []string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", k, options[k]))
	}
	return stmts
}

// ListForeignKeys reads single-column foreign keys from duckdb_constraints().
func (a *Adapter) ListForeignKeys(ctx context.Context, schema string) ([]adapter.ForeignKeyInfo, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	const query = `
		SELECT schema_name, table_name, constraint_column_names[1],
		       schema_name, referenced_table, referenced_column_names[1]
		FROM duckdb_constraints()
		WHERE constraint_type = 'FOREIGN KEY'
		  AND schema_name = ?
		  AND len(constraint_column_names) = 1
		ORDER BY table_name, constraint_column_names[1]
	`
	return a.QueryForeignKeys(ctx, query, schema)
}

var _ adapter.Adapter = (*Adapter)(nil)
