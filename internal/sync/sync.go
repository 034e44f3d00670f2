// Package sync introspects a live database through an adapter, classifies
// its tables and columns into semantic tags, and writes the result to the
// metadata catalog.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/autodash/pkg/adapter"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// Catalog is the metadata store written by a sync.
type Catalog interface {
	SaveTable(ctx context.Context, t *core.Table) (int64, error)
	SaveField(ctx context.Context, f *core.Field) (int64, error)
	FindTableByName(ctx context.Context, dbID int64, schema, name string) (*core.Table, error)
	FindFieldByName(ctx context.Context, tableID int64, name string) (*core.Field, error)
}

// Config configures a Syncer.
type Config struct {
	Catalog Catalog
	// Schema to introspect; empty uses the adapter's default schema.
	Schema string
	Logger *slog.Logger
}

// Syncer copies schema metadata from a database into the catalog.
type Syncer struct {
	catalog Catalog
	schema  string
	logger  *slog.Logger
}

// Summary counts what a sync wrote.
type Summary struct {
	Tables      int `json:"tables"`
	Fields      int `json:"fields"`
	ForeignKeys int `json:"foreign_keys"`
	// SkippedForeignKeys reference columns that are not in the catalog.
	SkippedForeignKeys int `json:"skipped_foreign_keys"`
}

// New creates a Syncer.
func New(cfg Config) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{
		catalog: cfg.Catalog,
		schema:  cfg.Schema,
		logger:  logger,
	}
}

type columnKey struct {
	schema, table, column string
}

// Run introspects one schema through adp and stores it under database dbID.
// Tables and fields are written first; foreign keys are attached in a second
// pass once every target field has an id.
func (s *Syncer) Run(ctx context.Context, adp adapter.Adapter, dbID int64) (*Summary, error) {
	if s.catalog == nil {
		return nil, errors.New("sync: catalog is required")
	}

	schema := s.schema
	if schema == "" {
		schema = adp.DefaultSchema()
	}

	tables, err := adp.ListTables(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	fks, err := adp.ListForeignKeys(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}

	isFK := make(map[columnKey]bool, len(fks))
	for _, fk := range fks {
		isFK[columnKey{fk.Schema, fk.Table, fk.Column}] = true
	}

	summary := &Summary{}
	fields := make(map[columnKey]*core.Field)

	for _, ti := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cols, err := adp.ListColumns(ctx, ti.Schema, ti.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to list columns of %s.%s: %w", ti.Schema, ti.Name, err)
		}

		table := &core.Table{
			Name:        ti.Name,
			Schema:      ti.Schema,
			DisplayName: core.Humanize(ti.Name),
			EntityType:  EntityType(ti.Name),
			DBID:        dbID,
		}
		table.ID, err = s.catalog.SaveTable(ctx, table)
		if err != nil {
			return nil, err
		}
		summary.Tables++

		for _, col := range cols {
			key := columnKey{ti.Schema, ti.Name, col.Name}
			base := BaseType(col.DataType)
			f := &core.Field{
				Name:        col.Name,
				DisplayName: core.Humanize(col.Name),
				BaseType:    base,
				SpecialType: SpecialType(col.Name, base, col.PrimaryKey, isFK[key]),
				TableID:     table.ID,
			}
			f.ID, err = s.catalog.SaveField(ctx, f)
			if err != nil {
				return nil, err
			}
			fields[key] = f
			summary.Fields++
		}

		s.logger.Debug("synced table",
			slog.String("table", ti.Name),
			slog.String("entity_type", string(table.EntityType)),
			slog.Int("fields", len(cols)))
	}

	for _, fk := range fks {
		src, ok := fields[columnKey{fk.Schema, fk.Table, fk.Column}]
		if !ok {
			summary.SkippedForeignKeys++
			continue
		}
		targetID, err := s.resolveTarget(ctx, dbID, fields, fk)
		if err != nil {
			return nil, err
		}
		if targetID == 0 {
			s.logger.Warn("foreign key target not in catalog",
				slog.String("table", fk.Table),
				slog.String("column", fk.Column),
				slog.String("ref_table", fk.RefTable))
			summary.SkippedForeignKeys++
			continue
		}

		src.FKTargetFieldID = targetID
		if _, err := s.catalog.SaveField(ctx, src); err != nil {
			return nil, err
		}
		summary.ForeignKeys++
	}

	s.logger.Info("sync complete",
		slog.Int64("database", dbID),
		slog.String("schema", schema),
		slog.Int("tables", summary.Tables),
		slog.Int("fields", summary.Fields),
		slog.Int("foreign_keys", summary.ForeignKeys))

	return summary, nil
}

// resolveTarget finds the referenced field id, first among the fields synced
// in this run and then in the catalog. Zero means not found.
func (s *Syncer) resolveTarget(ctx context.Context, dbID int64, fields map[columnKey]*core.Field, fk adapter.ForeignKeyInfo) (int64, error) {
	if f, ok := fields[columnKey{fk.RefSchema, fk.RefTable, fk.RefColumn}]; ok {
		return f.ID, nil
	}

	table, err := s.catalog.FindTableByName(ctx, dbID, fk.RefSchema, fk.RefTable)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	field, err := s.catalog.FindFieldByName(ctx, table.ID, fk.RefColumn)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return field.ID, nil
}
