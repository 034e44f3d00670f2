package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// SaveDatabase registers a database by name and returns its id.
func (s *SQLiteStore) SaveDatabase(ctx context.Context, name, engine string) (int64, error) {
	if err := s.opened(); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO databases (name, engine, synced_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET engine = excluded.engine, synced_at = excluded.synced_at
		 RETURNING id`,
		name, engine, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save database %s: %w", name, err)
	}
	return id, nil
}

// SaveTable inserts or updates a table keyed by (database, schema, name) and
// returns its id.
func (s *SQLiteStore) SaveTable(ctx context.Context, t *core.Table) (int64, error) {
	if err := s.opened(); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tables (db_id, schema_name, name, display_name, entity_type) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (db_id, schema_name, name) DO UPDATE SET
		     display_name = excluded.display_name,
		     entity_type = excluded.entity_type
		 RETURNING id`,
		t.DBID, t.Schema, t.Name, t.DisplayName, string(t.EntityType),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save table %s: %w", t.Name, err)
	}

	s.logger.Debug("saved table", slog.Int64("id", id), slog.String("name", t.Name))
	return id, nil
}

// SaveField inserts or updates a field keyed by (table, name) and returns
// its id.
func (s *SQLiteStore) SaveField(ctx context.Context, f *core.Field) (int64, error) {
	if err := s.opened(); err != nil {
		return 0, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO fields (table_id, name, display_name, base_type, special_type, fk_target_field_id)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (table_id, name) DO UPDATE SET
		     display_name = excluded.display_name,
		     base_type = excluded.base_type,
		     special_type = excluded.special_type,
		     fk_target_field_id = excluded.fk_target_field_id
		 RETURNING id`,
		f.TableID, f.Name, f.DisplayName, string(f.BaseType), string(f.SpecialType), nullID(f.FKTargetFieldID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save field %s: %w", f.Name, err)
	}
	return id, nil
}

// FindTableByName looks a table up by database, schema and name.
func (s *SQLiteStore) FindTableByName(ctx context.Context, dbID int64, schema, name string) (*core.Table, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, db_id, schema_name, name, display_name, entity_type
		 FROM tables WHERE db_id = ? AND schema_name = ? AND name = ?`,
		dbID, schema, name)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s.%s: %w", schema, name, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find table %s: %w", name, err)
	}
	return t, nil
}

// FindFieldByName looks a field up by table and name.
func (s *SQLiteStore) FindFieldByName(ctx context.Context, tableID int64, name string) (*core.Field, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id
		 FROM fields WHERE table_id = ? AND name = ?`,
		tableID, name)
	f, err := scanField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("field %s of table %d: %w", name, tableID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find field %s: %w", name, err)
	}
	return f, nil
}

// ListTables returns the tables of a database ordered by schema and name.
// dbID 0 lists every database.
func (s *SQLiteStore) ListTables(ctx context.Context, dbID int64) ([]*core.Table, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, db_id, schema_name, name, display_name, entity_type
		 FROM tables WHERE ? = 0 OR db_id = ? ORDER BY db_id, schema_name, name`,
		dbID, dbID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTable implements core.MetadataProvider.
func (s *SQLiteStore) GetTable(ctx context.Context, id int64) (*core.Table, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, db_id, schema_name, name, display_name, entity_type FROM tables WHERE id = ?`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table %d: %w", id, err)
	}
	return t, nil
}

// GetField implements core.MetadataProvider.
func (s *SQLiteStore) GetField(ctx context.Context, id int64) (*core.Field, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id
		 FROM fields WHERE id = ?`, id)
	f, err := scanField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("field %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field %d: %w", id, err)
	}
	return f, nil
}

// GetFields implements core.MetadataProvider.
func (s *SQLiteStore) GetFields(ctx context.Context, tableID int64) ([]*core.Field, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_id, name, display_name, base_type, special_type, fk_target_field_id
		 FROM fields WHERE table_id = ? ORDER BY id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fields of table %d: %w", tableID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetForeignKeys implements core.MetadataProvider.
func (s *SQLiteStore) GetForeignKeys(ctx context.Context, dbID int64) ([]core.ForeignKey, error) {
	if err := s.opened(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.table_id, target.table_id
		 FROM fields f
		 JOIN tables t ON t.id = f.table_id
		 JOIN fields target ON target.id = f.fk_target_field_id
		 WHERE t.db_id = ?
		 ORDER BY f.id`, dbID)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys of database %d: %w", dbID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.ForeignKey
	for rows.Next() {
		var fk core.ForeignKey
		if err := rows.Scan(&fk.FieldID, &fk.SourceTableID, &fk.TargetTableID); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (*core.Table, error) {
	var (
		t      core.Table
		entity string
	)
	if err := row.Scan(&t.ID, &t.DBID, &t.Schema, &t.Name, &t.DisplayName, &entity); err != nil {
		return nil, err
	}
	t.EntityType = core.TypeTag(entity)
	return &t, nil
}

func scanField(row rowScanner) (*core.Field, error) {
	var (
		f                 core.Field
		baseType, special string
		target            sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.TableID, &f.Name, &f.DisplayName, &baseType, &special, &target); err != nil {
		return nil, err
	}
	f.BaseType = core.TypeTag(baseType)
	f.SpecialType = core.TypeTag(special)
	if target.Valid {
		f.FKTargetFieldID = target.Int64
	}
	return &f, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
