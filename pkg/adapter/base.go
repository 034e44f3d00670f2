package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// PlaceholderStyle selects how bind parameters are written.
type PlaceholderStyle int

// Placeholder styles.
const (
	// PlaceholderQuestion writes ?.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar writes $1, $2, ...
	PlaceholderDollar
)

// Format returns the n-th (1-based) placeholder.
func (p PlaceholderStyle) Format(n int) string {
	if p == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// ErrNotConnected is returned by introspection calls made before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql introspection over
// information_schema. Embed this struct in concrete adapter implementations.
type BaseSQLAdapter struct {
	DB          *sql.DB
	Cfg         Config
	Logger      *slog.Logger
	Placeholder PlaceholderStyle
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ListTables lists base tables and views of a schema.
func (b *BaseSQLAdapter) ListTables(ctx context.Context, schema string) ([]TableInfo, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	//nolint:gosec // placeholders come from PlaceholderStyle
	query := fmt.Sprintf(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema = %s AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name
	`, b.Placeholder.Format(1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []TableInfo
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// ListColumns lists the columns of a table and marks primary-key columns.
func (b *BaseSQLAdapter) ListColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	//nolint:gosec // placeholders come from PlaceholderStyle
	query := fmt.Sprintf(`
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, b.Placeholder.Format(1), b.Placeholder.Format(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", schema, table)
	}

	pks, err := b.primaryKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i].PrimaryKey = pks[columns[i].Name]
	}
	return columns, nil
}

func (b *BaseSQLAdapter) primaryKeys(ctx context.Context, schema, table string) (map[string]bool, error) {
	//nolint:gosec // placeholders come from PlaceholderStyle
	query := fmt.Sprintf(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		 AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = %s AND tc.table_name = %s
	`, b.Placeholder.Format(1), b.Placeholder.Format(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pks := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		pks[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary keys: %w", err)
	}
	return pks, nil
}

// ListForeignKeys lists foreign keys through the standard constraint views.
func (b *BaseSQLAdapter) ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyInfo, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	//nolint:gosec // placeholders come from PlaceholderStyle
	query := fmt.Sprintf(`
		SELECT kcu.table_schema, kcu.table_name, kcu.column_name,
		       ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = %s
		ORDER BY kcu.table_name, kcu.column_name
	`, b.Placeholder.Format(1))

	return b.QueryForeignKeys(ctx, query, schema)
}

// QueryForeignKeys runs a query returning
// (schema, table, column, ref_schema, ref_table, ref_column) rows.
func (b *BaseSQLAdapter) QueryForeignKeys(ctx context.Context, query string, args ...any) ([]ForeignKeyInfo, error) {
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fks []ForeignKeyInfo
	for rows.Next() {
		var fk ForeignKeyInfo
		if err := rows.Scan(&fk.Schema, &fk.Table, &fk.Column, &fk.RefSchema, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}
