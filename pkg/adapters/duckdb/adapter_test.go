package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/autodash/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func exec(t *testing.T, adp *Adapter, stmt string) {
	t.Helper()
	_, err := adp.DB.ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.True(t, adp.IsConnected())
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestSettingStatements(t *testing.T) {
	assert.Empty(t, settingStatements(nil))
	assert.Equal(t, []string{
		"SET memory_limit = '1GB'",
		"SET threads = '2'",
	}, settingStatements(map[string]string{"threads": "2", "memory_limit": "1GB"}))
}

func TestAdapter_ListTables(t *testing.T) {
	adp := connect(t)
	exec(t, adp, `CREATE TABLE orders (id INTEGER, total DOUBLE)`)
	exec(t, adp, `CREATE TABLE customers (id INTEGER, name VARCHAR)`)

	tables, err := adp.ListTables(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []adapter.TableInfo{
		{Schema: "main", Name: "customers"},
		{Schema: "main", Name: "orders"},
	}, tables)
}

func TestAdapter_ListColumns(t *testing.T) {
	adp := connect(t)
	exec(t, adp, `
		CREATE TABLE products (
			product_id INTEGER NOT NULL,
			name VARCHAR,
			price DOUBLE,
			in_stock BOOLEAN
		)
	`)

	cols, err := adp.ListColumns(context.Background(), "main", "products")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	expected := []struct {
		name     string
		typ      string
		nullable bool
	}{
		{"product_id", "INTEGER", false},
		{"name", "VARCHAR", true},
		{"price", "DOUBLE", true},
		{"in_stock", "BOOLEAN", true},
	}
	for i, want := range expected {
		assert.Equal(t, want.name, cols[i].Name)
		assert.Equal(t, want.typ, cols[i].DataType, "column %s", want.name)
		assert.Equal(t, want.nullable, cols[i].Nullable, "column %s", want.name)
		assert.Equal(t, i+1, cols[i].Position)
	}

	_, err = adp.ListColumns(context.Background(), "main", "nonexistent_table")
	assert.Error(t, err)
}

func TestAdapter_ListForeignKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db

	mock.ExpectQuery(regexp.QuoteMeta("FROM duckdb_constraints()")).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"s", "t", "c", "rs", "rt", "rc"}).
			AddRow("main", "orders", "customer_id", "main", "customers", "id"))

	fks, err := adp.ListForeignKeys(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []adapter.ForeignKeyInfo{{
		Schema: "main", Table: "orders", Column: "customer_id",
		RefSchema: "main", RefTable: "customers", RefColumn: "id",
	}}, fks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_NotConnected(t *testing.T) {
	_, err := New(nil).ListForeignKeys(context.Background(), "main")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}
