// Package adapter provides the database introspection contract used by
// metadata sync.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves with the registry in their init() functions.
package adapter

import "context"

// Config holds configuration for connecting to a database.
type Config struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// Schema restricts introspection to one schema; empty uses the adapter default.
	Schema  string
	Options map[string]string
}

// TableInfo identifies a table or view.
type TableInfo struct {
	Schema string
	Name   string
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name       string
	DataType   string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// ForeignKeyInfo is a single-column foreign-key constraint.
type ForeignKeyInfo struct {
	Schema    string
	Table     string
	Column    string
	RefSchema string
	RefTable  string
	RefColumn string
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Engine returns the engine name stored with synced databases.
	Engine() string

	// DefaultSchema is used when Config.Schema is empty.
	DefaultSchema() string

	// ListTables returns the base tables and views of a schema, ordered by name.
	ListTables(ctx context.Context, schema string) ([]TableInfo, error)

	// ListColumns returns the columns of a table in ordinal order.
	ListColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error)

	// ListForeignKeys returns the single-column foreign keys declared in a schema.
	ListForeignKeys(ctx context.Context, schema string) ([]ForeignKeyInfo, error)
}
