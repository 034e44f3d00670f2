package core

import (
	"context"
	"errors"
	"fmt"
)

// MetadataProvider is the schema metadata store.
type MetadataProvider interface {
	GetTable(ctx context.Context, id int64) (*Table, error)
	GetField(ctx context.Context, id int64) (*Field, error)
	// GetFields returns the fields of a table ordered by id.
	GetFields(ctx context.Context, tableID int64) ([]*Field, error)
	// GetForeignKeys returns every foreign-key edge of a database.
	GetForeignKeys(ctx context.Context, dbID int64) ([]ForeignKey, error)
}

// PermissionChecker decides whether the current user may save a query.
type PermissionChecker interface {
	HasWritePermission(ctx context.Context, q *QuerySpec) (bool, error)
}

// RuleProvider loads rule definitions.
type RuleProvider interface {
	LoadRules(ctx context.Context) ([]*Rule, error)
}

// DashboardSink persists generated dashboards and returns their id.
type DashboardSink interface {
	CreateDashboard(ctx context.Context, d *Dashboard) (string, error)
}

// ErrNotFound is returned by metadata lookups for unknown ids.
var ErrNotFound = errors.New("not found")

// ErrNoApplicableRule is matched by NoApplicableRuleError.
var ErrNoApplicableRule = errors.New("no applicable rule")

// NoApplicableRuleError reports a root table whose entity type has no rule.
type NoApplicableRuleError struct {
	TableID    int64
	EntityType TypeTag
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no rule applies to table %d (entity type %s)", e.TableID, e.EntityType)
}

// Is makes errors.Is(err, ErrNoApplicableRule) succeed.
func (e *NoApplicableRuleError) Is(target error) bool {
	return target == ErrNoApplicableRule
}
