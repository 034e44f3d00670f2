// Package permission decides which generated queries may be saved.
package permission

import (
	"context"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Policy is a static permission set. The zero value allows structured
// queries against every database and denies native queries.
type Policy struct {
	// Databases lists the database ids queries may target; empty allows all.
	Databases []int64
	// DeniedTables lists table ids structured queries may not read from.
	DeniedTables []int64
	// AllowNative permits raw queries.
	AllowNative bool
}

// AllowAll is a policy permitting every query.
var AllowAll = &Policy{AllowNative: true}

// HasWritePermission implements core.PermissionChecker.
func (p *Policy) HasWritePermission(_ context.Context, q *core.QuerySpec) (bool, error) {
	if q == nil {
		return false, nil
	}
	if len(p.Databases) > 0 && !contains(p.Databases, q.Database) {
		return false, nil
	}

	switch q.Type {
	case core.QueryTypeNative:
		return p.AllowNative, nil
	case core.QueryTypeStructured:
		if q.Query == nil {
			return false, nil
		}
		return !contains(p.DeniedTables, q.Query.SourceTable), nil
	default:
		return false, nil
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
