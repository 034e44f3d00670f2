// Package matcher maps abstract type specifications onto the fields and
// tables of a schema graph.
package matcher

import (
	"github.com/leapstack-labs/autodash/internal/schemagraph"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// TypeChecker answers subtype queries; *hierarchy.Hierarchy satisfies it.
type TypeChecker interface {
	IsA(tag, ancestor core.TypeTag) bool
}

// Matcher resolves dimension constraints against one graph.
type Matcher struct {
	graph *schemagraph.Graph
	types TypeChecker
}

// New creates a matcher.
func New(graph *schemagraph.Graph, types TypeChecker) *Matcher {
	return &Matcher{graph: graph, types: types}
}

// MatchField reports whether a single field satisfies fieldspec. GA
// dimension names match the field name exactly; anything else matches when
// the field's effective type is-a fieldspec.
func MatchField(types TypeChecker, fieldspec core.TypeTag, f *core.Field) bool {
	if core.IsGADimension(fieldspec) {
		return f.Name == string(fieldspec)
	}
	return types.IsA(f.EffectiveType(), fieldspec)
}

// FilterFields returns the fields of table matching fieldspec, one copy per
// way the table is reached from the root. Root fields come unlinked first.
func (m *Matcher) FilterFields(fieldspec core.TypeTag, table *core.Table) []*core.Field {
	var out []*core.Field
	for _, f := range m.graph.Fields(table.ID) {
		if !MatchField(m.types, fieldspec, f) {
			continue
		}
		if m.graph.IsRoot(table.ID) {
			out = append(out, f.WithLink(0))
		}
		for _, link := range table.Links {
			out = append(out, f.WithLink(link))
		}
	}
	return out
}

// FilterTables returns graph tables whose entity type is-a tablespec.
func (m *Matcher) FilterTables(tablespec core.TypeTag) []*core.Table {
	return m.graph.TablesOfType(m.types, tablespec)
}

// FieldCandidates returns every field satisfying a dimension definition.
//
// Without a fieldspec the tablespec is matched against the root table's
// fields. With one, every table matching the tablespec is searched. LinksTo
// then keeps only foreign keys through which a table of that type is reached.
func (m *Matcher) FieldCandidates(def core.DimensionDef) []*core.Field {
	if def.LinksTo != "" {
		unconstrained := def
		unconstrained.LinksTo = ""
		candidates := m.FieldCandidates(unconstrained)

		links := make(map[int64]bool)
		for _, t := range m.FilterTables(def.LinksTo) {
			for _, l := range t.Links {
				links[l] = true
			}
		}

		var out []*core.Field
		for _, f := range candidates {
			if links[f.ID] {
				out = append(out, f)
			}
		}
		return out
	}

	if !def.FieldType.HasFieldSpec() {
		return m.FilterFields(def.FieldType.TableSpec, m.graph.Root)
	}

	var out []*core.Field
	for _, t := range m.FilterTables(def.FieldType.TableSpec) {
		out = append(out, m.FilterFields(def.FieldType.FieldSpec, t)...)
	}
	return out
}
