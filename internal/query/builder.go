package query

import (
	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/internal/template"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// Structured holds the resolved parts of a structured card.
type Structured struct {
	Dimensions []string
	Metrics    []core.MetricDef
	Filters    []core.FilterDef
	OrderBy    []core.OrderClause
	Limit      int
}

// ResolveOrderBy maps order specs onto breakout dimensions or aggregation
// positions. A dimension identifier wins over a metric of the same name;
// identifiers that are neither are dropped.
func ResolveOrderBy(specs []core.OrderSpec, dimensions, metrics []string) []core.OrderClause {
	var out []core.OrderClause
	for _, spec := range specs {
		dir := spec.Direction
		if dir != core.Ascending {
			dir = core.Descending
		}
		if indexOf(dimensions, spec.Identifier) >= 0 {
			out = append(out, core.OrderClause{Direction: dir, Target: &core.DimensionRef{Name: spec.Identifier}})
			continue
		}
		if i := indexOf(metrics, spec.Identifier); i >= 0 {
			out = append(out, core.OrderClause{Direction: dir, Target: &core.AggregateRef{Index: i}})
		}
	}
	return out
}

// BuildStructured assembles a structured query. Every dimension form is
// replaced by the mbql reference of its bound object.
func BuildStructured(ctx *binding.Context, s Structured, b *Bindings) *core.QuerySpec {
	resolve := func(e core.Expr) core.Expr { return substitute(ctx, e, b) }

	q := &core.StructuredQuery{
		SourceTable: SourceTable(ctx, b),
		Limit:       s.Limit,
	}

	switch len(s.Filters) {
	case 0:
	case 1:
		q.Filter = resolve(s.Filters[0].Filter)
	default:
		and := &core.Call{Op: core.OpAnd}
		for _, f := range s.Filters {
			and.Args = append(and.Args, resolve(f.Filter))
		}
		q.Filter = and
	}

	for _, name := range s.Dimensions {
		q.Breakout = append(q.Breakout, resolve(&core.DimensionRef{Name: name}))
	}
	for _, m := range s.Metrics {
		q.Aggregation = append(q.Aggregation, resolve(m.Metric))
	}
	for _, o := range s.OrderBy {
		q.OrderBy = append(q.OrderBy, core.OrderClause{Direction: o.Direction, Target: resolve(o.Target)})
	}

	return &core.QuerySpec{
		Type:     core.QueryTypeStructured,
		Database: ctx.DatabaseID,
		Query:    q,
	}
}

// BuildNative fills a raw query template in native mode.
func BuildNative(ctx *binding.Context, tmpl string, b *Bindings) *core.QuerySpec {
	return &core.QuerySpec{
		Type:     core.QueryTypeNative,
		Database: ctx.DatabaseID,
		Native:   &core.NativeQuery{Query: template.Fill(core.RefNative, ctx, b.Values, tmpl)},
	}
}

// SourceTable infers the table a structured query reads from. Fields that
// all live in one table select it. Otherwise the first linked field selects
// the table holding its foreign key, the "many" side of the join, and
// failing that the first field's own table. Without bound fields the first
// bound table, then the root, is used.
func SourceTable(ctx *binding.Context, b *Bindings) int64 {
	fields := b.Fields()
	if len(fields) == 0 {
		if tables := b.Tables(); len(tables) > 0 {
			return tables[0].ID
		}
		return ctx.Root.ID
	}

	single := true
	for _, f := range fields[1:] {
		if f.TableID != fields[0].TableID {
			single = false
			break
		}
	}
	if single {
		return fields[0].TableID
	}

	for _, f := range fields {
		if f.Link == 0 {
			continue
		}
		if fk, ok := ctx.LinkEdge(f.Link); ok {
			return fk.SourceTableID
		}
	}
	return fields[0].TableID
}

func substitute(ctx *binding.Context, e core.Expr, b *Bindings) core.Expr {
	return core.Rewrite(e, func(node core.Expr) (core.Expr, bool) {
		d, ok := node.(*core.DimensionRef)
		if !ok {
			return nil, false
		}
		obj, ok := b.Get(d.Name)
		if !ok {
			return node, true
		}
		if ref, ok := obj.Reference(core.RefMBQL, ctx).(core.Expr); ok {
			return ref, true
		}
		return node, true
	})
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
