// Package binding resolves a rule against a schema graph: every dimension
// gets its matching schema objects and every metric and filter identifier
// gets its best overload.
package binding

import (
	"log/slog"

	"github.com/leapstack-labs/autodash/internal/matcher"
	"github.com/leapstack-labs/autodash/internal/schemagraph"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// Types is the part of the type hierarchy the pipeline needs.
type Types interface {
	IsA(tag, ancestor core.TypeTag) bool
	InferType(identifier string) core.TypeTag
}

// Dimension is a bound dimension declaration.
type Dimension struct {
	Name      string
	Matches   []core.Object
	FieldType core.FieldType
	Score     float64
}

// Context is everything candidate generation needs for one root table. It is
// built per invocation and never mutated afterwards.
type Context struct {
	*schemagraph.Graph

	Types      Types
	Rule       *core.Rule
	Dimensions map[string]*Dimension
	Metrics    map[string]core.MetricDef
	Filters    map[string]core.FilterDef

	matcher *matcher.Matcher
}

// NewContext binds rule against graph.
func NewContext(graph *schemagraph.Graph, types Types, rule *core.Rule, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := matcher.New(graph, types)
	ctx := &Context{
		Graph:   graph,
		Types:   types,
		Rule:    rule,
		matcher: m,
	}
	ctx.Dimensions = BindDimensions(m, rule.Dimensions)
	ctx.Metrics = ResolveMetrics(rule.Metrics, ctx.Dimensions)
	ctx.Filters = ResolveFilters(rule.Filters, ctx.Dimensions)

	matched := 0
	for _, d := range ctx.Dimensions {
		if len(d.Matches) > 0 {
			matched++
		}
	}
	logger.Debug("bound rule",
		slog.String("rule", rule.Name),
		slog.Int64("root", graph.Root.ID),
		slog.Int("dimensions", len(ctx.Dimensions)),
		slog.Int("matched_dimensions", matched),
		slog.Int("metrics", len(ctx.Metrics)),
		slog.Int("filters", len(ctx.Filters)))

	return ctx
}

// Matcher returns the matcher over the context's graph.
func (c *Context) Matcher() *matcher.Matcher {
	return c.matcher
}

// FindTable returns the first table whose entity type is-a the type
// inferred from identifier.
func (c *Context) FindTable(identifier string) (*core.Table, bool) {
	return c.FirstTableOfType(c.Types, c.Types.InferType(identifier))
}

// DimensionMatches returns the matches of a dimension, nil when unknown.
func (c *Context) DimensionMatches(name string) []core.Object {
	if d, ok := c.Dimensions[name]; ok {
		return d.Matches
	}
	return nil
}
