package binding

import "github.com/leapstack-labs/autodash/pkg/core"

// HasMatches reports whether every dimension referenced by e has at least
// one match.
func HasMatches(e core.Expr, dims map[string]*Dimension) bool {
	for _, name := range core.Dimensions(e) {
		d, ok := dims[name]
		if !ok || len(d.Matches) == 0 {
			return false
		}
	}
	return true
}

// ResolveMetrics selects one overload per metric identifier.
func ResolveMetrics(decls []core.MetricDecl, dims map[string]*Dimension) map[string]core.MetricDef {
	return resolve(decls,
		func(d core.MetricDecl) (string, core.MetricDef) { return d.Name, d.Def },
		func(d core.MetricDef) core.Expr { return d.Metric },
		func(d core.MetricDef) float64 { return d.Score },
		dims)
}

// ResolveFilters selects one overload per filter identifier.
func ResolveFilters(decls []core.FilterDecl, dims map[string]*Dimension) map[string]core.FilterDef {
	return resolve(decls,
		func(d core.FilterDecl) (string, core.FilterDef) { return d.Name, d.Def },
		func(d core.FilterDef) core.Expr { return d.Filter },
		func(d core.FilterDef) float64 { return d.Score },
		dims)
}

// resolve folds the overloads of each identifier left to right. Of a pair,
// the only one whose dimensions all match wins; otherwise the higher score
// wins and the earlier definition is kept on a tie.
func resolve[Decl, Def any](
	decls []Decl,
	split func(Decl) (string, Def),
	expr func(Def) core.Expr,
	score func(Def) float64,
	dims map[string]*Dimension,
) map[string]Def {
	out := make(map[string]Def, len(decls))
	for _, decl := range decls {
		name, next := split(decl)
		best, ok := out[name]
		if !ok {
			out[name] = next
			continue
		}

		bestMatched, nextMatched := HasMatches(expr(best), dims), HasMatches(expr(next), dims)
		switch {
		case bestMatched && !nextMatched:
		case nextMatched && !bestMatched:
			out[name] = next
		case score(next) > score(best):
			out[name] = next
		}
	}
	return out
}
