package candidate

import (
	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// MatchSets computes, for each identifier used together in one card, the
// objects it may be bound to.
//
// Matches are grouped by object id. A group with a single variant is kept.
// When the card touches one table only, linked variants are dropped in favour
// of the unlinked field. Otherwise only variants whose link leads to a
// touched table survive, so one candidate never mixes unrelated join paths.
// Identifiers without matches fall back to the tables of their inferred type.
func MatchSets(ctx *binding.Context, identifiers []string) [][]core.Object {
	touched := make(map[int64]bool)
	for _, id := range identifiers {
		for _, obj := range ctx.DimensionMatches(id) {
			touched[obj.OwnerTableID()] = true
		}
	}

	sets := make([][]core.Object, 0, len(identifiers))
	for _, id := range identifiers {
		matches := ctx.DimensionMatches(id)
		if len(matches) == 0 {
			var tables []core.Object
			for _, t := range ctx.Matcher().FilterTables(ctx.Types.InferType(id)) {
				tables = append(tables, t)
			}
			sets = append(sets, tables)
			continue
		}

		var set []core.Object
		for _, group := range groupByID(matches) {
			if len(group) == 1 {
				set = append(set, group[0])
				continue
			}
			for _, obj := range group {
				link := linkOf(obj)
				if len(touched) == 1 {
					if link == 0 {
						set = append(set, obj)
					}
					continue
				}
				if fk, ok := ctx.LinkEdge(link); ok && touched[fk.TargetTableID] {
					set = append(set, obj)
				}
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func groupByID(objs []core.Object) [][]core.Object {
	var order []int64
	groups := make(map[int64][]core.Object)
	for _, obj := range objs {
		id := obj.ObjectID()
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], obj)
	}
	out := make([][]core.Object, 0, len(order))
	for _, id := range order {
		out = append(out, groups[id])
	}
	return out
}

func linkOf(obj core.Object) int64 {
	if f, ok := obj.(*core.Field); ok {
		return f.Link
	}
	return 0
}
