package binding

import (
	"github.com/leapstack-labs/autodash/internal/matcher"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// BindDimensions computes the matches of every declared dimension. Repeated
// identifiers are merged with MergeDimension in declaration order.
func BindDimensions(m *matcher.Matcher, decls []core.DimensionDecl) map[string]*Dimension {
	out := make(map[string]*Dimension, len(decls))
	for _, decl := range decls {
		fields := m.FieldCandidates(decl.Def)
		matches := make([]core.Object, 0, len(fields))
		for _, f := range fields {
			matches = append(matches, f)
		}
		d := &Dimension{
			Name:      decl.Name,
			Matches:   matches,
			FieldType: decl.Def.FieldType,
			Score:     decl.Def.Score,
		}
		if prev, ok := out[decl.Name]; ok {
			d = MergeDimension(prev, d)
		}
		out[decl.Name] = d
	}
	return out
}

// MergeDimension picks between two bindings of the same identifier: the one
// with matches wins, then the higher score. On a tie the first is kept.
func MergeDimension(first, second *Dimension) *Dimension {
	firstMatched, secondMatched := len(first.Matches) > 0, len(second.Matches) > 0
	switch {
	case firstMatched && !secondMatched:
		return first
	case secondMatched && !firstMatched:
		return second
	case second.Score > first.Score:
		return second
	default:
		return first
	}
}
