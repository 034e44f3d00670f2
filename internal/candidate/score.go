package candidate

import (
	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// Score computes a card's score. Native cards keep their declared score.
// Structured cards scale it by the mean score of the dimensions, metrics and
// filters they use, relative to core.MaxScore. Every referenced declaration
// counts, including those scored zero; a card referencing nothing keeps its
// own score.
func Score(ctx *binding.Context, card core.CardTemplate, metrics []core.MetricDef, filters []core.FilterDef) float64 {
	if card.Query != "" {
		return card.Score
	}

	var scores []float64
	for _, name := range card.Dimensions {
		if d, ok := ctx.Dimensions[name]; ok {
			scores = append(scores, d.Score)
		}
	}
	for _, m := range metrics {
		scores = append(scores, m.Score)
	}
	for _, f := range filters {
		scores = append(scores, f.Score)
	}

	mean := core.MaxScore
	if len(scores) > 0 {
		total := 0.0
		for _, s := range scores {
			total += s
		}
		mean = total / float64(len(scores))
	}
	return card.Score * mean / core.MaxScore
}
