// Package candidate enumerates the concrete, permission-checked queries a
// card template can produce against one bound context.
package candidate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/internal/query"
	"github.com/leapstack-labs/autodash/internal/template"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// DefaultMaxCandidates bounds the candidates kept per card.
const DefaultMaxCandidates = 50

// Config holds generator dependencies.
type Config struct {
	Context     *binding.Context
	Permissions core.PermissionChecker
	// MaxCandidates caps permitted candidates per card; 0 means unbounded.
	MaxCandidates int
	Logger        *slog.Logger
}

// Generator produces card candidates.
type Generator struct {
	ctx           *binding.Context
	permissions   core.PermissionChecker
	maxCandidates int
	logger        *slog.Logger
}

// New creates a generator. A nil permission checker allows everything.
func New(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		ctx:           cfg.Context,
		permissions:   cfg.Permissions,
		maxCandidates: cfg.MaxCandidates,
		logger:        logger,
	}
}

// Identifiers returns every dimension identifier a card uses: its breakout
// dimensions, dimensions inside its metrics and filters, and placeholders of
// its raw query, deduplicated in that order.
func Identifiers(card core.CardTemplate, metrics []core.MetricDef, filters []core.FilterDef) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(card.Dimensions...)
	for _, m := range metrics {
		add(core.Dimensions(m.Metric)...)
	}
	for _, f := range filters {
		add(core.Dimensions(f.Filter)...)
	}
	if card.Query != "" {
		add(template.Identifiers(card.Query)...)
	}
	return out
}

// Generate returns the candidates of one card in enumeration order. Cards
// referencing unknown metrics or filters yield nothing. Permission checker
// errors abort generation.
func (g *Generator) Generate(ctx context.Context, name string, card core.CardTemplate) ([]*core.Candidate, error) {
	metrics, ok := lookup(g.ctx.Metrics, card.Metrics)
	if !ok {
		g.logger.Debug("card references unknown metric", slog.String("card", name))
		return nil, nil
	}
	filters, ok := lookup(g.ctx.Filters, card.Filters)
	if !ok {
		g.logger.Debug("card references unknown filter", slog.String("card", name))
		return nil, nil
	}

	score := Score(g.ctx, card, metrics, filters)
	identifiers := Identifiers(card, metrics, filters)
	sets := MatchSets(g.ctx, identifiers)

	structured := query.Structured{
		Dimensions: card.Dimensions,
		Metrics:    metrics,
		Filters:    filters,
		OrderBy:    query.ResolveOrderBy(card.OrderBy, card.Dimensions, card.Metrics),
		Limit:      card.Limit,
	}

	var out []*core.Candidate
	err := Product(sets, func(tuple []core.Object) (bool, error) {
		b := query.NewBindings()
		for i, id := range identifiers {
			b.Set(id, tuple[i])
		}

		var spec *core.QuerySpec
		if card.Query != "" {
			spec = query.BuildNative(g.ctx, card.Query, b)
		} else {
			spec = query.BuildStructured(g.ctx, structured, b)
		}

		if g.permissions != nil {
			allowed, err := g.permissions.HasWritePermission(ctx, spec)
			if err != nil {
				return false, fmt.Errorf("permission check for card %s: %w", name, err)
			}
			if !allowed {
				return true, nil
			}
		}

		out = append(out, &core.Candidate{
			Name:        name,
			Title:       template.Fill(core.RefString, g.ctx, b.Values, card.Title),
			Description: template.Fill(core.RefString, g.ctx, b.Values, card.Description),
			Score:       score,
			Query:       spec,
		})
		return g.maxCandidates <= 0 || len(out) < g.maxCandidates, nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generated card candidates",
		slog.String("card", name),
		slog.Int("identifiers", len(identifiers)),
		slog.Int("candidates", len(out)),
		slog.Float64("score", score))

	return out, nil
}

// Product calls visit for every tuple of the cartesian product of sets, the
// first set varying slowest. visit returns false to stop early. Any empty set
// yields no tuples; no sets yields one empty tuple.
func Product(sets [][]core.Object, visit func([]core.Object) (bool, error)) error {
	for _, s := range sets {
		if len(s) == 0 {
			return nil
		}
	}

	idx := make([]int, len(sets))
	tuple := make([]core.Object, len(sets))
	for {
		for i, j := range idx {
			tuple[i] = sets[i][j]
		}
		more, err := visit(append([]core.Object(nil), tuple...))
		if err != nil || !more {
			return err
		}

		// Advance the odometer from the last position.
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(sets[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return nil
		}
	}
}

func lookup[D any](defs map[string]D, names []string) ([]D, bool) {
	out := make([]D, 0, len(names))
	for _, n := range names {
		d, ok := defs[n]
		if !ok {
			return nil, false
		}
		out = append(out, d)
	}
	return out, true
}
