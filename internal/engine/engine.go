// Package engine generates automagic dashboards: it selects a rule for a
// root table, binds it against the table's schema graph and keeps the best
// candidates of every card.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/internal/candidate"
	"github.com/leapstack-labs/autodash/internal/rules"
	"github.com/leapstack-labs/autodash/internal/schemagraph"
	"github.com/leapstack-labs/autodash/internal/template"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// DefaultParallelism is the number of root tables generated concurrently.
const DefaultParallelism = 4

// Types is the type hierarchy as the engine uses it; *hierarchy.Hierarchy
// satisfies it.
type Types interface {
	binding.Types
	Depth(tag core.TypeTag) int
}

// Config holds engine configuration.
type Config struct {
	Types       Types
	Rules       *rules.RuleSet
	Provider    core.MetadataProvider
	Permissions core.PermissionChecker
	// Sink receives dashboards from AutomagicDashboard; optional otherwise.
	Sink core.DashboardSink
	// MaxCandidatesPerCard caps candidates per card; 0 means unbounded.
	MaxCandidatesPerCard int
	// Parallelism bounds GenerateAll; 0 means DefaultParallelism.
	Parallelism int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine is safe for concurrent use; every call builds its own context.
type Engine struct {
	types         Types
	rules         *rules.RuleSet
	provider      core.MetadataProvider
	permissions   core.PermissionChecker
	sink          core.DashboardSink
	maxCandidates int
	parallelism   int
	logger        *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Types == nil {
		return nil, errors.New("engine: type hierarchy is required")
	}
	if cfg.Rules == nil {
		return nil, errors.New("engine: rule set is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("engine: metadata provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	return &Engine{
		types:         cfg.Types,
		rules:         cfg.Rules,
		provider:      cfg.Provider,
		permissions:   cfg.Permissions,
		sink:          cfg.Sink,
		maxCandidates: cfg.MaxCandidatesPerCard,
		parallelism:   parallelism,
		logger:        logger,
	}, nil
}

// Generate builds the dashboard for one root table without persisting it.
// The dashboard has no cards when nothing in the rule could be bound.
func (e *Engine) Generate(ctx context.Context, tableID int64) (*core.Dashboard, error) {
	root, err := e.provider.GetTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table %d: %w", tableID, err)
	}

	rule, err := e.rules.Select(e.types, root)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("selected rule",
		slog.Int64("table", tableID),
		slog.String("entity_type", string(root.EntityTypeOrDefault())),
		slog.String("rule", rule.Name))

	graph, err := schemagraph.Build(ctx, e.provider, tableID, e.logger)
	if err != nil {
		return nil, err
	}
	bctx := binding.NewContext(graph, e.types, rule, e.logger)

	gen := candidate.New(candidate.Config{
		Context:       bctx,
		Permissions:   e.permissions,
		MaxCandidates: e.maxCandidates,
		Logger:        e.logger,
	})

	var groups []cardGroup
	for _, decl := range rule.Cards {
		cands, err := gen.Generate(ctx, decl.Name, decl.Card)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", tableID, err)
		}
		groups = addGroup(groups, cardGroup{name: decl.Name, candidates: cands})
	}

	d := &core.Dashboard{
		Title:       template.Fill(core.RefString, bctx, nil, rule.Title),
		Description: template.Fill(core.RefString, bctx, nil, rule.Description),
		Rule:        rule.Name,
		TableID:     tableID,
	}
	for _, g := range groups {
		d.Cards = append(d.Cards, g.candidates...)
	}
	return d, nil
}

// AutomagicDashboard generates and persists the dashboard for one root table.
// It returns an empty id when no card produced a candidate.
func (e *Engine) AutomagicDashboard(ctx context.Context, tableID int64) (string, error) {
	if e.sink == nil {
		return "", errors.New("engine: no dashboard sink configured")
	}

	d, err := e.Generate(ctx, tableID)
	if err != nil {
		return "", err
	}
	return e.Save(ctx, d)
}

// Save persists a generated dashboard through the sink. Dashboards without
// cards are not stored and yield an empty id.
func (e *Engine) Save(ctx context.Context, d *core.Dashboard) (string, error) {
	if e.sink == nil {
		return "", errors.New("engine: no dashboard sink configured")
	}
	if len(d.Cards) == 0 {
		e.logger.Info("no viable cards", slog.Int64("table", d.TableID), slog.String("rule", d.Rule))
		return "", nil
	}

	id, err := e.sink.CreateDashboard(ctx, d)
	if err != nil {
		return "", fmt.Errorf("failed to create dashboard for table %d: %w", d.TableID, err)
	}
	e.logger.Info("created dashboard",
		slog.String("id", id),
		slog.Int64("table", d.TableID),
		slog.String("rule", d.Rule),
		slog.Int("cards", len(d.Cards)))
	return id, nil
}

// Result is the outcome of one root table in GenerateAll.
type Result struct {
	TableID   int64
	Dashboard *core.Dashboard
	Err       error
}

// GenerateAll runs Generate for several root tables concurrently. A failing
// table does not stop the others; results keep the input order.
func (e *Engine) GenerateAll(ctx context.Context, tableIDs []int64) []Result {
	results := make([]Result, len(tableIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, id := range tableIDs {
		g.Go(func() error {
			d, err := e.Generate(gctx, id)
			results[i] = Result{TableID: id, Dashboard: d, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type cardGroup struct {
	name       string
	candidates []*core.Candidate
}

func (g cardGroup) best() float64 {
	best := 0.0
	for _, c := range g.candidates {
		if c.Score > best {
			best = c.Score
		}
	}
	return best
}

// addGroup adds a non-empty group. A group for an identifier already present
// replaces it only with a strictly higher best score.
func addGroup(groups []cardGroup, g cardGroup) []cardGroup {
	if len(g.candidates) == 0 {
		return groups
	}
	for i, existing := range groups {
		if existing.name != g.name {
			continue
		}
		if g.best() > existing.best() {
			groups[i] = g
		}
		return groups
	}
	return append(groups, g)
}
