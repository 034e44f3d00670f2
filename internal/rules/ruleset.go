// Package rules holds the rule definitions that drive dashboard generation:
// parsing rule files, layering rules through extends, and selecting the most
// specific rule for a table.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// RuleSet is an immutable, name-ordered collection of flattened rules.
type RuleSet struct {
	rules  []*core.Rule
	byName map[string]*core.Rule
}

// NewRuleSet flattens extends chains and indexes rules by name. A child rule
// gets its parent's declarations first, then its own; empty title,
// description and table type are inherited. Rules without a table type
// apply to every generic table.
func NewRuleSet(rules ...*core.Rule) (*RuleSet, error) {
	raw := make(map[string]*core.Rule, len(rules))
	for _, r := range rules {
		if _, dup := raw[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.Name)
		}
		raw[r.Name] = r
	}

	set := &RuleSet{byName: make(map[string]*core.Rule, len(rules))}
	var flatten func(name string, stack []string) (*core.Rule, error)
	flatten = func(name string, stack []string) (*core.Rule, error) {
		if r, ok := set.byName[name]; ok {
			return r, nil
		}
		for _, s := range stack {
			if s == name {
				return nil, fmt.Errorf("extends cycle: %s", strings.Join(append(stack, name), " -> "))
			}
		}
		r, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		flat := *r
		if r.Extends != "" {
			parent, err := flatten(r.Extends, append(stack, name))
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", name, err)
			}
			flat = layer(parent, r)
		}
		if flat.TableType == "" {
			flat.TableType = core.TagGenericTable
		}
		set.byName[name] = &flat
		return &flat, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r, err := flatten(name, nil)
		if err != nil {
			return nil, err
		}
		set.rules = append(set.rules, r)
	}
	return set, nil
}

func layer(parent, child *core.Rule) core.Rule {
	out := *child
	if out.TableType == "" {
		out.TableType = parent.TableType
	}
	if out.Title == "" {
		out.Title = parent.Title
	}
	if out.Description == "" {
		out.Description = parent.Description
	}
	out.Dimensions = append(append([]core.DimensionDecl(nil), parent.Dimensions...), child.Dimensions...)
	out.Metrics = append(append([]core.MetricDecl(nil), parent.Metrics...), child.Metrics...)
	out.Filters = append(append([]core.FilterDecl(nil), parent.Filters...), child.Filters...)
	out.Cards = append(append([]core.CardDecl(nil), parent.Cards...), child.Cards...)
	return out
}

// Rules returns the rules ordered by name.
func (s *RuleSet) Rules() []*core.Rule {
	return s.rules
}

// Get returns a rule by name.
func (s *RuleSet) Get(name string) (*core.Rule, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// LoadRules implements core.RuleProvider.
func (s *RuleSet) LoadRules(context.Context) ([]*core.Rule, error) {
	return s.rules, nil
}

// Specificity answers the subtype queries rule selection needs;
// *hierarchy.Hierarchy satisfies it.
type Specificity interface {
	IsA(tag, ancestor core.TypeTag) bool
	Depth(tag core.TypeTag) int
}

// Select returns the most specific rule applicable to table.
func (s *RuleSet) Select(types Specificity, table *core.Table) (*core.Rule, error) {
	return Select(types, s.rules, table)
}

// Select keeps the rules whose table type the table's entity type is-a, and
// returns the one whose table type has the most ancestors. Ties go to the
// earliest rule.
func Select(types Specificity, rules []*core.Rule, table *core.Table) (*core.Rule, error) {
	entity := table.EntityTypeOrDefault()

	var best *core.Rule
	bestDepth := -1
	for _, r := range rules {
		if !types.IsA(entity, r.TableType) {
			continue
		}
		if d := types.Depth(r.TableType); d > bestDepth {
			best, bestDepth = r, d
		}
	}
	if best == nil {
		return nil, &core.NoApplicableRuleError{TableID: table.ID, EntityType: entity}
	}
	return best, nil
}
