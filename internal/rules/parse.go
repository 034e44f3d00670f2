package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/leapstack-labs/autodash/pkg/core"
	"gopkg.in/yaml.v3"
)

// ruleYAML is the on-disk shape of a rule file. Declarations are lists of
// single-key maps so that an identifier may repeat.
type ruleYAML struct {
	TableType   string                     `yaml:"table_type"`
	Title       string                     `yaml:"title"`
	Description string                     `yaml:"description"`
	Extends     string                     `yaml:"extends"`
	Dimensions  []map[string]dimensionYAML `yaml:"dimensions"`
	Metrics     []map[string]metricYAML    `yaml:"metrics"`
	Filters     []map[string]filterYAML    `yaml:"filters"`
	Cards       []map[string]cardYAML      `yaml:"cards"`
}

type dimensionYAML struct {
	FieldType []string `yaml:"field_type"`
	Score     *float64 `yaml:"score"`
	LinksTo   string   `yaml:"links_to"`
}

type metricYAML struct {
	Metric any      `yaml:"metric"`
	Score  *float64 `yaml:"score"`
}

type filterYAML struct {
	Filter any      `yaml:"filter"`
	Score  *float64 `yaml:"score"`
}

type cardYAML struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Dimensions  []string `yaml:"dimensions"`
	Metrics     []string `yaml:"metrics"`
	Filters     []string `yaml:"filters"`
	OrderBy     []any    `yaml:"order_by"`
	Limit       int      `yaml:"limit"`
	Score       float64  `yaml:"score"`
	Query       string   `yaml:"query"`
}

var knownFields = map[string]bool{
	"table_type":  true,
	"title":       true,
	"description": true,
	"extends":     true,
	"dimensions":  true,
	"metrics":     true,
	"filters":     true,
	"cards":       true,
}

// UnknownFieldError reports a top-level key a rule file may not contain.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// TypeInferrer qualifies bare identifiers into tags.
type TypeInferrer interface {
	InferType(identifier string) core.TypeTag
}

// Parse decodes one rule. Bare type names are qualified through types.
func Parse(name string, data []byte, types TypeInferrer) (*core.Rule, error) {
	var rawMap map[string]any
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var raw ruleYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode rule: %w", err)
	}

	rule := &core.Rule{
		Name:        name,
		Title:       raw.Title,
		Description: raw.Description,
		Extends:     raw.Extends,
	}
	if raw.TableType != "" {
		rule.TableType = types.InferType(raw.TableType)
	}

	for _, item := range raw.Dimensions {
		id, d, err := single(item)
		if err != nil {
			return nil, fmt.Errorf("dimensions: %w", err)
		}
		def, err := convertDimension(d, types)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", id, err)
		}
		rule.Dimensions = append(rule.Dimensions, core.DimensionDecl{Name: id, Def: def})
	}

	for _, item := range raw.Metrics {
		id, m, err := single(item)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		expr, err := core.ParseExpr(m.Metric)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", id, err)
		}
		if expr == nil {
			return nil, fmt.Errorf("metric %s: missing expression", id)
		}
		score, err := requireScore(m.Score)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", id, err)
		}
		rule.Metrics = append(rule.Metrics, core.MetricDecl{Name: id, Def: core.MetricDef{Metric: expr, Score: score}})
	}

	for _, item := range raw.Filters {
		id, f, err := single(item)
		if err != nil {
			return nil, fmt.Errorf("filters: %w", err)
		}
		expr, err := core.ParseExpr(f.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", id, err)
		}
		if expr == nil {
			return nil, fmt.Errorf("filter %s: missing expression", id)
		}
		score, err := requireScore(f.Score)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", id, err)
		}
		rule.Filters = append(rule.Filters, core.FilterDecl{Name: id, Def: core.FilterDef{Filter: expr, Score: score}})
	}

	for _, item := range raw.Cards {
		id, c, err := single(item)
		if err != nil {
			return nil, fmt.Errorf("cards: %w", err)
		}
		card, err := convertCard(c)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", id, err)
		}
		rule.Cards = append(rule.Cards, core.CardDecl{Name: id, Card: card})
	}

	return rule, nil
}

func single[T any](item map[string]T) (string, T, error) {
	var zero T
	if len(item) != 1 {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", zero, fmt.Errorf("each entry must have exactly one identifier, got %v", keys)
	}
	for k, v := range item {
		return k, v, nil
	}
	return "", zero, nil
}

func convertDimension(d dimensionYAML, types TypeInferrer) (core.DimensionDef, error) {
	var def core.DimensionDef
	switch len(d.FieldType) {
	case 1:
		def.FieldType = core.FieldType{TableSpec: types.InferType(d.FieldType[0])}
	case 2:
		def.FieldType = core.FieldType{
			TableSpec: types.InferType(d.FieldType[0]),
			FieldSpec: types.InferType(d.FieldType[1]),
		}
	default:
		return def, fmt.Errorf("field_type must have 1 or 2 elements, got %d", len(d.FieldType))
	}
	if d.LinksTo != "" {
		def.LinksTo = types.InferType(d.LinksTo)
	}
	score, err := requireScore(d.Score)
	if err != nil {
		return def, err
	}
	def.Score = score
	return def, nil
}

// requireScore returns a declared score. Zero is a valid score and lowers
// the mean of every card using the declaration.
func requireScore(score *float64) (float64, error) {
	if score == nil {
		return 0, errors.New("score is required")
	}
	if *score < 0 || *score > core.MaxScore {
		return 0, fmt.Errorf("score %g out of range [0, %g]", *score, core.MaxScore)
	}
	return *score, nil
}

func convertCard(c cardYAML) (core.CardTemplate, error) {
	card := core.CardTemplate{
		Title:       c.Title,
		Description: c.Description,
		Dimensions:  c.Dimensions,
		Metrics:     c.Metrics,
		Filters:     c.Filters,
		Limit:       c.Limit,
		Score:       c.Score,
		Query:       c.Query,
	}
	for _, o := range c.OrderBy {
		spec, err := convertOrder(o)
		if err != nil {
			return card, err
		}
		card.OrderBy = append(card.OrderBy, spec)
	}
	return card, nil
}

// convertOrder accepts "Identifier" (ascending) or {Identifier: direction}.
func convertOrder(o any) (core.OrderSpec, error) {
	switch v := o.(type) {
	case string:
		return core.OrderSpec{Identifier: v, Direction: core.Ascending}, nil
	case map[string]any:
		if len(v) != 1 {
			return core.OrderSpec{}, fmt.Errorf("order_by entry must have exactly one identifier")
		}
		for id, dir := range v {
			s, _ := dir.(string)
			switch core.Direction(s) {
			case core.Ascending, core.Descending:
				return core.OrderSpec{Identifier: id, Direction: core.Direction(s)}, nil
			default:
				return core.OrderSpec{}, fmt.Errorf("order_by %s: invalid direction %v", id, dir)
			}
		}
	}
	return core.OrderSpec{}, fmt.Errorf("invalid order_by entry %v", o)
}
