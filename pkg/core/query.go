package core

import (
	"fmt"
)

// QueryType distinguishes structured and native queries.
type QueryType string

// Query types.
const (
	QueryTypeStructured QueryType = "query"
	QueryTypeNative     QueryType = "native"
)

// QuerySpec is an executable query specification bound to real schema objects.
type QuerySpec struct {
	Type     QueryType        `json:"type"`
	Database int64            `json:"database"`
	Query    *StructuredQuery `json:"query,omitempty"`
	Native   *NativeQuery     `json:"native,omitempty"`
}

// StructuredQuery is the MBQL-like body of a structured query.
type StructuredQuery struct {
	SourceTable int64         `json:"source_table"`
	Filter      Expr          `json:"filter,omitempty"`
	Breakout    []Expr        `json:"breakout,omitempty"`
	Aggregation []Expr        `json:"aggregation,omitempty"`
	OrderBy     []OrderClause `json:"order_by,omitempty"`
	Limit       int           `json:"limit,omitempty"`
}

// NativeQuery is a filled-in raw query.
type NativeQuery struct {
	Query string `json:"query"`
}

// OrderClause is a resolved (direction, target) ordering.
type OrderClause struct {
	Direction Direction
	Target    Expr
}

// MarshalJSON encodes [direction, target].
func (o OrderClause) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{o.Direction, o.Target})
}

// UnmarshalJSON decodes [direction, target].
func (o *OrderClause) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := decodeNumbers(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("order clause must have 2 elements, got %d", len(raw))
	}
	dir, ok := raw[0].(string)
	if !ok {
		return fmt.Errorf("order direction must be a string, got %T", raw[0])
	}
	target, err := ParseExpr(raw[1])
	if err != nil {
		return fmt.Errorf("order target: %w", err)
	}
	o.Direction = Direction(dir)
	o.Target = target
	return nil
}

// structuredQueryJSON mirrors StructuredQuery with undecoded expressions.
type structuredQueryJSON struct {
	SourceTable int64         `json:"source_table"`
	Filter      any           `json:"filter,omitempty"`
	Breakout    []any         `json:"breakout,omitempty"`
	Aggregation []any         `json:"aggregation,omitempty"`
	OrderBy     []OrderClause `json:"order_by,omitempty"`
	Limit       int           `json:"limit,omitempty"`
}

// UnmarshalJSON decodes expressions from their list form.
func (q *StructuredQuery) UnmarshalJSON(data []byte) error {
	var raw structuredQueryJSON
	if err := decodeNumbers(data, &raw); err != nil {
		return err
	}

	filter, err := ParseExpr(raw.Filter)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	breakout, err := parseExprs(raw.Breakout)
	if err != nil {
		return fmt.Errorf("breakout: %w", err)
	}
	aggregation, err := parseExprs(raw.Aggregation)
	if err != nil {
		return fmt.Errorf("aggregation: %w", err)
	}

	*q = StructuredQuery{
		SourceTable: raw.SourceTable,
		Filter:      filter,
		Breakout:    breakout,
		Aggregation: aggregation,
		OrderBy:     raw.OrderBy,
		Limit:       raw.Limit,
	}
	return nil
}

func parseExprs(raw []any) ([]Expr, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Expr, 0, len(raw))
	for _, r := range raw {
		e, err := ParseExpr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Candidate is one concrete, permission-checked card.
type Candidate struct {
	// Name is the card identifier from the rule.
	Name        string
	Title       string
	Description string
	Score       float64
	Query       *QuerySpec
}

// Dashboard is the result of one automagic run for a root table.
type Dashboard struct {
	Title       string
	Description string
	Rule        string
	TableID     int64
	Cards       []*Candidate
}
