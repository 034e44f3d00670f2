package core

import (
	"encoding/json"
	"fmt"
)

// Expr is a node of a metric or filter expression. Rules write expressions as
// nested lists, e.g. ["sum", ["dimension", "Income"]]; after binding, dimension
// forms are replaced by field references.
type Expr interface {
	exprNode()
}

// Literal is a constant embedded in an expression.
type Literal struct {
	Value any
}

// DimensionRef names a rule dimension: ["dimension", "Price"].
type DimensionRef struct {
	Name string
}

// Call is an operator applied to arguments: ["count"], ["=", a, b].
type Call struct {
	Op   string
	Args []Expr
}

// FieldRef references a field by id: ["field-id", 12].
type FieldRef struct {
	FieldID int64
}

// FKRef references a field through a foreign key: ["fk->", fk, field].
type FKRef struct {
	FKFieldID int64
	FieldID   int64
}

// TableRef references a whole table: ["table-id", 3].
type TableRef struct {
	TableID int64
}

// AggregateRef references an aggregation by position: ["aggregate-field", 0].
type AggregateRef struct {
	Index int
}

func (*Literal) exprNode()      {}
func (*DimensionRef) exprNode() {}
func (*Call) exprNode()         {}
func (*FieldRef) exprNode()     {}
func (*FKRef) exprNode()        {}
func (*TableRef) exprNode()     {}
func (*AggregateRef) exprNode() {}

// Expression heads with a fixed meaning.
const (
	OpDimension      = "dimension"
	OpFieldID        = "field-id"
	OpFK             = "fk->"
	OpTableID        = "table-id"
	OpAggregateField = "aggregate-field"
	OpAnd            = "and"
)

// Rewrite walks e top-down. fn is offered every node first; when it returns
// ok the replacement is used as-is, otherwise Call arguments are rewritten
// recursively. The input is never modified.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if repl, ok := fn(e); ok {
		return repl
	}
	call, ok := e.(*Call)
	if !ok {
		return e
	}
	args := make([]Expr, len(call.Args))
	for i, arg := range call.Args {
		args[i] = Rewrite(arg, fn)
	}
	return &Call{Op: call.Op, Args: args}
}

// Dimensions returns the distinct dimension names referenced by e, in order of
// first appearance.
func Dimensions(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Rewrite(e, func(node Expr) (Expr, bool) {
		if d, ok := node.(*DimensionRef); ok {
			if !seen[d.Name] {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
			return node, true
		}
		return nil, false
	})
	return names
}

// ParseExpr converts generic decoded data (from YAML or JSON) into an Expr.
func ParseExpr(v any) (Expr, error) {
	list, ok := v.([]any)
	if !ok {
		switch lit := v.(type) {
		case nil:
			return nil, nil
		case json.Number:
			return &Literal{Value: numberValue(lit)}, nil
		}
		return &Literal{Value: v}, nil
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	head, ok := list[0].(string)
	if !ok {
		return nil, fmt.Errorf("expression head must be a string, got %T", list[0])
	}

	switch head {
	case OpDimension:
		if len(list) != 2 {
			return nil, fmt.Errorf("dimension form takes exactly one name")
		}
		name, ok := list[1].(string)
		if !ok {
			return nil, fmt.Errorf("dimension name must be a string, got %T", list[1])
		}
		return &DimensionRef{Name: name}, nil
	case OpFieldID:
		ids, err := int64Args(head, list[1:], 1)
		if err != nil {
			return nil, err
		}
		return &FieldRef{FieldID: ids[0]}, nil
	case OpFK:
		ids, err := int64Args(head, list[1:], 2)
		if err != nil {
			return nil, err
		}
		return &FKRef{FKFieldID: ids[0], FieldID: ids[1]}, nil
	case OpTableID:
		ids, err := int64Args(head, list[1:], 1)
		if err != nil {
			return nil, err
		}
		return &TableRef{TableID: ids[0]}, nil
	case OpAggregateField:
		ids, err := int64Args(head, list[1:], 1)
		if err != nil {
			return nil, err
		}
		return &AggregateRef{Index: int(ids[0])}, nil
	}

	call := &Call{Op: head}
	for _, raw := range list[1:] {
		arg, err := ParseExpr(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", head, err)
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

func int64Args(head string, args []any, n int) ([]int64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", head, n, len(args))
	}
	out := make([]int64, n)
	for i, a := range args {
		switch v := a.(type) {
		case int:
			out[i] = int64(v)
		case int64:
			out[i] = v
		case float64:
			out[i] = int64(v)
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", head, err)
			}
			out[i] = n
		default:
			return nil, fmt.Errorf("%s: expected integer, got %T", head, a)
		}
	}
	return out, nil
}

// MarshalJSON encodes the literal value itself.
func (l *Literal) MarshalJSON() ([]byte, error) { return MarshalQuery(l.Value) }

// MarshalJSON encodes ["dimension", name].
func (d *DimensionRef) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{OpDimension, d.Name})
}

// MarshalJSON encodes [op, args...].
func (c *Call) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(c.Args)+1)
	out = append(out, c.Op)
	for _, a := range c.Args {
		out = append(out, a)
	}
	return MarshalQuery(out)
}

// MarshalJSON encodes ["field-id", id].
func (f *FieldRef) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{OpFieldID, f.FieldID})
}

// MarshalJSON encodes ["fk->", fk, field].
func (f *FKRef) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{OpFK, f.FKFieldID, f.FieldID})
}

// MarshalJSON encodes ["table-id", id].
func (t *TableRef) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{OpTableID, t.TableID})
}

// MarshalJSON encodes ["aggregate-field", index].
func (a *AggregateRef) MarshalJSON() ([]byte, error) {
	return MarshalQuery([]any{OpAggregateField, a.Index})
}

// ExprString renders the expression in its list form, mainly for logs and tests.
func ExprString(e Expr) string {
	if e == nil {
		return "nil"
	}
	b, err := MarshalQuery(e)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}
