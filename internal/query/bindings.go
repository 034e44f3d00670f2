// Package query turns a card template and a concrete binding into an
// executable query specification.
package query

import "github.com/leapstack-labs/autodash/pkg/core"

// Bindings assigns one schema object to each dimension identifier of a
// candidate. Order is the enumeration order and makes inference deterministic.
type Bindings struct {
	Order  []string
	Values map[string]core.Object
}

// NewBindings creates an empty binding set.
func NewBindings() *Bindings {
	return &Bindings{Values: make(map[string]core.Object)}
}

// Set binds identifier, keeping the first-set position on rebinding.
func (b *Bindings) Set(identifier string, obj core.Object) {
	if _, ok := b.Values[identifier]; !ok {
		b.Order = append(b.Order, identifier)
	}
	b.Values[identifier] = obj
}

// Get returns the object bound to identifier.
func (b *Bindings) Get(identifier string) (core.Object, bool) {
	obj, ok := b.Values[identifier]
	return obj, ok
}

// Fields returns the bound fields in binding order.
func (b *Bindings) Fields() []*core.Field {
	var out []*core.Field
	for _, id := range b.Order {
		if f, ok := b.Values[id].(*core.Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// Tables returns the bound tables in binding order.
func (b *Bindings) Tables() []*core.Table {
	var out []*core.Table
	for _, id := range b.Order {
		if t, ok := b.Values[id].(*core.Table); ok {
			out = append(out, t)
		}
	}
	return out
}
