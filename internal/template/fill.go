package template

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Context resolves placeholders that are not bound. FindTable returns the
// first table whose entity type matches the type inferred from identifier.
type Context interface {
	core.TableIndex
	FindTable(identifier string) (*core.Table, bool)
}

// Fill substitutes every [[identifier]] in tmpl. Each identifier resolves to
// its binding, else to the first table of its inferred type, else to the
// identifier text itself; the resolved value is rendered in mode. ctx may be
// nil, in which case only bindings are consulted.
func Fill(mode core.RefMode, ctx Context, bindings map[string]core.Object, tmpl string) string {
	if !strings.Contains(tmpl, openDelim) {
		return tmpl
	}

	var tables core.TableIndex
	if ctx != nil {
		tables = ctx
	}

	var sb strings.Builder
	for _, tok := range NewLexer(tmpl).Tokenize() {
		switch tok.Type {
		case TokenText:
			sb.WriteString(tok.Value)
		case TokenPlaceholder:
			sb.WriteString(render(core.Resolve(mode, lookup(ctx, bindings, tok.Value), tables)))
		}
	}
	return sb.String()
}

// Identifiers returns the distinct placeholder identifiers of tmpl in order
// of first appearance.
func Identifiers(tmpl string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, tok := range NewLexer(tmpl).Tokenize() {
		if tok.Type == TokenPlaceholder && !seen[tok.Value] {
			seen[tok.Value] = true
			ids = append(ids, tok.Value)
		}
	}
	return ids
}

func lookup(ctx Context, bindings map[string]core.Object, identifier string) any {
	if obj, ok := bindings[identifier]; ok && obj != nil {
		return obj
	}
	if ctx != nil {
		if t, ok := ctx.FindTable(identifier); ok {
			return t
		}
	}
	return identifier
}

func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case core.Expr:
		return core.ExprString(x)
	default:
		return fmt.Sprint(x)
	}
}
