package rules

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/autodash/internal/hierarchy"
	"github.com/leapstack-labs/autodash/internal/testutil"
	"github.com/leapstack-labs/autodash/pkg/core"
)

const transactionRule = `
table_type: TransactionTable
title: Transactions
dimensions:
  - Income:
      field_type: [TransactionTable, Income]
      score: 100
  - Timestamp:
      field_type: [CreationTimestamp]
      score: 90
  - Timestamp:
      field_type: [DateTime]
      score: 60
metrics:
  - Total:
      metric: [sum, [dimension, Income]]
      score: 100
filters:
  - Positive:
      filter: [">", [dimension, Income], 0]
      score: 50
cards:
  - IncomeOverTime:
      title: Income over time
      dimensions: [Timestamp]
      metrics: [Total]
      filters: [Positive]
      order_by:
        - Timestamp
        - Total: descending
      limit: 5
      score: 80
`

func TestParse(t *testing.T) {
	rule, err := Parse("TransactionTable", []byte(transactionRule), hierarchy.Default())
	require.NoError(t, err)

	assert.Equal(t, "TransactionTable", rule.Name)
	assert.Equal(t, core.TypeTag("entity/TransactionTable"), rule.TableType)
	require.Len(t, rule.Dimensions, 3)
	assert.Equal(t, core.DimensionDecl{Name: "Income", Def: core.DimensionDef{
		FieldType: core.FieldType{TableSpec: "entity/TransactionTable", FieldSpec: "type/Income"},
		Score:     100,
	}}, rule.Dimensions[0])
	assert.Equal(t, core.FieldType{TableSpec: "type/CreationTimestamp"}, rule.Dimensions[1].Def.FieldType)
	assert.Equal(t, "Timestamp", rule.Dimensions[2].Name)

	require.Len(t, rule.Metrics, 1)
	assert.Equal(t, `["sum",["dimension","Income"]]`, core.ExprString(rule.Metrics[0].Def.Metric))
	require.Len(t, rule.Filters, 1)
	assert.Equal(t, `[">",["dimension","Income"],0]`, core.ExprString(rule.Filters[0].Def.Filter))

	require.Len(t, rule.Cards, 1)
	card := rule.Cards[0].Card
	assert.Equal(t, "IncomeOverTime", rule.Cards[0].Name)
	assert.Equal(t, []core.OrderSpec{
		{Identifier: "Timestamp", Direction: core.Ascending},
		{Identifier: "Total", Direction: core.Descending},
	}, card.OrderBy)
	assert.Equal(t, 5, card.Limit)
	assert.Equal(t, 80.0, card.Score)
}

func TestParse_ZeroScore(t *testing.T) {
	rule, err := Parse("r", []byte("metrics:\n  - Count: {metric: [count], score: 0}\n"), hierarchy.Default())
	require.NoError(t, err)
	require.Len(t, rule.Metrics, 1)
	assert.Equal(t, 0.0, rule.Metrics[0].Def.Score)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown field", "table_type: UserTable\nbogus: 1\n", `unknown field "bogus"`},
		{"invalid yaml", "dimensions: [", "invalid YAML"},
		{"bad field_type", "dimensions:\n  - X:\n      field_type: []\n", "field_type must have 1 or 2 elements"},
		{"two identifiers in one entry", "metrics:\n  - A: {metric: [count]}\n    B: {metric: [count]}\n", "exactly one identifier"},
		{"missing metric", "metrics:\n  - A: {score: 10}\n", "missing expression"},
		{"nested typo", "dimensions:\n  - X:\n      field_typ: [Number]\n      score: 10\n", "field field_typ not found"},
		{"metric score typo", "metrics:\n  - A: {metric: [count], scor: 10}\n", "field scor not found"},
		{"missing score", "dimensions:\n  - X:\n      field_type: [Number]\n", "dimension X: score is required"},
		{"filter without score", "filters:\n  - F: {filter: [not-null, [dimension, X]]}\n", "filter F: score is required"},
		{"score out of range", "metrics:\n  - A: {metric: [count], score: 120}\n", "out of range"},
		{"bad direction", "cards:\n  - C:\n      order_by:\n        - X: sideways\n", "invalid direction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("r", []byte(tt.input), hierarchy.Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Parse("r", []byte("bogus: 1\n"), hierarchy.Default())
	var unknown *UnknownFieldError
	assert.True(t, errors.As(err, &unknown))
}

func TestNewRuleSet_Extends(t *testing.T) {
	base := &core.Rule{
		Name:       "Base",
		Title:      "Base title",
		Dimensions: []core.DimensionDecl{{Name: "Timestamp"}},
		Cards:      []core.CardDecl{{Name: "Rowcount"}},
	}
	child := &core.Rule{
		Name:       "Child",
		TableType:  "entity/UserTable",
		Extends:    "Base",
		Dimensions: []core.DimensionDecl{{Name: "Timestamp"}, {Name: "City"}},
		Cards:      []core.CardDecl{{Name: "Rowcount"}},
	}

	set, err := NewRuleSet(child, base)
	require.NoError(t, err)

	require.Len(t, set.Rules(), 2)
	assert.Equal(t, "Base", set.Rules()[0].Name)
	assert.Equal(t, core.TagGenericTable, set.Rules()[0].TableType)

	flat, ok := set.Get("Child")
	require.True(t, ok)
	assert.Equal(t, "Base title", flat.Title)
	assert.Equal(t, core.TypeTag("entity/UserTable"), flat.TableType)
	require.Len(t, flat.Dimensions, 3)
	assert.Equal(t, []string{"Timestamp", "Timestamp", "City"},
		[]string{flat.Dimensions[0].Name, flat.Dimensions[1].Name, flat.Dimensions[2].Name})
	assert.Len(t, flat.Cards, 2)

	// The input rule is left untouched.
	assert.Len(t, child.Dimensions, 2)
}

func TestNewRuleSet_Errors(t *testing.T) {
	_, err := NewRuleSet(
		&core.Rule{Name: "A", Extends: "B"},
		&core.Rule{Name: "B", Extends: "A"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extends cycle")

	_, err = NewRuleSet(&core.Rule{Name: "A", Extends: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "Missing"`)

	_, err = NewRuleSet(&core.Rule{Name: "A"}, &core.Rule{Name: "A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule")
}

func TestSelect(t *testing.T) {
	h := hierarchy.Default()
	set, err := NewRuleSet(
		&core.Rule{Name: "GenericTable", TableType: core.TagGenericTable},
		&core.Rule{Name: "UserTable", TableType: "entity/UserTable"},
		&core.Rule{Name: "UserTableAlt", TableType: "entity/UserTable"},
		&core.Rule{Name: "TransactionTable", TableType: "entity/TransactionTable"},
	)
	require.NoError(t, err)

	tests := []struct {
		name   string
		entity core.TypeTag
		want   string
	}{
		{"exact type", "entity/TransactionTable", "TransactionTable"},
		{"ancestor rule", "entity/CompanyTable", "UserTable"},
		{"default entity type", "", "GenericTable"},
		{"unknown entity type with generic fallback", "entity/ProductTable", "GenericTable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 3 {
				rule, err := set.Select(h, &core.Table{ID: 1, EntityType: tt.entity})
				require.NoError(t, err)
				assert.Equal(t, tt.want, rule.Name)
			}
		})
	}
}

func TestSelect_NoApplicableRule(t *testing.T) {
	h := hierarchy.Default()
	set, err := NewRuleSet(&core.Rule{Name: "UserTable", TableType: "entity/UserTable"})
	require.NoError(t, err)

	_, err = set.Select(h, &core.Table{ID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoApplicableRule)

	var nar *core.NoApplicableRuleError
	require.ErrorAs(t, err, &nar)
	assert.Equal(t, int64(7), nar.TableID)
	assert.Equal(t, core.TagGenericTable, nar.EntityType)
}

func TestLoader_LoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"rules/Base.yaml":        {Data: []byte("title: Base\nmetrics:\n  - Count: {metric: [count], score: 100}\n")},
		"rules/nested/Users.yml": {Data: []byte("table_type: UserTable\nextends: Base\n")},
		"rules/README.md":        {Data: []byte("not a rule")},
	}

	l := &Loader{Types: hierarchy.Default(), Logger: testutil.NewTestLogger(t)}
	set, err := l.LoadFS(fsys, "rules")
	require.NoError(t, err)

	require.Len(t, set.Rules(), 2)
	users, ok := set.Get("Users")
	require.True(t, ok)
	assert.Equal(t, "Base", users.Title)
	assert.Len(t, users.Metrics, 1)
}

func TestLoader_LoadError(t *testing.T) {
	fsys := fstest.MapFS{"rules/Bad.yaml": {Data: []byte("bogus: true\n")}}

	l := &Loader{Types: hierarchy.Default()}
	_, err := l.LoadFS(fsys, "rules")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "rules/Bad.yaml", loadErr.Path)
}

func TestDefaults(t *testing.T) {
	h := hierarchy.Default()
	set, err := Defaults(h)
	require.NoError(t, err)

	names := make([]string, 0, len(set.Rules()))
	for _, r := range set.Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"GenericTable", "TransactionTable", "UserTable"}, names)

	rule, err := set.Select(h, &core.Table{EntityType: "entity/TransactionTable"})
	require.NoError(t, err)
	assert.Equal(t, "TransactionTable", rule.Name)

	// Inherited declarations come first.
	assert.Equal(t, "Timestamp", rule.Dimensions[0].Name)
	assert.Equal(t, "Rowcount", rule.Cards[0].Name)
}
