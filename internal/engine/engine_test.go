package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/autodash/internal/hierarchy"
	"github.com/leapstack-labs/autodash/internal/permission"
	"github.com/leapstack-labs/autodash/internal/rules"
	"github.com/leapstack-labs/autodash/internal/testutil"
	"github.com/leapstack-labs/autodash/pkg/core"
)

type memorySink struct {
	mu         sync.Mutex
	dashboards []*core.Dashboard
}

func (s *memorySink) CreateDashboard(_ context.Context, d *core.Dashboard) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboards = append(s.dashboards, d)
	return "dash-1", nil
}

func ordersRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	set, err := rules.NewRuleSet(&core.Rule{
		Name:        "TransactionTable",
		TableType:   "entity/TransactionTable",
		Title:       "Distribution of [[GenericCategoryMedium]]",
		Description: "Who buys: [[UserTable]]",
		Dimensions: []core.DimensionDecl{
			{Name: "Customer", Def: core.DimensionDef{
				FieldType: core.FieldType{TableSpec: core.TagGenericTable, FieldSpec: core.TagFK},
				LinksTo:   "entity/UserTable",
				Score:     100,
			}},
			{Name: "CreatedAt", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "type/DateTime"}, Score: 100}},
			{Name: "Region", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "type/State"}, Score: 100}},
		},
		Metrics: []core.MetricDecl{
			{Name: "Count", Def: core.MetricDef{Metric: &core.Call{Op: "count"}, Score: 100}},
		},
		Cards: []core.CardDecl{
			{Name: "OrdersByCustomer", Card: core.CardTemplate{
				Title:      "Orders per [[Customer]]",
				Dimensions: []string{"Customer"},
				Metrics:    []string{"Count"},
				Score:      80,
			}},
			{Name: "OrdersByRegion", Card: core.CardTemplate{
				Dimensions: []string{"Region"},
				Metrics:    []string{"Count"},
				Score:      90,
			}},
		},
	})
	require.NoError(t, err)
	return set
}

func newEngine(t *testing.T, set *rules.RuleSet, sink core.DashboardSink) *Engine {
	t.Helper()
	e, err := New(Config{
		Types:       hierarchy.Default(),
		Rules:       set,
		Provider:    testutil.OrdersCatalog(),
		Permissions: permission.AllowAll,
		Sink:        sink,
		Logger:      testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return e
}

func TestGenerate_OrdersScenario(t *testing.T) {
	e := newEngine(t, ordersRuleSet(t), nil)

	d, err := e.Generate(context.Background(), testutil.OrdersTableID)
	require.NoError(t, err)

	assert.Equal(t, "TransactionTable", d.Rule)
	assert.Equal(t, "Distribution of GenericCategoryMedium", d.Title)
	assert.Equal(t, "Who buys: Customers", d.Description)

	// Region has no match, so only one card survives.
	require.Len(t, d.Cards, 1)
	card := d.Cards[0]
	assert.Equal(t, "OrdersByCustomer", card.Name)
	assert.Equal(t, "Orders per Customer ID", card.Title)
	assert.Equal(t, 80.0, card.Score)

	out, err := json.Marshal(card.Query)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "query",
		"database": 1,
		"query": {
			"source_table": 1,
			"breakout": [["fk->", 11, 20]],
			"aggregation": [["count"]]
		}
	}`, string(out))
}

func TestGenerate_DuplicateCardKeepsBestGroup(t *testing.T) {
	parent := &core.Rule{
		Name: "Base",
		Dimensions: []core.DimensionDecl{
			{Name: "CreatedAt", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "type/DateTime"}, Score: 50}},
		},
		Metrics: []core.MetricDecl{{Name: "Count", Def: core.MetricDef{Metric: &core.Call{Op: "count"}, Score: 50}}},
		Cards: []core.CardDecl{
			{Name: "Rowcount", Card: core.CardTemplate{Title: "low", Metrics: []string{"Count"}, Score: 40}},
			{Name: "OverTime", Card: core.CardTemplate{Dimensions: []string{"CreatedAt"}, Metrics: []string{"Count"}, Score: 100}},
		},
	}
	child := &core.Rule{
		Name:      "Orders",
		TableType: "entity/TransactionTable",
		Extends:   "Base",
		Cards: []core.CardDecl{
			{Name: "Rowcount", Card: core.CardTemplate{Title: "high", Metrics: []string{"Count"}, Score: 90}},
		},
	}
	set, err := rules.NewRuleSet(parent, child)
	require.NoError(t, err)

	d, err := newEngine(t, set, nil).Generate(context.Background(), testutil.OrdersTableID)
	require.NoError(t, err)

	require.Len(t, d.Cards, 2)
	assert.Equal(t, "Rowcount", d.Cards[0].Name)
	assert.Equal(t, "high", d.Cards[0].Title)
	assert.Equal(t, "OverTime", d.Cards[1].Name)
	assert.Equal(t, 50.0, d.Cards[1].Score)
}

func TestGenerate_NoApplicableRule(t *testing.T) {
	set, err := rules.NewRuleSet(&core.Rule{Name: "Products", TableType: "entity/ProductTable"})
	require.NoError(t, err)

	_, err = newEngine(t, set, nil).Generate(context.Background(), testutil.OrdersTableID)
	assert.ErrorIs(t, err, core.ErrNoApplicableRule)
}

func TestAutomagicDashboard(t *testing.T) {
	sink := &memorySink{}
	e := newEngine(t, ordersRuleSet(t), sink)

	id, err := e.AutomagicDashboard(context.Background(), testutil.OrdersTableID)
	require.NoError(t, err)
	assert.Equal(t, "dash-1", id)
	require.Len(t, sink.dashboards, 1)
	assert.Len(t, sink.dashboards[0].Cards, 1)
}

func TestAutomagicDashboard_NoCandidates(t *testing.T) {
	set, err := rules.NewRuleSet(&core.Rule{
		Name: "Empty",
		Metrics: []core.MetricDecl{
			{Name: "Total", Def: core.MetricDef{Metric: &core.Call{Op: "sum", Args: []core.Expr{&core.DimensionRef{Name: "Missing"}}}}},
		},
		Cards: []core.CardDecl{{Name: "Total", Card: core.CardTemplate{Metrics: []string{"Total"}, Score: 10}}},
	})
	require.NoError(t, err)

	sink := &memorySink{}
	id, err := newEngine(t, set, sink).AutomagicDashboard(context.Background(), testutil.OrdersTableID)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, sink.dashboards)
}

func TestGenerateAll(t *testing.T) {
	set, err := rules.Defaults(hierarchy.Default())
	require.NoError(t, err)
	e := newEngine(t, set, nil)

	results := e.GenerateAll(context.Background(), []int64{testutil.OrdersTableID, 99, testutil.CustomersTableID})
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "TransactionTable", results[0].Dashboard.Rule)
	assert.NotEmpty(t, results[0].Dashboard.Cards)

	assert.Equal(t, int64(99), results[1].TableID)
	assert.ErrorIs(t, results[1].Err, core.ErrNotFound)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "UserTable", results[2].Dashboard.Rule)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestSave_RequiresSink(t *testing.T) {
	e := newEngine(t, ordersRuleSet(t), nil)

	d, err := e.Generate(context.Background(), testutil.OrdersTableID)
	require.NoError(t, err)

	_, err = e.Save(context.Background(), d)
	assert.Error(t, err)

	_, err = e.AutomagicDashboard(context.Background(), testutil.OrdersTableID)
	assert.Error(t, err)
}
