package candidate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/autodash/internal/binding"
	"github.com/leapstack-labs/autodash/internal/catalog"
	"github.com/leapstack-labs/autodash/internal/hierarchy"
	"github.com/leapstack-labs/autodash/internal/schemagraph"
	"github.com/leapstack-labs/autodash/internal/testutil"
	"github.com/leapstack-labs/autodash/pkg/core"
)

type permissionFunc func(*core.QuerySpec) (bool, error)

func (f permissionFunc) HasWritePermission(_ context.Context, q *core.QuerySpec) (bool, error) {
	return f(q)
}

func ordersRule() *core.Rule {
	return &core.Rule{
		Name:      "TransactionTable",
		TableType: "entity/TransactionTable",
		Dimensions: []core.DimensionDecl{
			{Name: "Customer", Def: core.DimensionDef{
				FieldType: core.FieldType{TableSpec: core.TagGenericTable, FieldSpec: core.TagFK},
				LinksTo:   "entity/UserTable",
				Score:     100,
			}},
			{Name: "Timestamp", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "type/DateTime"}, Score: 80}},
			{Name: "Name", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "entity/UserTable", FieldSpec: "type/Name"}, Score: 60}},
			{Name: "Quantity", Def: core.DimensionDef{FieldType: core.FieldType{TableSpec: "type/Quantity"}, Score: 50}},
		},
		Metrics: []core.MetricDecl{
			{Name: "Count", Def: core.MetricDef{Metric: &core.Call{Op: "count"}, Score: 100}},
		},
	}
}

func newContext(t *testing.T, cat *catalog.Memory, rule *core.Rule) *binding.Context {
	t.Helper()
	g, err := schemagraph.Build(context.Background(), cat, testutil.OrdersTableID, nil)
	require.NoError(t, err)
	return binding.NewContext(g, hierarchy.Default(), rule, nil)
}

func objectIDs(objs []core.Object) []int64 {
	out := make([]int64, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.ObjectID())
	}
	return out
}

func TestGenerate_OrdersByCustomer(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())
	gen := New(Config{Context: ctx, Logger: testutil.NewTestLogger(t)})

	cands, err := gen.Generate(context.Background(), "OrdersByCustomer", core.CardTemplate{
		Title:      "Orders per [[Customer]]",
		Dimensions: []string{"Customer"},
		Metrics:    []string{"Count"},
		Score:      90,
	})
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "OrdersByCustomer", c.Name)
	assert.Equal(t, "Orders per Customer ID", c.Title)
	assert.Equal(t, 90.0, c.Score)
	assert.Equal(t, testutil.OrdersTableID, c.Query.Query.SourceTable)
	assert.Equal(t, []core.Expr{&core.FKRef{FKFieldID: testutil.OrdersCustomerIDField, FieldID: testutil.CustomersIDField}}, c.Query.Query.Breakout)
	assert.Equal(t, []core.Expr{&core.Call{Op: "count", Args: []core.Expr{}}}, c.Query.Query.Aggregation)
}

func TestGenerate_UnmatchedDimensionYieldsNothing(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())
	gen := New(Config{Context: ctx})

	cands, err := gen.Generate(context.Background(), "ByQuantity", core.CardTemplate{
		Dimensions: []string{"Quantity"},
		Metrics:    []string{"Count"},
		Score:      50,
	})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestGenerate_UnknownMetricYieldsNothing(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())
	gen := New(Config{Context: ctx})

	cands, err := gen.Generate(context.Background(), "Broken", core.CardTemplate{Metrics: []string{"Nope"}})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestGenerate_Permissions(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())
	card := core.CardTemplate{Dimensions: []string{"Timestamp"}, Metrics: []string{"Count"}, Score: 50}

	denied := New(Config{Context: ctx, Permissions: permissionFunc(func(*core.QuerySpec) (bool, error) { return false, nil })})
	cands, err := denied.Generate(context.Background(), "ByTime", card)
	require.NoError(t, err)
	assert.Empty(t, cands)

	boom := errors.New("permission store unavailable")
	failing := New(Config{Context: ctx, Permissions: permissionFunc(func(*core.QuerySpec) (bool, error) { return false, boom })})
	_, err = failing.Generate(context.Background(), "ByTime", card)
	assert.ErrorIs(t, err, boom)
}

func twoLinkCatalog() *catalog.Memory {
	cat := testutil.OrdersCatalog()
	cat.AddField(&core.Field{ID: 14, Name: "shipped_to", BaseType: "type/Integer", SpecialType: core.TagFK,
		TableID: testutil.OrdersTableID, FKTargetFieldID: testutil.CustomersIDField})
	return cat
}

func TestMatchSets(t *testing.T) {
	ctx := newContext(t, twoLinkCatalog(), ordersRule())

	// Name is reached through two foreign keys. Alone, the card touches one
	// table and the linked variants are dropped.
	sets := MatchSets(ctx, []string{"Name"})
	require.Len(t, sets, 1)
	assert.Empty(t, sets[0])

	// Together with a root field both join paths lead to a touched table.
	sets = MatchSets(ctx, []string{"Timestamp", "Name"})
	require.Len(t, sets, 2)
	assert.Equal(t, []int64{testutil.OrdersCreatedAtField}, objectIDs(sets[0]))
	assert.Equal(t, []int64{testutil.CustomersNameField, testutil.CustomersNameField}, objectIDs(sets[1]))

	// Unknown identifiers fall back to tables of the inferred type.
	sets = MatchSets(ctx, []string{"UserTable"})
	assert.Equal(t, []int64{testutil.CustomersTableID}, objectIDs(sets[0]))
}

func TestGenerate_CartesianProductAndCap(t *testing.T) {
	ctx := newContext(t, twoLinkCatalog(), ordersRule())
	card := core.CardTemplate{Dimensions: []string{"Timestamp", "Name"}, Metrics: []string{"Count"}, Score: 60}

	all, err := New(Config{Context: ctx}).Generate(context.Background(), "NameOverTime", card)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, &core.FKRef{FKFieldID: testutil.OrdersCustomerIDField, FieldID: testutil.CustomersNameField}, all[0].Query.Query.Breakout[1])
	assert.Equal(t, &core.FKRef{FKFieldID: 14, FieldID: testutil.CustomersNameField}, all[1].Query.Query.Breakout[1])

	capped, err := New(Config{Context: ctx, MaxCandidates: 1}).Generate(context.Background(), "NameOverTime", card)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, all[0].Query, capped[0].Query)
}

func TestGenerate_Native(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())
	gen := New(Config{Context: ctx})

	cands, err := gen.Generate(context.Background(), "Raw", core.CardTemplate{
		Title: "Raw [[Timestamp]]",
		Query: "SELECT [[Timestamp]], count(*) FROM [[TransactionTable]] GROUP BY 1",
		Score: 35,
	})
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, 35.0, cands[0].Score)
	assert.Equal(t, core.QueryTypeNative, cands[0].Query.Type)
	assert.Equal(t, "SELECT orders.created_at, count(*) FROM orders GROUP BY 1", cands[0].Query.Native.Query)
	assert.Equal(t, "Raw Created At", cands[0].Title)
}

func TestProduct(t *testing.T) {
	a := []core.Object{&core.Field{ID: 1}, &core.Field{ID: 2}}
	b := []core.Object{&core.Field{ID: 3}, &core.Field{ID: 4}, &core.Field{ID: 5}}

	var tuples [][]int64
	err := Product([][]core.Object{a, b}, func(tuple []core.Object) (bool, error) {
		tuples = append(tuples, objectIDs(tuple))
		return true, nil
	})
	require.NoError(t, err)
	assert.Len(t, tuples, len(a)*len(b))
	assert.Equal(t, []int64{1, 3}, tuples[0])
	assert.Equal(t, []int64{1, 4}, tuples[1])
	assert.Equal(t, []int64{2, 5}, tuples[5])

	calls := 0
	require.NoError(t, Product([][]core.Object{a, {}}, func([]core.Object) (bool, error) { calls++; return true, nil }))
	assert.Zero(t, calls)

	require.NoError(t, Product(nil, func(tuple []core.Object) (bool, error) {
		calls++
		assert.Empty(t, tuple)
		return true, nil
	}))
	assert.Equal(t, 1, calls)
}

func TestScore(t *testing.T) {
	ctx := newContext(t, testutil.OrdersCatalog(), ordersRule())

	tests := []struct {
		name    string
		card    core.CardTemplate
		metrics []core.MetricDef
		filters []core.FilterDef
		want    float64
	}{
		{"nothing scored", core.CardTemplate{Score: 80}, nil, nil, 80},
		{"dimension only", core.CardTemplate{Score: 80, Dimensions: []string{"Timestamp"}}, nil, nil, 64},
		{
			name:    "mean of dimension and metric",
			card:    core.CardTemplate{Score: 100, Dimensions: []string{"Customer"}},
			metrics: []core.MetricDef{{Score: 50}},
			want:    75,
		},
		{
			name:    "zero score lowers the mean",
			card:    core.CardTemplate{Score: 80, Dimensions: []string{"Timestamp"}},
			filters: []core.FilterDef{{Score: 0}},
			want:    32,
		},
		{
			name:    "all zero",
			card:    core.CardTemplate{Score: 80},
			metrics: []core.MetricDef{{Score: 0}},
			want:    0,
		},
		{
			name:    "native keeps declared score",
			card:    core.CardTemplate{Score: 42, Query: "SELECT 1", Dimensions: []string{"Timestamp"}},
			filters: []core.FilterDef{{Score: 10}},
			want:    42,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(ctx, tt.card, tt.metrics, tt.filters), 1e-9)
		})
	}
}
