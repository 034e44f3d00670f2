package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/autodash/pkg/core"
)

func TestMemory_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTable(&core.Table{ID: 1, Name: "orders", DBID: 1})
	m.AddTable(&core.Table{ID: 2, Name: "customers", DBID: 1})
	m.AddTable(&core.Table{ID: 3, Name: "elsewhere", DBID: 2})
	m.AddField(&core.Field{ID: 20, Name: "id", TableID: 2})
	m.AddField(&core.Field{ID: 11, Name: "customer_id", TableID: 1, FKTargetFieldID: 20})
	m.AddField(&core.Field{ID: 10, Name: "id", TableID: 1})
	m.AddField(&core.Field{ID: 30, Name: "customer_id", TableID: 3, FKTargetFieldID: 20})

	fks, err := m.GetForeignKeys(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.ForeignKey{{FieldID: 11, SourceTableID: 1, TargetTableID: 2}}, fks)

	fields, err := m.GetFields(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, int64(10), fields[0].ID)
	assert.Equal(t, int64(11), fields[1].ID)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetTable(ctx, 9)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = m.GetField(ctx, 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
