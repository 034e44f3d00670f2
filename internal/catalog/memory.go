// Package catalog provides an in-memory schema metadata provider.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Memory is a core.MetadataProvider backed by maps. It is safe for
// concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tables map[int64]*core.Table
	fields map[int64]*core.Field
}

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[int64]*core.Table),
		fields: make(map[int64]*core.Field),
	}
}

// AddTable stores or replaces a table.
func (m *Memory) AddTable(t *core.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.ID] = t
}

// AddField stores or replaces a field.
func (m *Memory) AddField(f *core.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[f.ID] = f
}

// GetTable implements core.MetadataProvider.
func (m *Memory) GetTable(_ context.Context, id int64) (*core.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("table %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// GetField implements core.MetadataProvider.
func (m *Memory) GetField(_ context.Context, id int64) (*core.Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[id]
	if !ok {
		return nil, fmt.Errorf("field %d: %w", id, core.ErrNotFound)
	}
	return f, nil
}

// GetFields implements core.MetadataProvider. Fields are ordered by id.
func (m *Memory) GetFields(_ context.Context, tableID int64) ([]*core.Field, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.Field
	for _, f := range m.fields {
		if f.TableID == tableID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetForeignKeys implements core.MetadataProvider. Edges are derived from
// fields with a target field and ordered by field id.
func (m *Memory) GetForeignKeys(_ context.Context, dbID int64) ([]core.ForeignKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.ForeignKey
	for _, f := range m.fields {
		if f.FKTargetFieldID == 0 {
			continue
		}
		src, ok := m.tables[f.TableID]
		if !ok || src.DBID != dbID {
			continue
		}
		target, ok := m.fields[f.FKTargetFieldID]
		if !ok {
			continue
		}
		out = append(out, core.ForeignKey{
			FieldID:       f.ID,
			SourceTableID: f.TableID,
			TargetTableID: target.TableID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldID < out[j].FieldID })
	return out, nil
}

// Tables returns every table ordered by id.
func (m *Memory) Tables() []*core.Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
