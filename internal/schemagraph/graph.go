// Package schemagraph discovers the tables reachable from a root table through
// foreign keys and annotates each with the foreign-key fields used to reach it.
//
// Reachability is one hop in either direction: a table is part of the graph
// when one of its foreign keys points at the root, or when a root foreign key
// points at it. Tables further away are not discovered.
package schemagraph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Graph is the table universe of one root table.
type Graph struct {
	Root       *core.Table
	DatabaseID int64

	tables []*core.Table
	byID   map[int64]*core.Table
	fields map[int64][]*core.Field
	links  map[int64]core.ForeignKey // link field id -> edge
}

// Build fetches the root table, every foreign key of its database, and the
// fields of each reachable table.
func Build(ctx context.Context, provider core.MetadataProvider, rootID int64, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, err := provider.GetTable(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to get root table %d: %w", rootID, err)
	}

	fks, err := provider.GetForeignKeys(ctx, root.DBID)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys of database %d: %w", root.DBID, err)
	}

	g := &Graph{
		DatabaseID: root.DBID,
		byID:       make(map[int64]*core.Table),
		fields:     make(map[int64][]*core.Field),
		links:      make(map[int64]core.ForeignKey),
	}

	rootCopy := *root
	rootCopy.Links = nil
	g.Root = &rootCopy
	g.add(g.Root)

	// Discovery order is preserved; links are merged per table id.
	var order []int64
	linked := make(map[int64][]int64)
	record := func(tableID, fieldID int64) {
		if _, seen := linked[tableID]; !seen {
			order = append(order, tableID)
		}
		if !containsID(linked[tableID], fieldID) {
			linked[tableID] = append(linked[tableID], fieldID)
		}
	}

	for _, fk := range fks {
		touches := false
		if fk.SourceTableID == rootID {
			record(fk.TargetTableID, fk.FieldID)
			touches = true
		}
		if fk.TargetTableID == rootID {
			record(fk.SourceTableID, fk.FieldID)
			touches = true
		}
		if touches {
			g.links[fk.FieldID] = fk
		}
	}

	for _, id := range order {
		if id == rootID {
			g.Root.Links = linked[id]
			continue
		}
		t, err := provider.GetTable(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get linked table %d: %w", id, err)
		}
		tc := *t
		tc.Links = linked[id]
		g.add(&tc)
	}

	for _, t := range g.tables {
		fields, err := provider.GetFields(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get fields of table %d: %w", t.ID, err)
		}
		g.fields[t.ID] = fields
	}

	logger.Debug("built schema graph",
		slog.Int64("root", rootID),
		slog.Int("tables", len(g.tables)),
		slog.Int("links", len(g.links)))

	return g, nil
}

// New assembles a graph from already-fetched data. Tables other than root
// must carry their Links.
func New(root *core.Table, tables []*core.Table, fields map[int64][]*core.Field, fks []core.ForeignKey) *Graph {
	g := &Graph{
		Root:       root,
		DatabaseID: root.DBID,
		byID:       make(map[int64]*core.Table),
		fields:     make(map[int64][]*core.Field),
		links:      make(map[int64]core.ForeignKey),
	}
	g.add(root)
	for _, t := range tables {
		if t.ID != root.ID {
			g.add(t)
		}
	}
	for id, fs := range fields {
		g.fields[id] = fs
	}
	for _, fk := range fks {
		if fk.SourceTableID == root.ID || fk.TargetTableID == root.ID {
			g.links[fk.FieldID] = fk
		}
	}
	return g
}

func (g *Graph) add(t *core.Table) {
	g.tables = append(g.tables, t)
	g.byID[t.ID] = t
}

// Tables returns the root followed by linked tables in discovery order.
func (g *Graph) Tables() []*core.Table {
	return g.tables
}

// TableByID implements core.TableIndex.
func (g *Graph) TableByID(id int64) (*core.Table, bool) {
	t, ok := g.byID[id]
	return t, ok
}

// Fields returns the fields of a graph table.
func (g *Graph) Fields(tableID int64) []*core.Field {
	return g.fields[tableID]
}

// IsRoot reports whether the table is the root.
func (g *Graph) IsRoot(tableID int64) bool {
	return g.Root != nil && g.Root.ID == tableID
}

// LinkEdge returns the foreign key behind a link field id.
func (g *Graph) LinkEdge(link int64) (core.ForeignKey, bool) {
	fk, ok := g.links[link]
	return fk, ok
}

// LinkIDs returns every link field id, sorted.
func (g *Graph) LinkIDs() []int64 {
	ids := make([]int64, 0, len(g.links))
	for id := range g.links {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TypeChecker answers subtype queries; *hierarchy.Hierarchy satisfies it.
type TypeChecker interface {
	IsA(tag, ancestor core.TypeTag) bool
}

// TablesOfType returns the graph tables whose entity type is-a tag, in graph order.
func (g *Graph) TablesOfType(types TypeChecker, tag core.TypeTag) []*core.Table {
	var out []*core.Table
	for _, t := range g.tables {
		if types.IsA(t.EntityTypeOrDefault(), tag) {
			out = append(out, t)
		}
	}
	return out
}

// FirstTableOfType returns the first graph table whose entity type is-a tag.
func (g *Graph) FirstTableOfType(types TypeChecker, tag core.TypeTag) (*core.Table, bool) {
	for _, t := range g.tables {
		if types.IsA(t.EntityTypeOrDefault(), tag) {
			return t, true
		}
	}
	return nil, false
}
