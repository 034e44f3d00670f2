package core

// RefMode selects the representation produced when referencing a schema object.
type RefMode int

// Reference modes.
const (
	// RefMBQL yields a structured reference expression.
	RefMBQL RefMode = iota
	// RefString yields a human-readable display name.
	RefString
	// RefNative yields a raw identifier usable in a native query.
	RefNative
)

// String returns the mode name.
func (m RefMode) String() string {
	switch m {
	case RefMBQL:
		return "mbql"
	case RefString:
		return "string"
	case RefNative:
		return "native"
	default:
		return "unknown"
	}
}

// TableIndex looks up tables by id.
type TableIndex interface {
	TableByID(id int64) (*Table, bool)
}

// ReferenceTarget is implemented by schema objects that can be referenced
// from a query or a template.
type ReferenceTarget interface {
	Reference(mode RefMode, tables TableIndex) any
}

// Reference implements ReferenceTarget.
//
// In RefMBQL mode a field reached through a link becomes ["fk->", link, id];
// a foreign key itself becomes ["fk->", id, target]; anything else is
// ["field-id", id]. RefNative yields "table.column".
func (f *Field) Reference(mode RefMode, tables TableIndex) any {
	switch mode {
	case RefMBQL:
		switch {
		case f.Link != 0:
			return &FKRef{FKFieldID: f.Link, FieldID: f.ID}
		case f.FKTargetFieldID != 0:
			return &FKRef{FKFieldID: f.ID, FieldID: f.FKTargetFieldID}
		default:
			return &FieldRef{FieldID: f.ID}
		}
	case RefString:
		return f.Label()
	case RefNative:
		if tables != nil {
			if t, ok := tables.TableByID(f.TableID); ok {
				return t.Name + "." + f.Name
			}
		}
		return f.Name
	}
	return f
}

// Reference implements ReferenceTarget.
func (t *Table) Reference(mode RefMode, _ TableIndex) any {
	switch mode {
	case RefMBQL:
		return &TableRef{TableID: t.ID}
	case RefString:
		return t.Label()
	case RefNative:
		return t.Name
	}
	return t
}

// Resolve converts v to its representation in the given mode. Values that
// are not reference targets (literals) pass through unchanged.
func Resolve(mode RefMode, v any, tables TableIndex) any {
	if target, ok := v.(ReferenceTarget); ok {
		return target.Reference(mode, tables)
	}
	return v
}
