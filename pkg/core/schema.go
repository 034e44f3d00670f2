package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TypeTag names a semantic category, e.g. "type/DateTime" or "entity/UserTable".
type TypeTag string

// Well-known tags the pipeline refers to directly.
const (
	TagGenericTable TypeTag = "entity/GenericTable"
	TagPK           TypeTag = "type/PK"
	TagFK           TypeTag = "type/FK"
)

// GADimensionPrefix marks Google-Analytics style dimension names. Such fieldspecs
// are matched against field names, not against the type hierarchy.
const GADimensionPrefix = "ga:"

// IsGADimension reports whether the tag is a GA-style dimension name.
func IsGADimension(t TypeTag) bool {
	return strings.HasPrefix(string(t), GADimensionPrefix)
}

// Object is a schema object a dimension can be bound to: a *Field or a *Table.
type Object interface {
	ReferenceTarget

	// ObjectID is the id of the object in the metadata store.
	ObjectID() int64
	// OwnerTableID is the owning table id for a field, or the table's own id.
	OwnerTableID() int64
}

// Field is a column of a table as seen by the metadata store.
type Field struct {
	ID          int64
	Name        string
	DisplayName string
	BaseType    TypeTag
	// SpecialType is the semantic type; empty when unknown.
	SpecialType TypeTag
	TableID     int64
	// FKTargetFieldID is the referenced field for foreign keys; zero otherwise.
	FKTargetFieldID int64
	// Link is the foreign-key field traversed to reach this field's table from
	// the root table; zero for root-table fields.
	Link int64
}

// EffectiveType is the special type when present, else the base type.
func (f *Field) EffectiveType() TypeTag {
	if f.SpecialType != "" {
		return f.SpecialType
	}
	return f.BaseType
}

// Label returns the display name, falling back to a humanised column name.
func (f *Field) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return Humanize(f.Name)
}

// WithLink returns a copy of the field annotated with the given link.
func (f *Field) WithLink(link int64) *Field {
	cp := *f
	cp.Link = link
	return &cp
}

// ObjectID implements Object.
func (f *Field) ObjectID() int64 { return f.ID }

// OwnerTableID implements Object.
func (f *Field) OwnerTableID() int64 { return f.TableID }

// Table is a table in the metadata store, optionally annotated with the
// foreign-key fields through which it is reachable from a root table.
type Table struct {
	ID          int64
	Name        string
	DisplayName string
	// Schema is the database schema; informational only.
	Schema     string
	EntityType TypeTag
	DBID       int64
	// Links lists every foreign-key field id through which the table is
	// reachable from the root. Empty for the root unless it references itself.
	Links []int64
}

// Label returns the display name, falling back to a humanised table name.
func (t *Table) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return Humanize(t.Name)
}

// EntityTypeOrDefault returns the entity type, defaulting to the generic table tag.
func (t *Table) EntityTypeOrDefault() TypeTag {
	if t.EntityType == "" {
		return TagGenericTable
	}
	return t.EntityType
}

// ObjectID implements Object.
func (t *Table) ObjectID() int64 { return t.ID }

// OwnerTableID implements Object.
func (t *Table) OwnerTableID() int64 { return t.ID }

// ForeignKey is a foreign-key edge between two tables of one database.
type ForeignKey struct {
	FieldID       int64
	SourceTableID int64
	TargetTableID int64
}

// Humanize turns a column or table name such as "customer_id" into "Customer ID".
func Humanize(name string) string {
	caser := cases.Title(language.English)
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, w := range words {
		if strings.EqualFold(w, "id") {
			words[i] = "ID"
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
