package core

// MaxScore is the upper bound of every declared score. Card scores are
// normalised against it so candidates from different rules compare fairly.
const MaxScore = 100.0

// Rule describes, for one table entity type, which dimensions, metrics,
// filters and cards make a useful dashboard.
//
// Declarations are kept as ordered lists because one identifier may be
// declared several times (overloads, or layers inherited through Extends).
type Rule struct {
	// Name identifies the rule within a RuleSet (the file name without extension).
	Name        string
	TableType   TypeTag
	Title       string
	Description string
	// Extends names a parent rule whose declarations precede this rule's.
	Extends    string
	Dimensions []DimensionDecl
	Metrics    []MetricDecl
	Filters    []FilterDecl
	Cards      []CardDecl
}

// FieldType is the [tablespec, fieldspec?] pair of a dimension definition.
// An empty FieldSpec means the dimension is scoped to the root table.
type FieldType struct {
	TableSpec TypeTag
	FieldSpec TypeTag
}

// HasFieldSpec reports whether a fieldspec was given.
func (ft FieldType) HasFieldSpec() bool { return ft.FieldSpec != "" }

// DimensionDef is an abstract "column playing this role".
type DimensionDef struct {
	FieldType FieldType
	Score     float64
	// LinksTo restricts matches to foreign keys leading to tables of this type.
	LinksTo TypeTag
}

// DimensionDecl is a named dimension declaration.
type DimensionDecl struct {
	Name string
	Def  DimensionDef
}

// MetricDef is one overload of a metric.
type MetricDef struct {
	Metric Expr
	Score  float64
}

// MetricDecl is a named metric declaration.
type MetricDecl struct {
	Name string
	Def  MetricDef
}

// FilterDef is one overload of a filter.
type FilterDef struct {
	Filter Expr
	Score  float64
}

// FilterDecl is a named filter declaration.
type FilterDecl struct {
	Name string
	Def  FilterDef
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// OrderSpec orders a card by a dimension or metric identifier.
type OrderSpec struct {
	Identifier string
	Direction  Direction
}

// CardTemplate is a parameterised card, referencing rule identifiers.
type CardTemplate struct {
	Title       string
	Description string
	Dimensions  []string
	Metrics     []string
	Filters     []string
	OrderBy     []OrderSpec
	Limit       int
	Score       float64
	// Query is a raw templated query; when set the card is native.
	Query string
}

// CardDecl is a named card declaration.
type CardDecl struct {
	Name string
	Card CardTemplate
}
