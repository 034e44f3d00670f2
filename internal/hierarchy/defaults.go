package hierarchy

import "github.com/leapstack-labs/autodash/pkg/core"

// defaultEdges is the built-in semantic type tree: tag -> direct parents.
// Address parts are both addresses and categories, which gives the
// hierarchy its diamonds.
var defaultEdges = []struct {
	tag     core.TypeTag
	parents []core.TypeTag
}{
	// Storage types.
	{"type/Number", []core.TypeTag{"type/*"}},
	{"type/Integer", []core.TypeTag{"type/Number"}},
	{"type/BigInteger", []core.TypeTag{"type/Integer"}},
	{"type/Float", []core.TypeTag{"type/Number"}},
	{"type/Decimal", []core.TypeTag{"type/Float"}},
	{"type/Text", []core.TypeTag{"type/*"}},
	{"type/UUID", []core.TypeTag{"type/Text"}},
	{"type/Boolean", []core.TypeTag{"type/*"}},
	{"type/DateTime", []core.TypeTag{"type/*"}},
	{"type/Date", []core.TypeTag{"type/DateTime"}},
	{"type/Time", []core.TypeTag{"type/DateTime"}},
	{"type/Collection", []core.TypeTag{"type/*"}},
	{"type/Dictionary", []core.TypeTag{"type/Collection"}},
	{"type/Array", []core.TypeTag{"type/Collection"}},

	// Semantic types.
	{"type/Special", []core.TypeTag{"type/*"}},
	{"type/PK", []core.TypeTag{"type/Special"}},
	{"type/FK", []core.TypeTag{"type/Special"}},
	{"type/Category", []core.TypeTag{"type/Special"}},
	{"type/Name", []core.TypeTag{"type/Category", "type/Text"}},
	{"type/Title", []core.TypeTag{"type/Category", "type/Text"}},
	{"type/Description", []core.TypeTag{"type/Text"}},
	{"type/Comment", []core.TypeTag{"type/Text"}},
	{"type/Email", []core.TypeTag{"type/Text"}},
	{"type/URL", []core.TypeTag{"type/Text"}},
	{"type/Source", []core.TypeTag{"type/Category"}},
	{"type/Enum", []core.TypeTag{"type/Category"}},
	{"type/Company", []core.TypeTag{"type/Category", "type/Text"}},
	{"type/Product", []core.TypeTag{"type/Category", "type/Text"}},

	{"type/Address", []core.TypeTag{"type/Special"}},
	{"type/City", []core.TypeTag{"type/Address", "type/Category"}},
	{"type/State", []core.TypeTag{"type/Address", "type/Category"}},
	{"type/Country", []core.TypeTag{"type/Address", "type/Category"}},
	{"type/ZipCode", []core.TypeTag{"type/Address"}},
	{"type/Coordinate", []core.TypeTag{"type/Address", "type/Float"}},
	{"type/Latitude", []core.TypeTag{"type/Coordinate"}},
	{"type/Longitude", []core.TypeTag{"type/Coordinate"}},

	{"type/Money", []core.TypeTag{"type/Number"}},
	{"type/Income", []core.TypeTag{"type/Money"}},
	{"type/Price", []core.TypeTag{"type/Money"}},
	{"type/Discount", []core.TypeTag{"type/Money"}},
	{"type/Cost", []core.TypeTag{"type/Money"}},
	{"type/Quantity", []core.TypeTag{"type/Integer"}},
	{"type/Score", []core.TypeTag{"type/Number"}},
	{"type/Percentage", []core.TypeTag{"type/Number"}},
	{"type/Duration", []core.TypeTag{"type/Number"}},

	{"type/CreationTimestamp", []core.TypeTag{"type/DateTime"}},
	{"type/UpdatedTimestamp", []core.TypeTag{"type/DateTime"}},
	{"type/JoinTimestamp", []core.TypeTag{"type/CreationTimestamp"}},
	{"type/CancelationTimestamp", []core.TypeTag{"type/DateTime"}},
	{"type/Birthdate", []core.TypeTag{"type/Date"}},

	// Table entity types.
	{"entity/GenericTable", []core.TypeTag{"entity/*"}},
	{"entity/UserTable", []core.TypeTag{"entity/GenericTable"}},
	{"entity/CompanyTable", []core.TypeTag{"entity/UserTable"}},
	{"entity/TransactionTable", []core.TypeTag{"entity/GenericTable"}},
	{"entity/ProductTable", []core.TypeTag{"entity/GenericTable"}},
	{"entity/SubscriptionTable", []core.TypeTag{"entity/GenericTable"}},
	{"entity/EventTable", []core.TypeTag{"entity/GenericTable"}},
	{"entity/GoogleAnalyticsTable", []core.TypeTag{"entity/GenericTable"}},
}

// Default returns a new hierarchy populated with the built-in tags.
func Default() *Hierarchy {
	h := New()
	for _, e := range defaultEdges {
		if err := h.Derive(e.tag, e.parents...); err != nil {
			// The table above is static; a failure is a programming error.
			panic(err)
		}
	}
	return h
}
