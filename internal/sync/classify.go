package sync

import (
	"strings"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Base storage tags.
const (
	tagInteger    core.TypeTag = "type/Integer"
	tagBigInteger core.TypeTag = "type/BigInteger"
	tagFloat      core.TypeTag = "type/Float"
	tagDecimal    core.TypeTag = "type/Decimal"
	tagText       core.TypeTag = "type/Text"
	tagUUID       core.TypeTag = "type/UUID"
	tagBoolean    core.TypeTag = "type/Boolean"
	tagDateTime   core.TypeTag = "type/DateTime"
	tagDate       core.TypeTag = "type/Date"
	tagTime       core.TypeTag = "type/Time"
	tagDictionary core.TypeTag = "type/Dictionary"
	tagArray      core.TypeTag = "type/Array"
)

var baseTypes = map[string]core.TypeTag{
	"bigint": tagBigInteger, "int8": tagBigInteger, "hugeint": tagBigInteger,
	"ubigint": tagBigInteger, "bigserial": tagBigInteger,

	"integer": tagInteger, "int": tagInteger, "int4": tagInteger,
	"smallint": tagInteger, "int2": tagInteger, "tinyint": tagInteger,
	"int1": tagInteger, "serial": tagInteger, "smallserial": tagInteger,
	"utinyint": tagInteger, "usmallint": tagInteger, "uinteger": tagInteger,

	"numeric": tagDecimal, "decimal": tagDecimal, "money": tagDecimal,

	"real": tagFloat, "float": tagFloat, "float4": tagFloat,
	"float8": tagFloat, "double": tagFloat, "double precision": tagFloat,

	"boolean": tagBoolean, "bool": tagBoolean,

	"date": tagDate,
	"time": tagTime, "timetz": tagTime,
	"time without time zone": tagTime, "time with time zone": tagTime,

	"uuid": tagUUID,

	"json": tagDictionary, "jsonb": tagDictionary,
	"struct": tagDictionary, "map": tagDictionary,
}

// BaseType maps a database column type to a storage tag. Unknown types are text.
func BaseType(dataType string) core.TypeTag {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if strings.HasSuffix(t, "[]") || t == "array" || strings.HasPrefix(t, "list") {
		return tagArray
	}
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if strings.HasPrefix(t, "timestamp") || strings.HasPrefix(t, "datetime") {
		return tagDateTime
	}
	if tag, ok := baseTypes[t]; ok {
		return tag
	}
	return tagText
}

func isTemporal(base core.TypeTag) bool {
	return base == tagDateTime || base == tagDate
}

func isNumeric(base core.TypeTag) bool {
	switch base {
	case tagInteger, tagBigInteger, tagFloat, tagDecimal:
		return true
	}
	return false
}

func isText(base core.TypeTag) bool {
	return base == tagText
}

// specialRule assigns tag to columns named one of names whose base type
// satisfies accepts.
type specialRule struct {
	names   []string
	tag     core.TypeTag
	accepts func(core.TypeTag) bool
}

var specialRules = []specialRule{
	{[]string{"created_at", "created", "created_on", "creation_date", "create_time", "timestamp"}, "type/CreationTimestamp", isTemporal},
	{[]string{"updated_at", "modified_at", "updated", "last_modified"}, "type/UpdatedTimestamp", isTemporal},
	{[]string{"joined_at", "signup_date", "signed_up_at", "registered_at"}, "type/JoinTimestamp", isTemporal},
	{[]string{"canceled_at", "cancelled_at"}, "type/CancelationTimestamp", isTemporal},
	{[]string{"birth_date", "birthdate", "birthday", "dob"}, "type/Birthdate", isTemporal},

	{[]string{"email", "email_address"}, "type/Email", isText},
	{[]string{"name", "full_name", "first_name", "last_name", "username", "user_name"}, "type/Name", isText},
	{[]string{"title"}, "type/Title", isText},
	{[]string{"description"}, "type/Description", isText},
	{[]string{"comment", "comments", "note", "notes"}, "type/Comment", isText},
	{[]string{"url", "website", "link"}, "type/URL", isText},
	{[]string{"company", "company_name", "organization"}, "type/Company", isText},
	{[]string{"product", "product_name"}, "type/Product", isText},
	{[]string{"source", "utm_source", "referrer", "channel"}, "type/Source", isText},
	{[]string{"city"}, "type/City", isText},
	{[]string{"state", "province", "region"}, "type/State", isText},
	{[]string{"country", "country_code"}, "type/Country", isText},
	{[]string{"zip", "zip_code", "zipcode", "postal_code"}, "type/ZipCode", func(core.TypeTag) bool { return true }},
	{[]string{"category", "type", "status", "kind", "segment", "plan"}, "type/Category", isText},

	{[]string{"latitude", "lat"}, "type/Latitude", isNumeric},
	{[]string{"longitude", "lng", "lon", "long"}, "type/Longitude", isNumeric},
	{[]string{"price", "unit_price", "list_price"}, "type/Price", isNumeric},
	{[]string{"total", "amount", "revenue", "income", "subtotal", "grand_total"}, "type/Income", isNumeric},
	{[]string{"discount"}, "type/Discount", isNumeric},
	{[]string{"cost", "unit_cost"}, "type/Cost", isNumeric},
	{[]string{"quantity", "qty"}, "type/Quantity", isNumeric},
	{[]string{"score", "rating"}, "type/Score", isNumeric},
	{[]string{"duration", "duration_seconds", "seconds"}, "type/Duration", isNumeric},
}

var specialByName = func() map[string][]specialRule {
	m := make(map[string][]specialRule)
	for _, r := range specialRules {
		for _, n := range r.names {
			m[n] = append(m[n], r)
		}
	}
	return m
}()

// SpecialType classifies a column. Keys take precedence over name-based
// rules; an empty tag means no semantic type was recognised.
func SpecialType(column string, base core.TypeTag, primaryKey, foreignKey bool) core.TypeTag {
	switch {
	case primaryKey:
		return core.TagPK
	case foreignKey:
		return core.TagFK
	}

	name := strings.ToLower(column)
	for _, r := range specialByName[name] {
		if r.accepts(base) {
			return r.tag
		}
	}
	return ""
}

var entityTypes = map[string]core.TypeTag{
	"user": "entity/UserTable", "customer": "entity/UserTable", "person": "entity/UserTable",
	"people": "entity/UserTable", "account": "entity/UserTable", "member": "entity/UserTable",

	"order": "entity/TransactionTable", "transaction": "entity/TransactionTable",
	"invoice": "entity/TransactionTable", "payment": "entity/TransactionTable",
	"sale": "entity/TransactionTable", "purchase": "entity/TransactionTable",

	"product": "entity/ProductTable", "item": "entity/ProductTable", "sku": "entity/ProductTable",

	"company": "entity/CompanyTable", "companies": "entity/CompanyTable",
	"organization": "entity/CompanyTable",

	"subscription": "entity/SubscriptionTable",

	"event": "entity/EventTable", "pageview": "entity/EventTable", "session": "entity/EventTable",
}

// EntityType infers a table entity type from its name, ignoring a
// conventional prefix (dim_, fct_, stg_) and a plural "s".
func EntityType(table string) core.TypeTag {
	name := strings.ToLower(table)
	for _, prefix := range []string{"dim_", "fct_", "fact_", "stg_"} {
		name = strings.TrimPrefix(name, prefix)
	}
	if tag, ok := entityTypes[name]; ok {
		return tag
	}
	if tag, ok := entityTypes[strings.TrimSuffix(name, "s")]; ok {
		return tag
	}
	return core.TagGenericTable
}
