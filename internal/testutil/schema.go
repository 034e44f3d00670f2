package testutil

import (
	"github.com/leapstack-labs/autodash/internal/catalog"
	"github.com/leapstack-labs/autodash/pkg/core"
)

// Table and field ids of the orders fixture.
const (
	OrdersTableID    int64 = 1
	CustomersTableID int64 = 2

	OrdersIDField         int64 = 10
	OrdersCustomerIDField int64 = 11
	OrdersTotalField      int64 = 12
	OrdersCreatedAtField  int64 = 13

	CustomersIDField   int64 = 20
	CustomersNameField int64 = 21
)

// OrdersCatalog returns the two-table store used across the pipeline tests:
// orders(id, customer_id, total, created_at) with customer_id referencing
// customers(id, name).
func OrdersCatalog() *catalog.Memory {
	m := catalog.NewMemory()
	m.AddTable(&core.Table{ID: OrdersTableID, Name: "orders", EntityType: "entity/TransactionTable", DBID: 1})
	m.AddTable(&core.Table{ID: CustomersTableID, Name: "customers", EntityType: "entity/UserTable", DBID: 1})

	m.AddField(&core.Field{ID: OrdersIDField, Name: "id", BaseType: "type/Integer", SpecialType: core.TagPK, TableID: OrdersTableID})
	m.AddField(&core.Field{ID: OrdersCustomerIDField, Name: "customer_id", BaseType: "type/Integer", SpecialType: core.TagFK, TableID: OrdersTableID, FKTargetFieldID: CustomersIDField})
	m.AddField(&core.Field{ID: OrdersTotalField, Name: "total", BaseType: "type/Float", SpecialType: "type/Income", TableID: OrdersTableID})
	m.AddField(&core.Field{ID: OrdersCreatedAtField, Name: "created_at", BaseType: "type/DateTime", SpecialType: "type/CreationTimestamp", TableID: OrdersTableID})

	m.AddField(&core.Field{ID: CustomersIDField, Name: "id", BaseType: "type/Integer", SpecialType: core.TagPK, TableID: CustomersTableID})
	m.AddField(&core.Field{ID: CustomersNameField, Name: "name", BaseType: "type/Text", SpecialType: "type/Name", TableID: CustomersTableID})
	return m
}
