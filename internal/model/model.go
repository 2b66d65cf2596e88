// Package model holds the GORM models of the ledger. Every row is scoped by
// the owning user id; ids are generated client-side in BeforeCreate hooks.
package model

// All lists every model managed by AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&Supplier{},
		&Material{},
		&PurchaseOrder{},
		&PurchaseJournalEntry{},
		&MaterialCostHistory{},
		&Recipe{},
		&RecipeMaterial{},
		&Product{},
		&ProductBuild{},
		&ProductBuildLine{},
		&Sale{},
		&SaleItem{},
		&StockMovement{},
	}
}
