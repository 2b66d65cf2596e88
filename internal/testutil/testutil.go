// Package testutil provides throwaway databases and fixtures for tests that
// need real GORM transactions without a Postgres server.
package testutil

import (
	"fmt"
	"testing"

	"github.com/oliklab/mledger-sub000/internal/infra"
	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to t. The pool
// is pinned to one connection so every statement sees the same memory DB.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.RunMigrations(db))
	return db
}

// D parses a decimal literal, failing loudly on typos.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Material inserts an empty material (no purchases yet).
func Material(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *model.Material {
	t.Helper()
	m := &model.Material{
		UserID:           userID,
		Name:             name,
		PurchaseUnit:     "unit",
		CraftingUnit:     "unit",
		ConversionFactor: decimal.NewFromInt(1),
		TotalQuantity:    decimal.Zero,
		TotalCost:        decimal.Zero,
		AvgCost:          decimal.Zero,
		CurrentStock:     decimal.Zero,
		MinimumThreshold: decimal.Zero,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Recipe inserts a recipe with yield and one line per entry of lines
// (material id → quantity per batch).
func Recipe(t *testing.T, db *gorm.DB, userID uuid.UUID, yield string, lines map[uuid.UUID]string) *model.Recipe {
	t.Helper()
	r := &model.Recipe{UserID: userID, Name: "recipe", YieldQuantity: D(yield), YieldUnit: "unit"}
	for id, qty := range lines {
		r.Materials = append(r.Materials, model.RecipeMaterial{MaterialID: id, Quantity: D(qty)})
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

// Product inserts a product, optionally linked to recipeID, with stock on hand.
func Product(t *testing.T, db *gorm.DB, userID uuid.UUID, recipeID *uuid.UUID, stock string) *model.Product {
	t.Helper()
	p := &model.Product{
		UserID:       userID,
		RecipeID:     recipeID,
		Name:         "product",
		SellingPrice: D("10"),
		CurrentStock: D(stock),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// ReloadMaterial reads the committed row back.
func ReloadMaterial(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Material {
	t.Helper()
	var m model.Material
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return &m
}

// ReloadProduct reads the committed row back.
func ReloadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}
