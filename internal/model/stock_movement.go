package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ItemMaterial = "material"
	ItemProduct  = "product"
)

// Movement kinds.
const (
	MovePurchase         = "purchase"
	MovePurchaseReversal = "purchase_reversal"
	MoveBuildConsume     = "build_consume"
	MoveBuildProduce     = "build_produce"
	MoveBuildReversal    = "build_reversal"
	MoveSale             = "sale"
	MoveSaleReversal     = "sale_reversal"
)

// StockMovement records every change to a material's or product's stock.
// Rows are append-only.
type StockMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemType    string          `gorm:"not null;index:idx_movement_item"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_item"`
	Kind        string          `gorm:"not null"`
	Delta       decimal.Decimal `gorm:"type:decimal(20,6);not null"` // positive = in, negative = out
	StockBefore decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Reason      string
	ReferenceID *uuid.UUID `gorm:"type:uuid"` // purchase, build or sale id
	CreatedAt   time.Time
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
