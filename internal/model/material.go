package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Material is a raw input owned by one user.
// TotalQuantity and TotalCost accumulate every purchase ever applied and are
// never touched by consumption; AvgCost is derived from them.
// CurrentStock is the physical quantity on hand in crafting units.
type Material struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name             string          `gorm:"not null"`
	PurchaseUnit     string          `gorm:"not null"`
	CraftingUnit     string          `gorm:"not null"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalQuantity    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	AvgCost          decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CurrentStock     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	MinimumThreshold decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Notes            string
	Version          int64 `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (m *Material) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}

// BelowThreshold reports whether the material should raise a low-stock signal.
func (m *Material) BelowThreshold() bool {
	return m.MinimumThreshold.IsPositive() && m.CurrentStock.LessThan(m.MinimumThreshold)
}
