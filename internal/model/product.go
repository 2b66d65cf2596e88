package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable good. Its cost is never stored here: it is derived
// from the linked recipe on demand, or frozen on builds and sale items.
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	RecipeID     *uuid.UUID      `gorm:"type:uuid;index"`
	Name         string          `gorm:"not null"`
	Description  string
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Version      int64           `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}
