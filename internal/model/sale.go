package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SaleDraft     = "draft"
	SaleCompleted = "completed"
	SaleCancelled = "cancelled"
)

// Sale moves product stock only while it is completed.
type Sale struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status       string          `gorm:"not null;index"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	SaleDate     time.Time       `gorm:"not null"`
	CustomerName string
	Notes        string
	Version      int64 `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// SaleItem carries CostPerUnitAtSale, captured once when the item is created.
type SaleItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	PricePerUnit      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CostPerUnitAtSale decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(20,6);not null"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
