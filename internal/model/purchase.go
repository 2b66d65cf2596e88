package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Purchase order statuses. Status is informational; it has no stock effect.
const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderUnpaid    = "unpaid"
	OrderCancelled = "cancelled"
)

// PurchaseJournalEntry is one logged acquisition of a material.
// TotalQuantity is always expressed in the material's crafting unit.
type PurchaseJournalEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	PurchaseID    *uuid.UUID      `gorm:"type:uuid;index"`
	PurchaseDate  time.Time       `gorm:"not null"`
	TotalQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalCost     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	// AvgCost is entry-local and kept for display only.
	AvgCost      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	SupplierID   *uuid.UUID      `gorm:"type:uuid;index"`
	SupplierName string
	InvoiceRef   string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PurchaseJournalEntry) TableName() string { return "material_purchases" }

func (e *PurchaseJournalEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// PurchaseOrder groups journal entries bought together under one header.
type PurchaseOrder struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"not null"`
	PurchaseDate time.Time `gorm:"not null"`
	Status       string    `gorm:"not null"`
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Entries []PurchaseJournalEntry `gorm:"foreignKey:PurchaseID"`
}

func (o *PurchaseOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
