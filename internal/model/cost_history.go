package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialCostHistory records every weighted-average change of a material.
// Rows are immutable.
type MaterialCostHistory struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null"`
	MaterialID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	AvgCostBefore      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	AvgCostAfter       decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalQuantityAfter decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalCostAfter     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Reason             string          `gorm:"not null"` // purchase | purchase_reversal
	ReferenceID        *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt          time.Time
}

func (MaterialCostHistory) TableName() string { return "material_cost_history" }

func (h *MaterialCostHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
