package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductBuild is one manufacturing event. TotalCostAtBuild and the lines are
// frozen at creation; reversing the build replays the lines, never the recipe.
type ProductBuild struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	RecipeID         *uuid.UUID      `gorm:"type:uuid"`
	QuantityBuilt    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	TotalCostAtBuild decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Notes            string
	CreatedAt        time.Time

	Lines []ProductBuildLine `gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE"`
}

func (b *ProductBuild) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ProductBuildLine snapshots how much of one material a build consumed.
type ProductBuildLine struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BuildID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID       uuid.UUID       `gorm:"type:uuid;not null"`
	MaterialName     string
	QuantityConsumed decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	AvgCostAtBuild   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	LineCost         decimal.Decimal `gorm:"type:decimal(20,6);not null"`
}

func (l *ProductBuildLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
