package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe lists the materials needed for one yield batch.
type Recipe struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name          string          `gorm:"not null"`
	YieldQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	YieldUnit     string          `gorm:"not null"`
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Materials []RecipeMaterial `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeMaterial is one line of a recipe. Quantity is in the material's
// crafting unit, per yield batch. MaterialID is deliberately not a foreign
// key: a recipe may outlive the materials it names.
type RecipeMaterial struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RecipeID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Details    string
}

func (rm *RecipeMaterial) BeforeCreate(*gorm.DB) error {
	if rm.ID == uuid.Nil {
		rm.ID = uuid.New()
	}
	return nil
}
