package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ProductRequest struct {
	Name         string          `json:"name"          validate:"required,min=1,max=200"`
	Description  string          `json:"description"`
	RecipeID     *string         `json:"recipe_id"     validate:"omitempty,uuid"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"min=0"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Name  string `form:"name"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ProductResponse carries UnitCost computed live from the linked recipe.
type ProductResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	RecipeID     *string         `json:"recipe_id"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Version      int64           `json:"version"`
	UpdatedAt    string          `json:"updated_at"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
