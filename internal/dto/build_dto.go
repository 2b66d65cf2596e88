package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type BuildRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type BuildFilter struct {
	ProductID string `form:"product_id"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BuildLineResponse struct {
	MaterialID       string          `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	AvgCostAtBuild   decimal.Decimal `json:"avg_cost_at_build"`
	LineCost         decimal.Decimal `json:"line_cost"`
}

type BuildResponse struct {
	ID               string              `json:"id"`
	ProductID        string              `json:"product_id"`
	RecipeID         *string             `json:"recipe_id"`
	QuantityBuilt    decimal.Decimal     `json:"quantity_built"`
	TotalCostAtBuild decimal.Decimal     `json:"total_cost_at_build"`
	Notes            string              `json:"notes"`
	Lines            []BuildLineResponse `json:"lines"`
	// MissingMaterialIDs lists recipe lines skipped because the material no
	// longer exists. Only populated on the response to Build.
	MissingMaterialIDs []string `json:"missing_material_ids,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

type BuildListResponse struct {
	Data       []BuildResponse `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
