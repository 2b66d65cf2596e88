package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecipeMaterialRequest struct {
	MaterialID string          `json:"material_id" validate:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity"`
	Details    string          `json:"details"`
}

type RecipeRequest struct {
	Name          string                  `json:"name"           validate:"required,min=1,max=200"`
	YieldQuantity decimal.Decimal         `json:"yield_quantity"`
	YieldUnit     string                  `json:"yield_unit"     validate:"required,max=40"`
	Notes         string                  `json:"notes"`
	Materials     []RecipeMaterialRequest `json:"materials"      validate:"dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RecipeCostLine struct {
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	LineCost     decimal.Decimal `json:"line_cost"`
	Missing      bool            `json:"missing"`
}

type RecipeCostResponse struct {
	RecipeID           string           `json:"recipe_id"`
	TotalCost          decimal.Decimal  `json:"total_cost"`
	CostPerYieldUnit   decimal.Decimal  `json:"cost_per_yield_unit"`
	Lines              []RecipeCostLine `json:"lines"`
	MissingMaterialIDs []string         `json:"missing_material_ids"`
}

type RecipeMaterialResponse struct {
	ID         string          `json:"id"`
	MaterialID string          `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Details    string          `json:"details"`
}

type RecipeResponse struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	YieldQuantity decimal.Decimal          `json:"yield_quantity"`
	YieldUnit     string                   `json:"yield_unit"`
	Notes         string                   `json:"notes"`
	Materials     []RecipeMaterialResponse `json:"materials"`
	Cost          *RecipeCostResponse      `json:"cost,omitempty"`
	UpdatedAt     string                   `json:"updated_at"`
}

type RecipeListResponse struct {
	Data  []RecipeResponse `json:"data"`
	Total int64            `json:"total"`
}
