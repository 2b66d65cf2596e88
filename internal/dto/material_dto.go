package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateMaterialRequest struct {
	Name             string          `json:"name"              validate:"required,min=1,max=200"`
	PurchaseUnit     string          `json:"purchase_unit"     validate:"required,max=40"`
	CraftingUnit     string          `json:"crafting_unit"     validate:"required,max=40"`
	ConversionFactor decimal.Decimal `json:"conversion_factor" validate:"required,gt=0"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold" validate:"min=0"`
	Notes            string          `json:"notes"`
}

// UpdateMaterialRequest only touches descriptive fields; ledger totals are
// owned by the purchase journal.
type UpdateMaterialRequest struct {
	Name             *string          `json:"name"              validate:"omitempty,min=1,max=200"`
	PurchaseUnit     *string          `json:"purchase_unit"     validate:"omitempty,max=40"`
	CraftingUnit     *string          `json:"crafting_unit"     validate:"omitempty,max=40"`
	ConversionFactor *decimal.Decimal `json:"conversion_factor"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold"`
	Notes            *string          `json:"notes"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type MaterialFilter struct {
	Name     string `form:"name"`
	LowStock bool   `form:"low_stock"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MaterialResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PurchaseUnit     string          `json:"purchase_unit"`
	CraftingUnit     string          `json:"crafting_unit"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	LowStock         bool            `json:"low_stock"`
	Notes            string          `json:"notes"`
	Version          int64           `json:"version"`
	UpdatedAt        string          `json:"updated_at"`
}

type MaterialListResponse struct {
	Data       []MaterialResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type CostHistoryResponse struct {
	ID                 string          `json:"id"`
	MaterialID         string          `json:"material_id"`
	AvgCostBefore      decimal.Decimal `json:"avg_cost_before"`
	AvgCostAfter       decimal.Decimal `json:"avg_cost_after"`
	TotalQuantityAfter decimal.Decimal `json:"total_quantity_after"`
	TotalCostAfter     decimal.Decimal `json:"total_cost_after"`
	Reason             string          `json:"reason"`
	ReferenceID        *string         `json:"reference_id"`
	CreatedAt          string          `json:"created_at"`
}

type CostHistoryListResponse struct {
	Data  []CostHistoryResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}
