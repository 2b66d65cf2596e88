package dto

import "github.com/shopspring/decimal"

type MovementFilter struct {
	ItemType string `form:"item_type"` // material | product
	ItemID   string `form:"item_id"`
	Kind     string `form:"kind"`
	Page     int    `form:"page,default=1"    validate:"min=1"`
	Limit    int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovementResponse struct {
	ID          string          `json:"id"`
	ItemType    string          `json:"item_type"`
	ItemID      string          `json:"item_id"`
	Kind        string          `json:"kind"`
	Delta       decimal.Decimal `json:"delta"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	Reason      string          `json:"reason"`
	ReferenceID *string         `json:"reference_id"`
	CreatedAt   string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// LowStockAlert is recorded by the alert worker when a material drops below
// its minimum threshold.
type LowStockAlert struct {
	MaterialID       string          `json:"material_id"`
	Name             string          `json:"name"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	RaisedAt         string          `json:"raised_at"`
}
