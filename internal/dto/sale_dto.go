package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleItemRequest is one sale line. ID is set on draft updates when the line
// already exists; existing lines keep their cost snapshot.
type SaleItemRequest struct {
	ID           *string         `json:"id"             validate:"omitempty,uuid"`
	ProductID    string          `json:"product_id"     validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" validate:"min=0"`
}

type SaleRequest struct {
	SaleDate     *time.Time        `json:"sale_date"`
	CustomerName string            `json:"customer_name" validate:"max=200"`
	Notes        string            `json:"notes"`
	Items        []SaleItemRequest `json:"items"         validate:"required,min=1,dive"`
}

type RevertSaleRequest struct {
	Status string `json:"status" validate:"required,oneof=draft cancelled"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type SaleFilter struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	CostPerUnitAtSale decimal.Decimal `json:"cost_per_unit_at_sale"`
	Subtotal          decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	TotalAmount  decimal.Decimal    `json:"total_amount"`
	TotalCost    decimal.Decimal    `json:"total_cost"`
	SaleDate     string             `json:"sale_date"`
	CustomerName string             `json:"customer_name"`
	Notes        string             `json:"notes"`
	Items        []SaleItemResponse `json:"items"`
	Version      int64              `json:"version"`
}

type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}
