package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OrderItemRequest is one line of a purchase order. ID is set when the line
// refers to an entry that already belongs to the order.
type OrderItemRequest struct {
	ID           *string         `json:"id"            validate:"omitempty,uuid"`
	MaterialID   string          `json:"material_id"   validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"`
	QuantityUnit string          `json:"quantity_unit" validate:"omitempty,oneof=crafting purchase"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	SupplierID   *string         `json:"supplier_id"   validate:"omitempty,uuid"`
	SupplierName string          `json:"supplier_name" validate:"max=200"`
	InvoiceRef   string          `json:"invoice_ref"   validate:"max=100"`
	Notes        string          `json:"notes"`
}

type OrderRequest struct {
	Name         string             `json:"name"          validate:"required,min=1,max=200"`
	PurchaseDate *time.Time         `json:"purchase_date"`
	Status       string             `json:"status"        validate:"omitempty,oneof=pending completed unpaid cancelled"`
	Notes        string             `json:"notes"`
	Items        []OrderItemRequest `json:"items"         validate:"dive"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type OrderFilter struct {
	Status string `form:"status"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrderResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	PurchaseDate string             `json:"purchase_date"`
	Status       string             `json:"status"`
	Notes        string             `json:"notes"`
	TotalCost    decimal.Decimal    `json:"total_cost"`
	Items        []PurchaseResponse `json:"items"`
	CreatedAt    string             `json:"created_at"`
}

type OrderListResponse struct {
	Data       []OrderResponse `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}
