package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quantity units accepted on purchase requests.
const (
	UnitCrafting = "crafting"
	UnitPurchase = "purchase"
)

// Apply modes for POST /v1/purchases/apply.
const (
	ApplyCreate = "create"
	ApplyUpdate = "update"
	ApplyDelete = "delete"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// PurchaseRequest logs one acquisition of a material. Quantity is in crafting
// units unless QuantityUnit is "purchase", in which case it is multiplied by
// the material's conversion factor.
type PurchaseRequest struct {
	MaterialID   string          `json:"material_id"   validate:"required,uuid"`
	PurchaseDate *time.Time      `json:"purchase_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	QuantityUnit string          `json:"quantity_unit" validate:"omitempty,oneof=crafting purchase"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	SupplierID   *string         `json:"supplier_id"   validate:"omitempty,uuid"`
	SupplierName string          `json:"supplier_name" validate:"max=200"`
	InvoiceRef   string          `json:"invoice_ref"   validate:"max=100"`
	Notes        string          `json:"notes"`
}

// ApplyPurchaseRequest drives the journal through one reversible operation.
// Create needs Entry, Delete needs EntryID, Update needs both.
type ApplyPurchaseRequest struct {
	Mode    string           `json:"mode"     validate:"required,oneof=create update delete"`
	EntryID *string          `json:"entry_id" validate:"omitempty,uuid"`
	Entry   *PurchaseRequest `json:"entry"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type PurchaseFilter struct {
	MaterialID string `form:"material_id"`
	PurchaseID string `form:"purchase_id"`
	From       string `form:"from"` // YYYY-MM-DD
	To         string `form:"to"`   // YYYY-MM-DD
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PurchaseResponse struct {
	ID            string          `json:"id"`
	MaterialID    string          `json:"material_id"`
	PurchaseID    *string         `json:"purchase_id"`
	PurchaseDate  string          `json:"purchase_date"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	SupplierID    *string         `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	InvoiceRef    string          `json:"invoice_ref"`
	Notes         string          `json:"notes"`
}

// PurchaseResultResponse is returned by every journal mutation: the entry
// (nil after a delete) and the material snapshots it touched.
type PurchaseResultResponse struct {
	Entry     *PurchaseResponse  `json:"entry"`
	Materials []MaterialResponse `json:"materials"`
}

type PurchaseListResponse struct {
	Data       []PurchaseResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
