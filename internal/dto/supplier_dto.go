package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SupplierRequest struct {
	Name        string  `json:"name"         validate:"required,min=2,max=200"`
	ContactName *string `json:"contact_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"        validate:"omitempty,email"`
	Address     *string `json:"address"`
	Notes       *string `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SupplierResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ContactName *string `json:"contact_name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	Notes       *string `json:"notes"`
	Active      bool    `json:"active"`
}
