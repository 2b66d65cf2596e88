package service

import (
	"time"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func materialToResponse(m *model.Material) dto.MaterialResponse {
	return dto.MaterialResponse{
		ID:               m.ID.String(),
		Name:             m.Name,
		PurchaseUnit:     m.PurchaseUnit,
		CraftingUnit:     m.CraftingUnit,
		ConversionFactor: m.ConversionFactor,
		TotalQuantity:    m.TotalQuantity,
		TotalCost:        m.TotalCost,
		AvgCost:          m.AvgCost,
		CurrentStock:     m.CurrentStock,
		MinimumThreshold: m.MinimumThreshold,
		LowStock:         m.BelowThreshold(),
		Notes:            m.Notes,
		Version:          m.Version,
		UpdatedAt:        ts(m.UpdatedAt),
	}
}

func materialsToResponse(ms []model.Material) []dto.MaterialResponse {
	out := make([]dto.MaterialResponse, 0, len(ms))
	for i := range ms {
		out = append(out, materialToResponse(&ms[i]))
	}
	return out
}

func purchaseToResponse(e *model.PurchaseJournalEntry) *dto.PurchaseResponse {
	return &dto.PurchaseResponse{
		ID:            e.ID.String(),
		MaterialID:    e.MaterialID.String(),
		PurchaseID:    idPtr(e.PurchaseID),
		PurchaseDate:  e.PurchaseDate.Format(dateLayout),
		TotalQuantity: e.TotalQuantity,
		TotalCost:     e.TotalCost,
		AvgCost:       e.AvgCost,
		SupplierID:    idPtr(e.SupplierID),
		SupplierName:  e.SupplierName,
		InvoiceRef:    e.InvoiceRef,
		Notes:         e.Notes,
	}
}

func orderToResponse(o *model.PurchaseOrder) *dto.OrderResponse {
	resp := &dto.OrderResponse{
		ID:           o.ID.String(),
		Name:         o.Name,
		PurchaseDate: o.PurchaseDate.Format(dateLayout),
		Status:       o.Status,
		Notes:        o.Notes,
		TotalCost:    decimal.Zero,
		Items:        make([]dto.PurchaseResponse, 0, len(o.Entries)),
		CreatedAt:    ts(o.CreatedAt),
	}
	for i := range o.Entries {
		resp.TotalCost = resp.TotalCost.Add(o.Entries[i].TotalCost)
		resp.Items = append(resp.Items, *purchaseToResponse(&o.Entries[i]))
	}
	return resp
}

func costToResponse(recipeID uuid.UUID, c RecipeCost) *dto.RecipeCostResponse {
	resp := &dto.RecipeCostResponse{
		RecipeID:           recipeID.String(),
		TotalCost:          c.Total,
		CostPerYieldUnit:   c.PerYieldUnit,
		Lines:              make([]dto.RecipeCostLine, 0, len(c.Lines)),
		MissingMaterialIDs: make([]string, 0, len(c.Missing)),
	}
	for _, l := range c.Lines {
		resp.Lines = append(resp.Lines, dto.RecipeCostLine{
			MaterialID:   l.MaterialID.String(),
			MaterialName: l.MaterialName,
			Quantity:     l.Quantity,
			AvgCost:      l.AvgCost,
			LineCost:     l.LineCost,
			Missing:      l.Missing,
		})
	}
	for _, id := range c.Missing {
		resp.MissingMaterialIDs = append(resp.MissingMaterialIDs, id.String())
	}
	return resp
}

func recipeToResponse(r *model.Recipe, cost *RecipeCost) *dto.RecipeResponse {
	resp := &dto.RecipeResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		YieldQuantity: r.YieldQuantity,
		YieldUnit:     r.YieldUnit,
		Notes:         r.Notes,
		Materials:     make([]dto.RecipeMaterialResponse, 0, len(r.Materials)),
		UpdatedAt:     ts(r.UpdatedAt),
	}
	for _, rm := range r.Materials {
		resp.Materials = append(resp.Materials, dto.RecipeMaterialResponse{
			ID:         rm.ID.String(),
			MaterialID: rm.MaterialID.String(),
			Quantity:   rm.Quantity,
			Details:    rm.Details,
		})
	}
	if cost != nil {
		resp.Cost = costToResponse(r.ID, *cost)
	}
	return resp
}

func productToResponse(p *model.Product, unitCost decimal.Decimal) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Description:  p.Description,
		RecipeID:     idPtr(p.RecipeID),
		SellingPrice: p.SellingPrice,
		CurrentStock: p.CurrentStock,
		UnitCost:     unitCost,
		Version:      p.Version,
		UpdatedAt:    ts(p.UpdatedAt),
	}
}

func buildToResponse(b *model.ProductBuild) *dto.BuildResponse {
	resp := &dto.BuildResponse{
		ID:               b.ID.String(),
		ProductID:        b.ProductID.String(),
		RecipeID:         idPtr(b.RecipeID),
		QuantityBuilt:    b.QuantityBuilt,
		TotalCostAtBuild: b.TotalCostAtBuild,
		Notes:            b.Notes,
		Lines:            make([]dto.BuildLineResponse, 0, len(b.Lines)),
		CreatedAt:        ts(b.CreatedAt),
	}
	for _, l := range b.Lines {
		resp.Lines = append(resp.Lines, dto.BuildLineResponse{
			MaterialID:       l.MaterialID.String(),
			MaterialName:     l.MaterialName,
			QuantityConsumed: l.QuantityConsumed,
			AvgCostAtBuild:   l.AvgCostAtBuild,
			LineCost:         l.LineCost,
		})
	}
	return resp
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:           s.ID.String(),
		Status:       s.Status,
		TotalAmount:  s.TotalAmount,
		TotalCost:    decimal.Zero,
		SaleDate:     s.SaleDate.Format(dateLayout),
		CustomerName: s.CustomerName,
		Notes:        s.Notes,
		Items:        make([]dto.SaleItemResponse, 0, len(s.Items)),
		Version:      s.Version,
	}
	for _, it := range s.Items {
		resp.TotalCost = resp.TotalCost.Add(it.CostPerUnitAtSale.Mul(it.Quantity).Round(costScale))
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:                it.ID.String(),
			ProductID:         it.ProductID.String(),
			Quantity:          it.Quantity,
			PricePerUnit:      it.PricePerUnit,
			CostPerUnitAtSale: it.CostPerUnitAtSale,
			Subtotal:          it.Subtotal,
		})
	}
	return resp
}

func supplierToResponse(s *model.Supplier) *dto.SupplierResponse {
	return &dto.SupplierResponse{
		ID:          s.ID.String(),
		Name:        s.Name,
		ContactName: s.ContactName,
		Phone:       s.Phone,
		Email:       s.Email,
		Address:     s.Address,
		Notes:       s.Notes,
		Active:      s.Active,
	}
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:          m.ID.String(),
		ItemType:    m.ItemType,
		ItemID:      m.ItemID.String(),
		Kind:        m.Kind,
		Delta:       m.Delta,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		ReferenceID: idPtr(m.ReferenceID),
		CreatedAt:   ts(m.CreatedAt),
	}
}

func costHistoryToResponse(h *model.MaterialCostHistory) dto.CostHistoryResponse {
	return dto.CostHistoryResponse{
		ID:                 h.ID.String(),
		MaterialID:         h.MaterialID.String(),
		AvgCostBefore:      h.AvgCostBefore,
		AvgCostAfter:       h.AvgCostAfter,
		TotalQuantityAfter: h.TotalQuantityAfter,
		TotalCostAfter:     h.TotalCostAfter,
		Reason:             h.Reason,
		ReferenceID:        idPtr(h.ReferenceID),
		CreatedAt:          ts(h.CreatedAt),
	}
}

// parseID parses a client-supplied id; field names the request field.
func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("%s must be a valid id", field)
	}
	return id, nil
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// dateOr truncates t to a calendar day, defaulting to today.
func dateOr(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return *t
}
