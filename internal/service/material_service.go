package service

import (
	"context"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialService covers the descriptive side of materials. Ledger columns
// start at zero and are only moved by purchases and builds.
type MaterialService interface {
	CreateMaterial(ctx context.Context, userID uuid.UUID, req dto.CreateMaterialRequest) (*dto.MaterialResponse, error)
	UpdateMaterial(ctx context.Context, userID, id uuid.UUID, req dto.UpdateMaterialRequest) (*dto.MaterialResponse, error)
	DeleteMaterial(ctx context.Context, userID, id uuid.UUID) error
	GetMaterial(ctx context.Context, userID, id uuid.UUID) (*dto.MaterialResponse, error)
	ListMaterials(ctx context.Context, userID uuid.UUID, filter dto.MaterialFilter) (*dto.MaterialListResponse, error)
	ListLowStock(ctx context.Context, userID uuid.UUID) ([]dto.MaterialResponse, error)
	CostHistory(ctx context.Context, userID, id uuid.UUID, page, limit int) (*dto.CostHistoryListResponse, error)
}

type materialService struct {
	materials repository.MaterialRepository
	purchases repository.PurchaseRepository
	costs     repository.CostHistoryRepository
}

func NewMaterialService(
	materials repository.MaterialRepository,
	purchases repository.PurchaseRepository,
	costs repository.CostHistoryRepository,
) MaterialService {
	return &materialService{materials: materials, purchases: purchases, costs: costs}
}

func (s *materialService) CreateMaterial(ctx context.Context, userID uuid.UUID, req dto.CreateMaterialRequest) (*dto.MaterialResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("material name is required")
	}
	if !req.ConversionFactor.IsPositive() {
		return nil, invalid("conversion_factor must be greater than zero")
	}
	if req.MinimumThreshold.IsNegative() {
		return nil, invalid("minimum_threshold cannot be negative")
	}
	m := &model.Material{
		UserID:           userID,
		Name:             req.Name,
		PurchaseUnit:     req.PurchaseUnit,
		CraftingUnit:     req.CraftingUnit,
		ConversionFactor: req.ConversionFactor.Round(costScale),
		TotalQuantity:    decimal.Zero,
		TotalCost:        decimal.Zero,
		AvgCost:          decimal.Zero,
		CurrentStock:     decimal.Zero,
		MinimumThreshold: req.MinimumThreshold.Round(costScale),
		Notes:            req.Notes,
	}
	if err := s.materials.Create(ctx, m); err != nil {
		return nil, err
	}
	resp := materialToResponse(m)
	return &resp, nil
}

// UpdateMaterial patches descriptive fields. A new conversion factor only
// affects purchases recorded from now on; stored entries are already in
// crafting units.
func (s *materialService) UpdateMaterial(ctx context.Context, userID, id uuid.UUID, req dto.UpdateMaterialRequest) (*dto.MaterialResponse, error) {
	m, err := s.materials.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "material")
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, invalid("material name is required")
		}
		m.Name = *req.Name
	}
	if req.PurchaseUnit != nil {
		m.PurchaseUnit = *req.PurchaseUnit
	}
	if req.CraftingUnit != nil {
		m.CraftingUnit = *req.CraftingUnit
	}
	if req.ConversionFactor != nil {
		if !req.ConversionFactor.IsPositive() {
			return nil, invalid("conversion_factor must be greater than zero")
		}
		m.ConversionFactor = req.ConversionFactor.Round(costScale)
	}
	if req.MinimumThreshold != nil {
		if req.MinimumThreshold.IsNegative() {
			return nil, invalid("minimum_threshold cannot be negative")
		}
		m.MinimumThreshold = req.MinimumThreshold.Round(costScale)
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	if err := s.materials.UpdateDetails(ctx, m); err != nil {
		return nil, err
	}
	resp := materialToResponse(m)
	return &resp, nil
}

// DeleteMaterial is refused while journal entries reference the material:
// deleting them first keeps the ledger and the journal in agreement.
// Recipes and builds may outlive it.
func (s *materialService) DeleteMaterial(ctx context.Context, userID, id uuid.UUID) error {
	m, err := s.materials.FindByID(ctx, userID, id)
	if err != nil {
		return lookupErr(err, "material")
	}
	n, err := s.purchases.CountByMaterial(ctx, userID, m.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return with(ErrInUse, "material has %d purchase entries; delete them first", n)
	}
	return s.materials.Delete(ctx, userID, m.ID)
}

func (s *materialService) GetMaterial(ctx context.Context, userID, id uuid.UUID) (*dto.MaterialResponse, error) {
	m, err := s.materials.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "material")
	}
	resp := materialToResponse(m)
	return &resp, nil
}

func (s *materialService) ListMaterials(ctx context.Context, userID uuid.UUID, filter dto.MaterialFilter) (*dto.MaterialListResponse, error) {
	rows, total, err := s.materials.List(ctx, userID, repository.MaterialFilter{
		Name:     filter.Name,
		LowStock: filter.LowStock,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	return &dto.MaterialListResponse{
		Data:       materialsToResponse(rows),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ListLowStock returns every material currently below its threshold.
func (s *materialService) ListLowStock(ctx context.Context, userID uuid.UUID) ([]dto.MaterialResponse, error) {
	rows, _, err := s.materials.List(ctx, userID, repository.MaterialFilter{LowStock: true, Page: 1, Limit: 500})
	if err != nil {
		return nil, err
	}
	return materialsToResponse(rows), nil
}

func (s *materialService) CostHistory(ctx context.Context, userID, id uuid.UUID, page, limit int) (*dto.CostHistoryListResponse, error) {
	if _, err := s.materials.FindByID(ctx, userID, id); err != nil {
		return nil, lookupErr(err, "material")
	}
	rows, total, err := s.costs.ListByMaterial(ctx, userID, id, page, limit)
	if err != nil {
		return nil, err
	}
	p, l := normalizePage(page, limit, 50, 200)
	resp := &dto.CostHistoryListResponse{
		Data:  make([]dto.CostHistoryResponse, 0, len(rows)),
		Total: total,
		Page:  p,
		Limit: l,
	}
	for i := range rows {
		resp.Data = append(resp.Data, costHistoryToResponse(&rows[i]))
	}
	return resp, nil
}
