package service

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/google/uuid"
)

// InventoryService is the read side of stock: the movement log and the
// low-stock alerts raised by the worker.
type InventoryService interface {
	ListMovements(ctx context.Context, userID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	ListAlerts(ctx context.Context, userID uuid.UUID) ([]dto.LowStockAlert, error)
	DismissAlert(ctx context.Context, userID, materialID uuid.UUID) error
}

type inventoryService struct {
	movements repository.StockMovementRepository
	alerts    *worker.AlertStore
}

// NewInventoryService accepts a nil alert store; alerts are then always empty.
func NewInventoryService(movements repository.StockMovementRepository, alerts *worker.AlertStore) InventoryService {
	return &inventoryService{movements: movements, alerts: alerts}
}

func (s *inventoryService) ListMovements(ctx context.Context, userID uuid.UUID, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.MovementFilter{Kind: filter.Kind, Page: filter.Page, Limit: filter.Limit}
	switch filter.ItemType {
	case "", model.ItemMaterial, model.ItemProduct:
		f.ItemType = filter.ItemType
	default:
		return nil, invalid("item_type must be material or product")
	}
	if filter.ItemID != "" {
		id, err := parseOptionalID(&filter.ItemID, "item_id")
		if err != nil {
			return nil, err
		}
		f.ItemID = id
	}
	rows, total, err := s.movements.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 100, 500)
	resp := &dto.MovementListResponse{
		Data:  make([]dto.MovementResponse, 0, len(rows)),
		Total: total,
		Page:  p,
		Limit: limit,
	}
	for i := range rows {
		resp.Data = append(resp.Data, movementToResponse(&rows[i]))
	}
	return resp, nil
}

func (s *inventoryService) ListAlerts(ctx context.Context, userID uuid.UUID) ([]dto.LowStockAlert, error) {
	if s.alerts == nil {
		return []dto.LowStockAlert{}, nil
	}
	return s.alerts.List(ctx, userID.String())
}

func (s *inventoryService) DismissAlert(ctx context.Context, userID, materialID uuid.UUID) error {
	if s.alerts == nil {
		return nil
	}
	return s.alerts.Dismiss(ctx, userID.String(), materialID.String())
}
