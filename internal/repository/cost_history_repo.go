package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CostHistoryRepository interface {
	CreateTx(tx *gorm.DB, h *model.MaterialCostHistory) error
	ListByMaterial(ctx context.Context, userID, materialID uuid.UUID, page, limit int) ([]model.MaterialCostHistory, int64, error)
}

type costHistoryRepo struct{ db *gorm.DB }

func NewCostHistoryRepository(db *gorm.DB) CostHistoryRepository {
	return &costHistoryRepo{db: db}
}

func (r *costHistoryRepo) CreateTx(tx *gorm.DB, h *model.MaterialCostHistory) error {
	return tx.Create(h).Error
}

// ListByMaterial returns paginated average-cost changes for one material,
// newest first (append-only table, so this reflects natural insert order).
func (r *costHistoryRepo) ListByMaterial(
	ctx context.Context,
	userID, materialID uuid.UUID,
	p, l int,
) ([]model.MaterialCostHistory, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MaterialCostHistory{}).
		Where("user_id = ? AND material_id = ?", userID, materialID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(p, l, 50, 200)
	var rows []model.MaterialCostHistory
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
