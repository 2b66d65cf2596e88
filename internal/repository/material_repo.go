package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialFilter struct {
	Name     string
	LowStock bool
	Page     int
	Limit    int
}

// MaterialRepository defines the data access contract for materials.
// Ledger columns (totals, average, stock) are only written through
// UpdateLedgerTx, under a row lock.
type MaterialRepository interface {
	Create(ctx context.Context, m *model.Material) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Material, error)
	List(ctx context.Context, userID uuid.UUID, filter MaterialFilter) ([]model.Material, int64, error)
	UpdateDetails(ctx context.Context, m *model.Material) error
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Used inside transactions: callers must pass the tx instance
	FindByIDsTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Material, error)
	LockForUpdateTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Material, error)
	UpdateLedgerTx(tx *gorm.DB, m *model.Material) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type materialRepo struct{ db *gorm.DB }

func NewMaterialRepository(db *gorm.DB) MaterialRepository { return &materialRepo{db: db} }

func (r *materialRepo) Create(ctx context.Context, m *model.Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *materialRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Material, error) {
	var m model.Material
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) List(ctx context.Context, userID uuid.UUID, filter MaterialFilter) ([]model.Material, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Material{}).Where("user_id = ?", userID)
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.LowStock {
		q = q.Where("minimum_threshold > 0 AND current_stock < minimum_threshold")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.Material
	err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *materialRepo) UpdateDetails(ctx context.Context, m *model.Material) error {
	return r.db.WithContext(ctx).Model(m).
		Select("name", "purchase_unit", "crafting_unit", "conversion_factor", "minimum_threshold", "notes", "updated_at").
		Updates(m).Error
}

func (r *materialRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Material{}).Error
}

func (r *materialRepo) FindByIDsTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Material
	err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&rows).Error
	return rows, err
}

// LockForUpdateTx takes SELECT … FOR UPDATE on every requested material in
// ascending id order. Ids the user does not own are silently absent from the
// result; callers compare lengths to detect them.
func (r *materialRepo) LockForUpdateTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Material, error) {
	ids = sortedIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows := make([]model.Material, 0, len(ids))
	for _, id := range ids {
		var m model.Material
		err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func (r *materialRepo) UpdateLedgerTx(tx *gorm.DB, m *model.Material) error {
	err := versioned(tx, &model.Material{}, m.ID, m.Version, map[string]interface{}{
		"total_quantity": m.TotalQuantity,
		"total_cost":     m.TotalCost,
		"avg_cost":       m.AvgCost,
		"current_stock":  m.CurrentStock,
	})
	if err != nil {
		return err
	}
	m.Version++
	return nil
}

func (r *materialRepo) DB() *gorm.DB { return r.db }
