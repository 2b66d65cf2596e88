package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Status string
	Page   int
	Limit  int
}

// OrderRepository persists purchase order headers. Child entries are written
// through PurchaseRepository so each one passes through the ledger.
type OrderRepository interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, userID uuid.UUID, filter OrderFilter) ([]model.PurchaseOrder, int64, error)

	// Used inside transactions: callers must pass the tx instance
	ExistsTx(tx *gorm.DB, userID, id uuid.UUID) (bool, error)
	LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.PurchaseOrder, error)
	CreateTx(tx *gorm.DB, o *model.PurchaseOrder) error
	UpdateHeaderTx(tx *gorm.DB, o *model.PurchaseOrder) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var o model.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, userID uuid.UUID, filter OrderFilter) ([]model.PurchaseOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.PurchaseOrder
	err := q.Preload("Entries").
		Order("purchase_date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *orderRepo) ExistsTx(tx *gorm.DB, userID, id uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&model.PurchaseOrder{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error
	return n > 0, err
}

func (r *orderRepo) LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.PurchaseOrder, error) {
	var o model.PurchaseOrder
	if err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.PurchaseOrder) error {
	return tx.Omit("Entries").Create(o).Error
}

func (r *orderRepo) UpdateHeaderTx(tx *gorm.DB, o *model.PurchaseOrder) error {
	return tx.Model(o).
		Select("name", "purchase_date", "status", "notes", "updated_at").
		Updates(o).Error
}

func (r *orderRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *orderRepo) DB() *gorm.DB { return r.db }
