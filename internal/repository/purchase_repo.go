package repository

import (
	"context"
	"time"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseFilter struct {
	MaterialID *uuid.UUID
	PurchaseID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// PurchaseRepository persists purchase journal entries. It never touches the
// material ledger; the service applies the matching delta in the same tx.
type PurchaseRepository interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseJournalEntry, error)
	List(ctx context.Context, userID uuid.UUID, filter PurchaseFilter) ([]model.PurchaseJournalEntry, int64, error)
	CountByMaterial(ctx context.Context, userID, materialID uuid.UUID) (int64, error)
	CountBySupplier(ctx context.Context, userID, supplierID uuid.UUID) (int64, error)

	// Used inside transactions: callers must pass the tx instance
	LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.PurchaseJournalEntry, error)
	FindByOrderTx(tx *gorm.DB, userID, orderID uuid.UUID) ([]model.PurchaseJournalEntry, error)
	CreateTx(tx *gorm.DB, e *model.PurchaseJournalEntry) error
	UpdateTx(tx *gorm.DB, e *model.PurchaseJournalEntry) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.PurchaseJournalEntry, error) {
	var e model.PurchaseJournalEntry
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *purchaseRepo) List(ctx context.Context, userID uuid.UUID, filter PurchaseFilter) ([]model.PurchaseJournalEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PurchaseJournalEntry{}).Where("user_id = ?", userID)
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.PurchaseID != nil {
		q = q.Where("purchase_id = ?", *filter.PurchaseID)
	}
	if filter.From != nil {
		q = q.Where("purchase_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("purchase_date < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.PurchaseJournalEntry
	err := q.Order("purchase_date DESC, created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *purchaseRepo) CountByMaterial(ctx context.Context, userID, materialID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PurchaseJournalEntry{}).
		Where("user_id = ? AND material_id = ?", userID, materialID).Count(&n).Error
	return n, err
}

func (r *purchaseRepo) CountBySupplier(ctx context.Context, userID, supplierID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PurchaseJournalEntry{}).
		Where("user_id = ? AND supplier_id = ?", userID, supplierID).Count(&n).Error
	return n, err
}

// LockByIDTx loads an entry with FOR UPDATE so two concurrent reversals of the
// same entry cannot both apply.
func (r *purchaseRepo) LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.PurchaseJournalEntry, error) {
	var e model.PurchaseJournalEntry
	if err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *purchaseRepo) FindByOrderTx(tx *gorm.DB, userID, orderID uuid.UUID) ([]model.PurchaseJournalEntry, error) {
	var rows []model.PurchaseJournalEntry
	err := tx.Clauses(forUpdate).
		Where("user_id = ? AND purchase_id = ?", userID, orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *purchaseRepo) CreateTx(tx *gorm.DB, e *model.PurchaseJournalEntry) error {
	return tx.Create(e).Error
}

func (r *purchaseRepo) UpdateTx(tx *gorm.DB, e *model.PurchaseJournalEntry) error {
	return tx.Save(e).Error
}

func (r *purchaseRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.PurchaseJournalEntry{}).Error
}

func (r *purchaseRepo) DB() *gorm.DB { return r.db }
