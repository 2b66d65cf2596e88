package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Supplier, error)
	Update(ctx context.Context, s *model.Supplier) error
	SoftDelete(ctx context.Context, userID, id uuid.UUID) error

	FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Supplier, error)
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Supplier, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), userID, id)
}

func (r *supplierRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Supplier, error) {
	var rows []model.Supplier
	err := r.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *supplierRepo) Update(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *supplierRepo) SoftDelete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Supplier{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("active", false).Error
}

func (r *supplierRepo) FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
