package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BuildFilter struct {
	ProductID *uuid.UUID
	Page      int
	Limit     int
}

type BuildRepository interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.ProductBuild, error)
	List(ctx context.Context, userID uuid.UUID, filter BuildFilter) ([]model.ProductBuild, int64, error)
	CountByProduct(ctx context.Context, userID, productID uuid.UUID) (int64, error)

	// Used inside transactions: callers must pass the tx instance
	LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.ProductBuild, error)
	CreateTx(tx *gorm.DB, b *model.ProductBuild) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type buildRepo struct{ db *gorm.DB }

func NewBuildRepository(db *gorm.DB) BuildRepository { return &buildRepo{db: db} }

func (r *buildRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.ProductBuild, error) {
	var b model.ProductBuild
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("id = ? AND user_id = ?", id, userID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *buildRepo) List(ctx context.Context, userID uuid.UUID, filter BuildFilter) ([]model.ProductBuild, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ProductBuild{}).Where("user_id = ?", userID)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.ProductBuild
	err := q.Preload("Lines").Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *buildRepo) CountByProduct(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductBuild{}).
		Where("user_id = ? AND product_id = ?", userID, productID).Count(&n).Error
	return n, err
}

// LockByIDTx locks the build header and loads its frozen lines.
func (r *buildRepo) LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.ProductBuild, error) {
	var b model.ProductBuild
	if err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&b).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("build_id = ?", b.ID).Order("material_id ASC").Find(&b.Lines).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts the build and its lines.
func (r *buildRepo) CreateTx(tx *gorm.DB, b *model.ProductBuild) error {
	return tx.Create(b).Error
}

func (r *buildRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("build_id = ?", id).Delete(&model.ProductBuildLine{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.ProductBuild{}).Error
}

func (r *buildRepo) DB() *gorm.DB { return r.db }
