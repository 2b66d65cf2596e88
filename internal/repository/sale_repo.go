package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleFilter struct {
	Status string
	Page   int
	Limit  int
}

type SaleRepository interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, userID uuid.UUID, filter SaleFilter) ([]model.Sale, int64, error)
	CountItemsByProduct(ctx context.Context, userID, productID uuid.UUID) (int64, error)

	// Used inside transactions: callers must pass the tx instance
	LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Sale, error)
	CreateTx(tx *gorm.DB, s *model.Sale) error
	UpdateHeaderTx(tx *gorm.DB, s *model.Sale) error
	CreateItemTx(tx *gorm.DB, item *model.SaleItem) error
	UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error
	DeleteItemTx(tx *gorm.DB, id uuid.UUID) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC, id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) List(ctx context.Context, userID uuid.UUID, filter SaleFilter) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.Sale
	err := q.Preload("Items").Order("sale_date DESC, created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *saleRepo) CountItemsByProduct(ctx context.Context, userID, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.user_id = ? AND sale_items.product_id = ?", userID, productID).
		Count(&n).Error
	return n, err
}

// LockByIDTx locks the sale header and loads its items.
func (r *saleRepo) LockByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	if err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&s).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("sale_id = ?", s.ID).Order("product_id ASC, id ASC").Find(&s.Items).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

// UpdateHeaderTx writes status and totals guarded by the sale version.
func (r *saleRepo) UpdateHeaderTx(tx *gorm.DB, s *model.Sale) error {
	err := versioned(tx, &model.Sale{}, s.ID, s.Version, map[string]interface{}{
		"status":        s.Status,
		"total_amount":  s.TotalAmount,
		"sale_date":     s.SaleDate,
		"customer_name": s.CustomerName,
		"notes":         s.Notes,
	})
	if err != nil {
		return err
	}
	s.Version++
	return nil
}

func (r *saleRepo) CreateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Create(item).Error
}

// UpdateItemTx never rewrites cost_per_unit_at_sale.
func (r *saleRepo) UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Model(item).Select("quantity", "price_per_unit", "subtotal").Updates(item).Error
}

func (r *saleRepo) DeleteItemTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.SaleItem{}).Error
}

func (r *saleRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("sale_id = ?", id).Delete(&model.SaleItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepo) DB() *gorm.DB { return r.db }
