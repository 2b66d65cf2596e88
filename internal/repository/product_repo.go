package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductFilter struct {
	Name  string
	Page  int
	Limit int
}

// ProductRepository defines the data access contract for products.
// current_stock is only written through UpdateStockTx, under a row lock.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, userID uuid.UUID, filter ProductFilter) ([]model.Product, int64, error)
	UpdateDetails(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Used inside transactions: callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Product, error)
	LockForUpdateTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Product, error)
	UpdateStockTx(tx *gorm.DB, p *model.Product) error
	UnlinkRecipeTx(tx *gorm.DB, userID, recipeID uuid.UUID) error

	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Product, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), userID, id)
}

func (r *productRepo) List(ctx context.Context, userID uuid.UUID, filter ProductFilter) ([]model.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("user_id = ?", userID)
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := page(filter.Page, filter.Limit, 50, 500)
	var rows []model.Product
	err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

func (r *productRepo) UpdateDetails(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Model(p).
		Select("name", "description", "recipe_id", "selling_price", "updated_at").
		Updates(p).Error
}

func (r *productRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Product{}).Error
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) LockForUpdateTx(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	ids = sortedIDs(ids)
	rows := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		var p model.Product
		err := tx.Clauses(forUpdate).Where("id = ? AND user_id = ?", id, userID).Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, nil
}

func (r *productRepo) UpdateStockTx(tx *gorm.DB, p *model.Product) error {
	err := versioned(tx, &model.Product{}, p.ID, p.Version, map[string]interface{}{
		"current_stock": p.CurrentStock,
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

// UnlinkRecipeTx clears recipe_id on every product built from recipeID.
func (r *productRepo) UnlinkRecipeTx(tx *gorm.DB, userID, recipeID uuid.UUID) error {
	return tx.Model(&model.Product{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Update("recipe_id", nil).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
