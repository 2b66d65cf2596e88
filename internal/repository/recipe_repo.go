package repository

import (
	"context"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecipeRepository interface {
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Recipe, error)
	List(ctx context.Context, userID uuid.UUID, name string) ([]model.Recipe, error)

	// Used inside transactions: callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Recipe, error)
	CreateTx(tx *gorm.DB, r *model.Recipe) error
	UpdateHeaderTx(tx *gorm.DB, r *model.Recipe) error
	CreateLineTx(tx *gorm.DB, line *model.RecipeMaterial) error
	UpdateLineTx(tx *gorm.DB, line *model.RecipeMaterial) error
	DeleteLineTx(tx *gorm.DB, id uuid.UUID) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error

	DB() *gorm.DB
}

type recipeRepo struct{ db *gorm.DB }

func NewRecipeRepository(db *gorm.DB) RecipeRepository { return &recipeRepo{db: db} }

func (r *recipeRepo) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Recipe, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), userID, id)
}

func (r *recipeRepo) List(ctx context.Context, userID uuid.UUID, name string) ([]model.Recipe, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if name != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+name+"%")
	}
	var rows []model.Recipe
	err := q.Preload("Materials").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *recipeRepo) FindByIDTx(tx *gorm.DB, userID, id uuid.UUID) (*model.Recipe, error) {
	var rec model.Recipe
	err := tx.Preload("Materials", func(db *gorm.DB) *gorm.DB { return db.Order("material_id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recipeRepo) CreateTx(tx *gorm.DB, rec *model.Recipe) error {
	return tx.Create(rec).Error
}

func (r *recipeRepo) UpdateHeaderTx(tx *gorm.DB, rec *model.Recipe) error {
	return tx.Model(rec).
		Select("name", "yield_quantity", "yield_unit", "notes", "updated_at").
		Updates(rec).Error
}

func (r *recipeRepo) CreateLineTx(tx *gorm.DB, line *model.RecipeMaterial) error {
	return tx.Create(line).Error
}

func (r *recipeRepo) UpdateLineTx(tx *gorm.DB, line *model.RecipeMaterial) error {
	return tx.Model(line).Select("quantity", "details").Updates(line).Error
}

func (r *recipeRepo) DeleteLineTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.RecipeMaterial{}).Error
}

// DeleteTx removes the recipe lines before the header.
func (r *recipeRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("recipe_id = ?", id).Delete(&model.RecipeMaterial{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&model.Recipe{}).Error
}

func (r *recipeRepo) DB() *gorm.DB { return r.db }
