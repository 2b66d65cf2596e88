package service

import (
	"context"
	"errors"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService manages sellable products. Stock is never written here:
// builds and sales own it.
type ProductService interface {
	CreateProduct(ctx context.Context, userID uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	UpdateProduct(ctx context.Context, userID, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, userID, id uuid.UUID) error
	GetProduct(ctx context.Context, userID, id uuid.UUID) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, userID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error)
}

// coster prices one unit of a product from its recipe's current cost.
// It memoizes per recipe so a listing reads each recipe once.
type coster struct {
	recipes   repository.RecipeRepository
	materials repository.MaterialRepository
	cache     map[uuid.UUID]decimal.Decimal
}

func newCoster(recipes repository.RecipeRepository, materials repository.MaterialRepository) *coster {
	return &coster{recipes: recipes, materials: materials, cache: make(map[uuid.UUID]decimal.Decimal)}
}

// unitCost is the per-yield-unit cost of recipeID, or zero when the product
// has no recipe or the recipe is gone.
func (c *coster) unitCost(tx *gorm.DB, userID uuid.UUID, recipeID *uuid.UUID) (decimal.Decimal, error) {
	if recipeID == nil {
		return decimal.Zero, nil
	}
	if v, ok := c.cache[*recipeID]; ok {
		return v, nil
	}
	r, err := c.recipes.FindByIDTx(tx, userID, *recipeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.cache[*recipeID] = decimal.Zero
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	rows, err := c.materials.FindByIDsTx(tx, userID, materialIDs(r))
	if err != nil {
		return decimal.Zero, err
	}
	v := CalculateRecipeCost(r, snapshotOf(rows)).PerYieldUnit
	c.cache[*recipeID] = v
	return v, nil
}

type productService struct {
	products  repository.ProductRepository
	recipes   repository.RecipeRepository
	materials repository.MaterialRepository
	builds    repository.BuildRepository
	sales     repository.SaleRepository
}

func NewProductService(
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	materials repository.MaterialRepository,
	builds repository.BuildRepository,
	sales repository.SaleRepository,
) ProductService {
	return &productService{products: products, recipes: recipes, materials: materials, builds: builds, sales: sales}
}

func (s *productService) bind(ctx context.Context, userID uuid.UUID, p *model.Product, req dto.ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("product name is required")
	}
	if req.SellingPrice.IsNegative() {
		return invalid("selling_price cannot be negative")
	}
	recipeID, err := parseOptionalID(req.RecipeID, "recipe_id")
	if err != nil {
		return err
	}
	if recipeID != nil {
		if _, err := s.recipes.FindByID(ctx, userID, *recipeID); err != nil {
			return lookupErr(err, "recipe")
		}
	}
	p.Name = req.Name
	p.Description = req.Description
	p.RecipeID = recipeID
	p.SellingPrice = req.SellingPrice.Round(costScale)
	return nil
}

func (s *productService) respond(ctx context.Context, userID uuid.UUID, c *coster, p *model.Product) (*dto.ProductResponse, error) {
	cost, err := c.unitCost(s.products.DB().WithContext(ctx), userID, p.RecipeID)
	if err != nil {
		return nil, err
	}
	return productToResponse(p, cost), nil
}

func (s *productService) CreateProduct(ctx context.Context, userID uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{UserID: userID, CurrentStock: decimal.Zero}
	if err := s.bind(ctx, userID, p, req); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.respond(ctx, userID, newCoster(s.recipes, s.materials), p)
}

func (s *productService) UpdateProduct(ctx context.Context, userID, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "product")
	}
	if err := s.bind(ctx, userID, p, req); err != nil {
		return nil, err
	}
	if err := s.products.UpdateDetails(ctx, p); err != nil {
		return nil, err
	}
	return s.respond(ctx, userID, newCoster(s.recipes, s.materials), p)
}

// DeleteProduct is refused while builds or sale items reference the product;
// their reversal needs it.
func (s *productService) DeleteProduct(ctx context.Context, userID, id uuid.UUID) error {
	p, err := s.products.FindByID(ctx, userID, id)
	if err != nil {
		return lookupErr(err, "product")
	}
	n, err := s.builds.CountByProduct(ctx, userID, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return with(ErrInUse, "product has %d builds; delete them first", n)
	}
	n, err = s.sales.CountItemsByProduct(ctx, userID, p.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return with(ErrInUse, "product appears on %d sale items", n)
	}
	return s.products.Delete(ctx, userID, p.ID)
}

func (s *productService) GetProduct(ctx context.Context, userID, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "product")
	}
	return s.respond(ctx, userID, newCoster(s.recipes, s.materials), p)
}

func (s *productService) ListProducts(ctx context.Context, userID uuid.UUID, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	rows, total, err := s.products.List(ctx, userID, repository.ProductFilter{
		Name:  filter.Name,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	resp := &dto.ProductListResponse{
		Data:       make([]dto.ProductResponse, 0, len(rows)),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	c := newCoster(s.recipes, s.materials)
	for i := range rows {
		pr, err := s.respond(ctx, userID, c, &rows[i])
		if err != nil {
			return nil, err
		}
		resp.Data = append(resp.Data, *pr)
	}
	return resp, nil
}
