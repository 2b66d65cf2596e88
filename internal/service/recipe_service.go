package service

import (
	"context"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeService manages recipes and prices them on demand. A recipe's cost
// is never stored; every read derives it from the current material averages.
type RecipeService interface {
	CreateRecipe(ctx context.Context, userID uuid.UUID, req dto.RecipeRequest) (*dto.RecipeResponse, error)
	UpdateRecipe(ctx context.Context, userID, id uuid.UUID, req dto.RecipeRequest) (*dto.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, userID, id uuid.UUID) error
	GetRecipe(ctx context.Context, userID, id uuid.UUID) (*dto.RecipeResponse, error)
	ListRecipes(ctx context.Context, userID uuid.UUID, name string) (*dto.RecipeListResponse, error)
	ComputeRecipeCost(ctx context.Context, userID, id uuid.UUID) (*dto.RecipeCostResponse, error)
}

type recipeService struct {
	tx        *TxRunner
	recipes   repository.RecipeRepository
	materials repository.MaterialRepository
	products  repository.ProductRepository
}

func NewRecipeService(
	tx *TxRunner,
	recipes repository.RecipeRepository,
	materials repository.MaterialRepository,
	products repository.ProductRepository,
) RecipeService {
	return &recipeService{tx: tx, recipes: recipes, materials: materials, products: products}
}

type recipeLine struct {
	materialID uuid.UUID
	quantity   decimal.Decimal
	details    string
}

func parseRecipe(req dto.RecipeRequest) (*model.Recipe, []recipeLine, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, invalid("recipe name is required")
	}
	if !req.YieldQuantity.IsPositive() {
		return nil, nil, with(ErrInvalidQuantity, "yield_quantity must be greater than zero")
	}
	lines := make([]recipeLine, 0, len(req.Materials))
	seen := make(map[uuid.UUID]bool, len(req.Materials))
	for i, rm := range req.Materials {
		id, err := parseID(rm.MaterialID, "materials.material_id")
		if err != nil {
			return nil, nil, err
		}
		if seen[id] {
			return nil, nil, invalid("material %s appears more than once", id)
		}
		seen[id] = true
		if !rm.Quantity.IsPositive() {
			return nil, nil, with(ErrInvalidQuantity, "materials[%d].quantity must be greater than zero", i)
		}
		lines = append(lines, recipeLine{materialID: id, quantity: rm.Quantity.Round(costScale), details: rm.Details})
	}
	header := &model.Recipe{
		Name:          req.Name,
		YieldQuantity: req.YieldQuantity.Round(costScale),
		YieldUnit:     req.YieldUnit,
		Notes:         req.Notes,
	}
	return header, lines, nil
}

// requireMaterials fails with NotFound when a line names a material the
// user does not own. Only lines being written are checked: existing lines
// may legitimately point at deleted materials.
func (s *recipeService) requireMaterials(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := s.materials.FindByIDsTx(tx, userID, ids)
	if err != nil {
		return err
	}
	found := snapshotOf(rows)
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return notFound("material " + id.String())
		}
	}
	return nil
}

func (s *recipeService) price(tx *gorm.DB, userID uuid.UUID, r *model.Recipe) (RecipeCost, error) {
	rows, err := s.materials.FindByIDsTx(tx, userID, materialIDs(r))
	if err != nil {
		return RecipeCost{}, err
	}
	return CalculateRecipeCost(r, snapshotOf(rows)), nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, userID uuid.UUID, req dto.RecipeRequest) (*dto.RecipeResponse, error) {
	header, lines, err := parseRecipe(req)
	if err != nil {
		return nil, err
	}

	var out *model.Recipe
	var cost RecipeCost
	err = s.tx.Run(ctx, "recipe.create", func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.materialID)
		}
		if err := s.requireMaterials(tx, userID, ids); err != nil {
			return err
		}
		r := *header
		r.ID = uuid.New()
		r.UserID = userID
		r.Materials = make([]model.RecipeMaterial, 0, len(lines))
		for _, l := range lines {
			r.Materials = append(r.Materials, model.RecipeMaterial{
				RecipeID:   r.ID,
				MaterialID: l.materialID,
				Quantity:   l.quantity,
				Details:    l.details,
			})
		}
		if err := s.recipes.CreateTx(tx, &r); err != nil {
			return err
		}
		c, err := s.price(tx, userID, &r)
		if err != nil {
			return err
		}
		out, cost = &r, c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipeToResponse(out, &cost), nil
}

// ── UpdateRecipe ──────────────────────────────────────────────────────────────
// Three-phase diff of the material lines keyed by material id, in one tx:
//   1. lines whose material is absent from the request are deleted
//   2. lines present in both with a different quantity/details are updated
//   3. new materials are inserted
// Readers never observe an empty recipe in between.

func (s *recipeService) UpdateRecipe(ctx context.Context, userID, id uuid.UUID, req dto.RecipeRequest) (*dto.RecipeResponse, error) {
	header, lines, err := parseRecipe(req)
	if err != nil {
		return nil, err
	}

	var out *model.Recipe
	var cost RecipeCost
	err = s.tx.Run(ctx, "recipe.update", func(tx *gorm.DB) error {
		r, err := s.recipes.FindByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "recipe")
		}
		existing := make(map[uuid.UUID]*model.RecipeMaterial, len(r.Materials))
		for i := range r.Materials {
			existing[r.Materials[i].MaterialID] = &r.Materials[i]
		}
		wanted := make(map[uuid.UUID]recipeLine, len(lines))
		var added []uuid.UUID
		for _, l := range lines {
			wanted[l.materialID] = l
			if _, ok := existing[l.materialID]; !ok {
				added = append(added, l.materialID)
			}
		}
		if err := s.requireMaterials(tx, userID, added); err != nil {
			return err
		}

		// 1. removed
		for _, rm := range r.Materials {
			if _, ok := wanted[rm.MaterialID]; !ok {
				if err := s.recipes.DeleteLineTx(tx, rm.ID); err != nil {
					return err
				}
			}
		}
		// 2. changed
		for _, l := range lines {
			rm, ok := existing[l.materialID]
			if !ok || (rm.Quantity.Equal(l.quantity) && rm.Details == l.details) {
				continue
			}
			rm.Quantity, rm.Details = l.quantity, l.details
			if err := s.recipes.UpdateLineTx(tx, rm); err != nil {
				return err
			}
		}
		// 3. added
		for _, mid := range added {
			l := wanted[mid]
			if err := s.recipes.CreateLineTx(tx, &model.RecipeMaterial{
				RecipeID:   r.ID,
				MaterialID: l.materialID,
				Quantity:   l.quantity,
				Details:    l.details,
			}); err != nil {
				return err
			}
		}

		r.Name = header.Name
		r.YieldQuantity = header.YieldQuantity
		r.YieldUnit = header.YieldUnit
		r.Notes = header.Notes
		if err := s.recipes.UpdateHeaderTx(tx, r); err != nil {
			return err
		}

		fresh, err := s.recipes.FindByIDTx(tx, userID, r.ID)
		if err != nil {
			return err
		}
		c, err := s.price(tx, userID, fresh)
		if err != nil {
			return err
		}
		out, cost = fresh, c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipeToResponse(out, &cost), nil
}

// DeleteRecipe unlinks every product that used the recipe. Builds keep their
// frozen line snapshot and stay reversible.
func (s *recipeService) DeleteRecipe(ctx context.Context, userID, id uuid.UUID) error {
	return s.tx.Run(ctx, "recipe.delete", func(tx *gorm.DB) error {
		r, err := s.recipes.FindByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "recipe")
		}
		if err := s.products.UnlinkRecipeTx(tx, userID, r.ID); err != nil {
			return err
		}
		return s.recipes.DeleteTx(tx, r.ID)
	})
}

func (s *recipeService) GetRecipe(ctx context.Context, userID, id uuid.UUID) (*dto.RecipeResponse, error) {
	r, err := s.recipes.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "recipe")
	}
	cost, err := s.price(s.recipes.DB().WithContext(ctx), userID, r)
	if err != nil {
		return nil, err
	}
	return recipeToResponse(r, &cost), nil
}

func (s *recipeService) ListRecipes(ctx context.Context, userID uuid.UUID, name string) (*dto.RecipeListResponse, error) {
	rows, err := s.recipes.List(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	// One material read prices the whole page.
	var ids []uuid.UUID
	for i := range rows {
		ids = append(ids, materialIDs(&rows[i])...)
	}
	mats, err := s.materials.FindByIDsTx(s.materials.DB().WithContext(ctx), userID, ids)
	if err != nil {
		return nil, err
	}
	snapshot := snapshotOf(mats)

	resp := &dto.RecipeListResponse{Data: make([]dto.RecipeResponse, 0, len(rows)), Total: int64(len(rows))}
	for i := range rows {
		cost := CalculateRecipeCost(&rows[i], snapshot)
		resp.Data = append(resp.Data, *recipeToResponse(&rows[i], &cost))
	}
	return resp, nil
}

// ComputeRecipeCost prices a recipe against a read-only snapshot of the
// current material averages.
func (s *recipeService) ComputeRecipeCost(ctx context.Context, userID, id uuid.UUID) (*dto.RecipeCostResponse, error) {
	r, err := s.recipes.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "recipe")
	}
	cost, err := s.price(s.recipes.DB().WithContext(ctx), userID, r)
	if err != nil {
		return nil, err
	}
	return costToResponse(r.ID, cost), nil
}
