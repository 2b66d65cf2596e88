package service

import (
	"context"
	"errors"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BuildService turns material stock into product stock. Each build freezes
// its per-material consumption so it can be reversed exactly, whatever
// happens to the recipe later.
type BuildService interface {
	Build(ctx context.Context, userID uuid.UUID, req dto.BuildRequest) (*dto.BuildResponse, error)
	DeleteBuild(ctx context.Context, userID, id uuid.UUID) error
	GetBuild(ctx context.Context, userID, id uuid.UUID) (*dto.BuildResponse, error)
	ListBuilds(ctx context.Context, userID uuid.UUID, filter dto.BuildFilter) (*dto.BuildListResponse, error)
}

type buildService struct {
	tx         *TxRunner
	ledger     *ledgerStore
	products   repository.ProductRepository
	recipes    repository.RecipeRepository
	builds     repository.BuildRepository
	movements  repository.StockMovementRepository
	policy     StockPolicy
	dispatcher *worker.Dispatcher
}

func NewBuildService(
	tx *TxRunner,
	materials repository.MaterialRepository,
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	builds repository.BuildRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
	policy StockPolicy,
	dispatcher *worker.Dispatcher,
) BuildService {
	return &buildService{
		tx:         tx,
		ledger:     &ledgerStore{materials: materials, movements: movements, costs: costs},
		products:   products,
		recipes:    recipes,
		builds:     builds,
		movements:  movements,
		policy:     policy,
		dispatcher: dispatcher,
	}
}

// ── Build ─────────────────────────────────────────────────────────────────────
//   1. Resolve product and recipe; scale = quantity / yield
//   2. Lock materials (ascending id), then the product
//   3. consumption = line.quantity × scale; material stock -= consumption
//      (averages untouched), cost += consumption × avg_cost
//   4. product stock += quantity; insert build + frozen lines
// Recipe lines whose material is gone are skipped and reported.

func (s *buildService) Build(ctx context.Context, userID uuid.UUID, req dto.BuildRequest) (*dto.BuildResponse, error) {
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	qty := req.Quantity.Round(costScale)

	var build *model.ProductBuild
	var missing []uuid.UUID
	var touched []model.Material
	err = s.tx.Run(ctx, "build.create", func(tx *gorm.DB) error {
		p, err := s.products.FindByIDTx(tx, userID, productID)
		if err != nil {
			return lookupErr(err, "product")
		}
		if p.RecipeID == nil {
			return ErrNoRecipeLinked
		}
		recipe, err := s.recipes.FindByIDTx(tx, userID, *p.RecipeID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoRecipeLinked
		}
		if err != nil {
			return err
		}
		if !recipe.YieldQuantity.IsPositive() {
			return with(ErrInvalidQuantity, "recipe yield must be greater than zero")
		}

		sess, err := s.ledger.open(tx, userID, materialIDs(recipe))
		if err != nil {
			return err
		}
		locked, err := s.products.LockForUpdateTx(tx, userID, []uuid.UUID{p.ID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return notFound("product")
		}
		p = &locked[0]
		if p.RecipeID == nil || *p.RecipeID != recipe.ID {
			// Relinked between the read and the lock; retry on fresh state.
			return conflict(nil)
		}

		b := &model.ProductBuild{
			ID:               uuid.New(),
			UserID:           userID,
			ProductID:        p.ID,
			RecipeID:         &recipe.ID,
			QuantityBuilt:    qty,
			TotalCostAtBuild: decimal.Zero,
			Notes:            req.Notes,
		}
		var skipped []uuid.UUID
		for _, rm := range recipe.Materials {
			m, ok := sess.rows[rm.MaterialID]
			if !ok {
				skipped = append(skipped, rm.MaterialID)
				continue
			}
			consumed := rm.Quantity.Mul(qty).Div(recipe.YieldQuantity).Round(costScale)
			if s.policy == StockPolicyReject && m.CurrentStock.LessThan(consumed) {
				return insufficient("material %q has %s on hand, build needs %s",
					m.Name, m.CurrentStock.String(), consumed.String())
			}
			lineCost := consumed.Mul(m.AvgCost).Round(costScale)
			b.Lines = append(b.Lines, model.ProductBuildLine{
				BuildID:          b.ID,
				MaterialID:       m.ID,
				MaterialName:     m.Name,
				QuantityConsumed: consumed,
				AvgCostAtBuild:   m.AvgCost,
				LineCost:         lineCost,
			})
			b.TotalCostAtBuild = b.TotalCostAtBuild.Add(lineCost)
			if err := sess.adjustStock(m.ID, consumed.Neg(), model.MoveBuildConsume, "build", b.ID); err != nil {
				return err
			}
		}

		if err := productStock(tx, s.products, s.movements, userID, p, qty, model.MoveBuildProduce, "build", b.ID); err != nil {
			return err
		}
		if err := s.builds.CreateTx(tx, b); err != nil {
			return err
		}
		ms, err := sess.flush()
		if err != nil {
			return err
		}
		build, missing, touched = b, skipped, ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	resp := buildToResponse(build)
	for _, id := range missing {
		resp.MissingMaterialIDs = append(resp.MissingMaterialIDs, id.String())
	}
	return resp, nil
}

// ── DeleteBuild ───────────────────────────────────────────────────────────────
// Replays the frozen lines in reverse. The current recipe is never read.

func (s *buildService) DeleteBuild(ctx context.Context, userID, id uuid.UUID) error {
	var touched []model.Material
	err := s.tx.Run(ctx, "build.delete", func(tx *gorm.DB) error {
		b, err := s.builds.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "build")
		}
		ids := make([]uuid.UUID, 0, len(b.Lines))
		for _, l := range b.Lines {
			ids = append(ids, l.MaterialID)
		}
		sess, err := s.ledger.open(tx, userID, ids)
		if err != nil {
			return err
		}
		locked, err := s.products.LockForUpdateTx(tx, userID, []uuid.UUID{b.ProductID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return integrity(nil, "build %s references missing product %s", b.ID, b.ProductID)
		}
		p := &locked[0]
		if p.CurrentStock.LessThan(b.QuantityBuilt) {
			return insufficient("product %q has %s on hand, reversing the build needs %s",
				p.Name, p.CurrentStock.String(), b.QuantityBuilt.String())
		}

		for _, l := range b.Lines {
			if !sess.has(l.MaterialID) {
				return integrity(nil, "build %s consumed material %s which no longer exists", b.ID, l.MaterialID)
			}
			if err := sess.adjustStock(l.MaterialID, l.QuantityConsumed, model.MoveBuildReversal, "build_reversal", b.ID); err != nil {
				return err
			}
		}
		if err := productStock(tx, s.products, s.movements, userID, p, b.QuantityBuilt.Neg(), model.MoveBuildReversal, "build_reversal", b.ID); err != nil {
			return err
		}
		if err := s.builds.DeleteTx(tx, b.ID); err != nil {
			return err
		}
		touched, err = sess.flush()
		return err
	})
	if err != nil {
		return err
	}
	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return nil
}

func (s *buildService) GetBuild(ctx context.Context, userID, id uuid.UUID) (*dto.BuildResponse, error) {
	b, err := s.builds.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "build")
	}
	return buildToResponse(b), nil
}

func (s *buildService) ListBuilds(ctx context.Context, userID uuid.UUID, filter dto.BuildFilter) (*dto.BuildListResponse, error) {
	f := repository.BuildFilter{Page: filter.Page, Limit: filter.Limit}
	if filter.ProductID != "" {
		id, err := parseOptionalID(&filter.ProductID, "product_id")
		if err != nil {
			return nil, err
		}
		f.ProductID = id
	}
	rows, total, err := s.builds.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	resp := &dto.BuildListResponse{
		Data:       make([]dto.BuildResponse, 0, len(rows)),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range rows {
		resp.Data = append(resp.Data, *buildToResponse(&rows[i]))
	}
	return resp, nil
}
