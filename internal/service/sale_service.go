package service

import (
	"context"
	"sort"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService drives the sale state machine:
//
//	draft → completed      (Complete, deducts product stock)
//	completed → draft      (Revert, restores stock)
//	completed → cancelled  (Revert, restores stock)
//	draft → cancelled      (CancelDraft, no stock effect)
//
// Item edits are only allowed in draft. cost_per_unit_at_sale is captured
// when an item is created and never recomputed.
type SaleService interface {
	CreateSale(ctx context.Context, userID uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error)
	UpdateDraft(ctx context.Context, userID, id uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error)
	CompleteSale(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error)
	RevertSale(ctx context.Context, userID, id uuid.UUID, status string) (*dto.SaleResponse, error)
	CancelDraft(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error)
	CreateAndCompleteSale(ctx context.Context, userID uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error)
	DeleteSale(ctx context.Context, userID, id uuid.UUID) error
	GetSale(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, userID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	tx        *TxRunner
	sales     repository.SaleRepository
	products  repository.ProductRepository
	recipes   repository.RecipeRepository
	materials repository.MaterialRepository
	movements repository.StockMovementRepository
}

func NewSaleService(
	tx *TxRunner,
	sales repository.SaleRepository,
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	materials repository.MaterialRepository,
	movements repository.StockMovementRepository,
) SaleService {
	return &saleService{
		tx:        tx,
		sales:     sales,
		products:  products,
		recipes:   recipes,
		materials: materials,
		movements: movements,
	}
}

type saleLine struct {
	id        *uuid.UUID
	productID uuid.UUID
	quantity  decimal.Decimal
	price     decimal.Decimal
}

func (l saleLine) subtotal() decimal.Decimal {
	return l.quantity.Mul(l.price).Round(costScale)
}

func parseSale(req dto.SaleRequest) (*model.Sale, []saleLine, error) {
	if len(req.Items) == 0 {
		return nil, nil, invalid("a sale needs at least one item")
	}
	lines := make([]saleLine, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool)
	for i, it := range req.Items {
		id, err := parseOptionalID(it.ID, "items.id")
		if err != nil {
			return nil, nil, err
		}
		if id != nil {
			if seen[*id] {
				return nil, nil, invalid("item %d repeats sale item %s", i, *id)
			}
			seen[*id] = true
		}
		productID, err := parseID(it.ProductID, "items.product_id")
		if err != nil {
			return nil, nil, err
		}
		if !it.Quantity.IsPositive() {
			return nil, nil, with(ErrInvalidQuantity, "items[%d].quantity must be greater than zero", i)
		}
		if it.PricePerUnit.IsNegative() {
			return nil, nil, invalid("items[%d].price_per_unit cannot be negative", i)
		}
		lines = append(lines, saleLine{
			id:        id,
			productID: productID,
			quantity:  it.Quantity.Round(costScale),
			price:     it.PricePerUnit.Round(costScale),
		})
	}
	header := &model.Sale{
		SaleDate:     dateOr(req.SaleDate),
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	}
	return header, lines, nil
}

// newItem resolves the product and captures the cost snapshot.
func (s *saleService) newItem(tx *gorm.DB, userID, saleID uuid.UUID, c *coster, l saleLine) (*model.SaleItem, error) {
	p, err := s.products.FindByIDTx(tx, userID, l.productID)
	if err != nil {
		return nil, lookupErr(err, "product "+l.productID.String())
	}
	cost, err := c.unitCost(tx, userID, p.RecipeID)
	if err != nil {
		return nil, err
	}
	return &model.SaleItem{
		SaleID:            saleID,
		ProductID:         p.ID,
		Quantity:          l.quantity,
		PricePerUnit:      l.price,
		CostPerUnitAtSale: cost,
		Subtotal:          l.subtotal(),
	}, nil
}

func (s *saleService) createTx(tx *gorm.DB, userID uuid.UUID, header *model.Sale, lines []saleLine) (*model.Sale, error) {
	for _, l := range lines {
		if l.id != nil {
			return nil, invalid("items of a new sale cannot reference existing items")
		}
	}
	sale := *header
	sale.ID = uuid.New()
	sale.UserID = userID
	sale.Status = model.SaleDraft
	sale.TotalAmount = decimal.Zero

	c := newCoster(s.recipes, s.materials)
	for _, l := range lines {
		it, err := s.newItem(tx, userID, sale.ID, c, l)
		if err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, *it)
		sale.TotalAmount = sale.TotalAmount.Add(it.Subtotal)
	}
	if err := s.sales.CreateTx(tx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// moveStock applies sign × quantity for every product on the sale, one lock
// and one write per product. Deductions are checked for every product before
// any is written, so a shortage leaves nothing applied.
func (s *saleService) moveStock(tx *gorm.DB, userID uuid.UUID, sale *model.Sale, sign int, kind, reason string) error {
	need := make(map[uuid.UUID]decimal.Decimal)
	for _, it := range sale.Items {
		need[it.ProductID] = need[it.ProductID].Add(it.Quantity)
	}
	ids := make([]uuid.UUID, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	locked, err := s.products.LockForUpdateTx(tx, userID, ids)
	if err != nil {
		return err
	}
	if len(locked) != len(ids) {
		got := make(map[uuid.UUID]bool, len(locked))
		for _, p := range locked {
			got[p.ID] = true
		}
		for _, id := range ids {
			if !got[id] {
				return integrity(nil, "sale %s references missing product %s", sale.ID, id)
			}
		}
	}

	if sign < 0 {
		for _, p := range locked {
			if p.CurrentStock.LessThan(need[p.ID]) {
				return insufficient("product %q has %s on hand, sale needs %s",
					p.Name, p.CurrentStock.String(), need[p.ID].String())
			}
		}
	}
	for i := range locked {
		p := &locked[i]
		delta := need[p.ID]
		if sign < 0 {
			delta = delta.Neg()
		}
		if err := productStock(tx, s.products, s.movements, userID, p, delta, kind, reason, sale.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *saleService) completeTx(tx *gorm.DB, userID uuid.UUID, sale *model.Sale) error {
	if sale.Status != model.SaleDraft {
		return with(ErrIllegalTransition, "only a draft sale can be completed (status is %s)", sale.Status)
	}
	if err := s.moveStock(tx, userID, sale, -1, model.MoveSale, "sale"); err != nil {
		return err
	}
	sale.Status = model.SaleCompleted
	return s.sales.UpdateHeaderTx(tx, sale)
}

func (s *saleService) CreateSale(ctx context.Context, userID uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error) {
	header, lines, err := parseSale(req)
	if err != nil {
		return nil, err
	}
	var sale *model.Sale
	err = s.tx.Run(ctx, "sale.create", func(tx *gorm.DB) error {
		sale, err = s.createTx(tx, userID, header, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// CreateAndCompleteSale records a sale that is already completed: create and
// complete share one transaction.
func (s *saleService) CreateAndCompleteSale(ctx context.Context, userID uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error) {
	header, lines, err := parseSale(req)
	if err != nil {
		return nil, err
	}
	var sale *model.Sale
	err = s.tx.Run(ctx, "sale.create_complete", func(tx *gorm.DB) error {
		created, err := s.createTx(tx, userID, header, lines)
		if err != nil {
			return err
		}
		if err := s.completeTx(tx, userID, created); err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// ── UpdateDraft ───────────────────────────────────────────────────────────────
// Three-phase diff keyed by item id: missing items are deleted, items whose
// quantity or price changed are updated in place (cost snapshot kept), new
// items are inserted with a fresh snapshot. Moving an item to another product
// is a delete plus an insert.

func (s *saleService) UpdateDraft(ctx context.Context, userID, id uuid.UUID, req dto.SaleRequest) (*dto.SaleResponse, error) {
	header, lines, err := parseSale(req)
	if err != nil {
		return nil, err
	}

	var sale *model.Sale
	err = s.tx.Run(ctx, "sale.update", func(tx *gorm.DB) error {
		cur, err := s.sales.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "sale")
		}
		if cur.Status != model.SaleDraft {
			return with(ErrIllegalTransition, "items can only be edited on a draft sale (status is %s)", cur.Status)
		}
		byID := make(map[uuid.UUID]*model.SaleItem, len(cur.Items))
		for i := range cur.Items {
			byID[cur.Items[i].ID] = &cur.Items[i]
		}
		keep := make(map[uuid.UUID]bool, len(lines))
		for _, l := range lines {
			if l.id == nil {
				continue
			}
			old, ok := byID[*l.id]
			if !ok {
				return invalid("item %s does not belong to this sale", *l.id)
			}
			if old.ProductID == l.productID {
				keep[*l.id] = true
			}
		}

		// 1. removed (including items moved to another product)
		for _, it := range cur.Items {
			if !keep[it.ID] {
				if err := s.sales.DeleteItemTx(tx, it.ID); err != nil {
					return err
				}
			}
		}
		// 2. changed
		c := newCoster(s.recipes, s.materials)
		total := decimal.Zero
		for _, l := range lines {
			if l.id == nil || !keep[*l.id] {
				continue
			}
			it := byID[*l.id]
			total = total.Add(l.subtotal())
			if it.Quantity.Equal(l.quantity) && it.PricePerUnit.Equal(l.price) {
				continue
			}
			it.Quantity, it.PricePerUnit, it.Subtotal = l.quantity, l.price, l.subtotal()
			if err := s.sales.UpdateItemTx(tx, it); err != nil {
				return err
			}
		}
		// 3. added
		for _, l := range lines {
			if l.id != nil && keep[*l.id] {
				continue
			}
			it, err := s.newItem(tx, userID, cur.ID, c, l)
			if err != nil {
				return err
			}
			if err := s.sales.CreateItemTx(tx, it); err != nil {
				return err
			}
			total = total.Add(it.Subtotal)
		}

		cur.TotalAmount = total
		cur.SaleDate = header.SaleDate
		cur.CustomerName = header.CustomerName
		cur.Notes = header.Notes
		if err := s.sales.UpdateHeaderTx(tx, cur); err != nil {
			return err
		}
		fresh, err := s.sales.LockByIDTx(tx, userID, cur.ID)
		if err != nil {
			return err
		}
		sale = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) CompleteSale(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error) {
	var sale *model.Sale
	err := s.tx.Run(ctx, "sale.complete", func(tx *gorm.DB) error {
		cur, err := s.sales.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "sale")
		}
		if err := s.completeTx(tx, userID, cur); err != nil {
			return err
		}
		sale = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// RevertSale returns a completed sale's stock and moves it to draft or
// cancelled. Item cost snapshots are untouched.
func (s *saleService) RevertSale(ctx context.Context, userID, id uuid.UUID, status string) (*dto.SaleResponse, error) {
	target := strings.ToLower(status)
	if target != model.SaleDraft && target != model.SaleCancelled {
		return nil, invalid("a sale can only be reverted to draft or cancelled")
	}
	var sale *model.Sale
	err := s.tx.Run(ctx, "sale.revert", func(tx *gorm.DB) error {
		cur, err := s.sales.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "sale")
		}
		if cur.Status != model.SaleCompleted {
			return with(ErrIllegalTransition, "only a completed sale can be reverted (status is %s)", cur.Status)
		}
		if err := s.moveStock(tx, userID, cur, +1, model.MoveSaleReversal, "sale_reversal"); err != nil {
			return err
		}
		cur.Status = target
		if err := s.sales.UpdateHeaderTx(tx, cur); err != nil {
			return err
		}
		sale = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) CancelDraft(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error) {
	var sale *model.Sale
	err := s.tx.Run(ctx, "sale.cancel", func(tx *gorm.DB) error {
		cur, err := s.sales.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "sale")
		}
		if cur.Status != model.SaleDraft {
			return with(ErrIllegalTransition, "only a draft sale can be cancelled directly (status is %s)", cur.Status)
		}
		cur.Status = model.SaleCancelled
		if err := s.sales.UpdateHeaderTx(tx, cur); err != nil {
			return err
		}
		sale = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// DeleteSale removes a draft or cancelled sale. Neither holds stock, so
// nothing is restored.
func (s *saleService) DeleteSale(ctx context.Context, userID, id uuid.UUID) error {
	return s.tx.Run(ctx, "sale.delete", func(tx *gorm.DB) error {
		cur, err := s.sales.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "sale")
		}
		if cur.Status == model.SaleCompleted {
			return with(ErrIllegalTransition, "a completed sale must be reverted before it is deleted")
		}
		return s.sales.DeleteTx(tx, cur.ID)
	})
}

func (s *saleService) GetSale(ctx context.Context, userID, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "sale")
	}
	return saleToResponse(sale), nil
}

func (s *saleService) ListSales(ctx context.Context, userID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	rows, total, err := s.sales.List(ctx, userID, repository.SaleFilter{
		Status: strings.ToLower(filter.Status),
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	resp := &dto.SaleListResponse{
		Data:       make([]dto.SaleResponse, 0, len(rows)),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range rows {
		resp.Data = append(resp.Data, *saleToResponse(&rows[i]))
	}
	return resp, nil
}
