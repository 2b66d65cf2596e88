package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// costScale is the number of decimal places every stored quantity and cost
// is rounded to. It matches the decimal(20,6) columns.
const costScale = 6

// averageCost is total_cost / total_quantity, or zero when nothing is on
// record. It is the only place the weighted average is computed.
func averageCost(totalCost, totalQty decimal.Decimal) decimal.Decimal {
	if !totalQty.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(totalQty).Round(costScale)
}

// StockPolicy decides whether manufacturing may drive material stock negative.
type StockPolicy string

const (
	StockPolicyAllow  StockPolicy = "allow"
	StockPolicyReject StockPolicy = "reject"
)

// ParseStockPolicy accepts "allow" or "reject" in any case; anything else is
// allow.
func ParseStockPolicy(s string) StockPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(StockPolicyReject)) {
		return StockPolicyReject
	}
	return StockPolicyAllow
}

// ledgerStore opens ledger sessions. It is shared by every service that
// mutates material stock or totals.
type ledgerStore struct {
	materials repository.MaterialRepository
	movements repository.StockMovementRepository
	costs     repository.CostHistoryRepository
}

// ledgerSession holds the material rows locked by one transaction. All
// arithmetic happens on these in-memory rows; flush writes each dirty row
// once, guarded by its version, plus the audit trail.
type ledgerSession struct {
	store  *ledgerStore
	tx     *gorm.DB
	userID uuid.UUID

	rows  map[uuid.UUID]*model.Material
	dirty map[uuid.UUID]bool
	moves []model.StockMovement
	costs []model.MaterialCostHistory
}

// open locks ids (ascending) and returns a session over them. Ids that do not
// exist or belong to another user are simply absent; use require or has.
func (st *ledgerStore) open(tx *gorm.DB, userID uuid.UUID, ids []uuid.UUID) (*ledgerSession, error) {
	rows, err := st.materials.LockForUpdateTx(tx, userID, ids)
	if err != nil {
		return nil, err
	}
	s := &ledgerSession{
		store:  st,
		tx:     tx,
		userID: userID,
		rows:   make(map[uuid.UUID]*model.Material, len(rows)),
		dirty:  make(map[uuid.UUID]bool, len(rows)),
	}
	for i := range rows {
		s.rows[rows[i].ID] = &rows[i]
	}
	return s, nil
}

func (s *ledgerSession) has(id uuid.UUID) bool {
	_, ok := s.rows[id]
	return ok
}

func (s *ledgerSession) require(id uuid.UUID) (*model.Material, error) {
	m, ok := s.rows[id]
	if !ok {
		return nil, notFound(fmt.Sprintf("material %s", id))
	}
	return m, nil
}

// applyPurchase adds (sign=+1) or removes (sign=-1) one journal entry's
// contribution. Update is remove(old) followed by apply(new) on the same
// session, which is exactly the delta new - old.
func (s *ledgerSession) applyPurchase(e *model.PurchaseJournalEntry, sign int) error {
	m, err := s.require(e.MaterialID)
	if err != nil {
		return err
	}
	qty, cost := e.TotalQuantity, e.TotalCost
	kind, reason := model.MovePurchase, "purchase"
	if sign < 0 {
		qty, cost = qty.Neg(), cost.Neg()
		kind, reason = model.MovePurchaseReversal, "purchase_reversal"
	}

	avgBefore, stockBefore := m.AvgCost, m.CurrentStock
	m.TotalQuantity = m.TotalQuantity.Add(qty)
	m.TotalCost = m.TotalCost.Add(cost)
	m.CurrentStock = m.CurrentStock.Add(qty)
	m.AvgCost = averageCost(m.TotalCost, m.TotalQuantity)
	s.dirty[m.ID] = true

	ref := e.ID
	s.moves = append(s.moves, model.StockMovement{
		UserID:      s.userID,
		ItemType:    model.ItemMaterial,
		ItemID:      m.ID,
		Kind:        kind,
		Delta:       qty,
		StockBefore: stockBefore,
		StockAfter:  m.CurrentStock,
		Reason:      reason,
		ReferenceID: &ref,
	})
	s.costs = append(s.costs, model.MaterialCostHistory{
		UserID:             s.userID,
		MaterialID:         m.ID,
		AvgCostBefore:      avgBefore,
		AvgCostAfter:       m.AvgCost,
		TotalQuantityAfter: m.TotalQuantity,
		TotalCostAfter:     m.TotalCost,
		Reason:             reason,
		ReferenceID:        &ref,
	})
	return nil
}

// adjustStock moves physical stock only; totals and average are untouched.
func (s *ledgerSession) adjustStock(id uuid.UUID, delta decimal.Decimal, kind, reason string, ref uuid.UUID) error {
	m, err := s.require(id)
	if err != nil {
		return err
	}
	before := m.CurrentStock
	m.CurrentStock = m.CurrentStock.Add(delta)
	s.dirty[m.ID] = true
	s.moves = append(s.moves, model.StockMovement{
		UserID:      s.userID,
		ItemType:    model.ItemMaterial,
		ItemID:      m.ID,
		Kind:        kind,
		Delta:       delta,
		StockBefore: before,
		StockAfter:  m.CurrentStock,
		Reason:      reason,
		ReferenceID: &ref,
	})
	return nil
}

// flush persists every dirty material and the pending audit rows, and
// returns the snapshots of the materials it wrote (ascending id).
func (s *ledgerSession) flush() ([]model.Material, error) {
	ids := make([]uuid.UUID, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make([]model.Material, 0, len(ids))
	for _, id := range ids {
		m := s.rows[id]
		if err := s.store.materials.UpdateLedgerTx(s.tx, m); err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	for i := range s.moves {
		if err := s.store.movements.CreateTx(s.tx, &s.moves[i]); err != nil {
			return nil, err
		}
	}
	for i := range s.costs {
		if err := s.store.costs.CreateTx(s.tx, &s.costs[i]); err != nil {
			return nil, err
		}
	}
	s.dirty = make(map[uuid.UUID]bool)
	s.moves, s.costs = nil, nil
	return out, nil
}

// lowStock filters the flushed materials down to those now below threshold.
func lowStock(ms []model.Material) []model.Material {
	var out []model.Material
	for _, m := range ms {
		if m.BelowThreshold() {
			out = append(out, m)
		}
	}
	return out
}

// productStock applies a stock delta to a locked product and records the
// movement.
func productStock(tx *gorm.DB, products repository.ProductRepository, movements repository.StockMovementRepository,
	userID uuid.UUID, p *model.Product, delta decimal.Decimal, kind, reason string, ref uuid.UUID) error {
	before := p.CurrentStock
	p.CurrentStock = p.CurrentStock.Add(delta)
	if err := products.UpdateStockTx(tx, p); err != nil {
		return err
	}
	return movements.CreateTx(tx, &model.StockMovement{
		UserID:      userID,
		ItemType:    model.ItemProduct,
		ItemID:      p.ID,
		Kind:        kind,
		Delta:       delta,
		StockBefore: before,
		StockAfter:  p.CurrentStock,
		Reason:      reason,
		ReferenceID: &ref,
	})
}
