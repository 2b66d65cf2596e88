package service

import (
	"context"
	"time"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// entryInput is a validated purchase line before it is bound to a material.
type entryInput struct {
	materialID      uuid.UUID
	date            time.Time
	quantity        decimal.Decimal
	inPurchaseUnits bool
	cost            decimal.Decimal
	supplierID      *uuid.UUID
	supplierName    string
	invoiceRef      string
	notes           string
}

func (in entryInput) validate() error {
	if !in.quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if !in.cost.IsPositive() {
		return ErrInvalidCost
	}
	return nil
}

func parsePurchase(req dto.PurchaseRequest) (entryInput, error) {
	materialID, err := parseID(req.MaterialID, "material_id")
	if err != nil {
		return entryInput{}, err
	}
	supplierID, err := parseOptionalID(req.SupplierID, "supplier_id")
	if err != nil {
		return entryInput{}, err
	}
	in := entryInput{
		materialID:      materialID,
		date:            dateOr(req.PurchaseDate),
		quantity:        req.Quantity,
		inPurchaseUnits: req.QuantityUnit == dto.UnitPurchase,
		cost:            req.TotalCost,
		supplierID:      supplierID,
		supplierName:    req.SupplierName,
		invoiceRef:      req.InvoiceRef,
		notes:           req.Notes,
	}
	return in, in.validate()
}

// journal implements the reversible purchase entry operations shared by
// standalone purchases and purchase orders. Every method runs on the
// caller's transaction and session; nothing here commits.
type journal struct {
	ledger    *ledgerStore
	purchases repository.PurchaseRepository
	orders    repository.OrderRepository
	suppliers repository.SupplierRepository
}

// fill binds in onto e, converting purchase units to crafting units with the
// locked material's conversion factor.
func (j *journal) fill(tx *gorm.DB, sess *ledgerSession, userID uuid.UUID, e *model.PurchaseJournalEntry, in entryInput) error {
	m, err := sess.require(in.materialID)
	if err != nil {
		return err
	}
	qty := in.quantity
	if in.inPurchaseUnits {
		qty = qty.Mul(m.ConversionFactor)
	}
	qty = qty.Round(costScale)
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}
	cost := in.cost.Round(costScale)

	supplierName := in.supplierName
	if in.supplierID != nil {
		sup, err := j.suppliers.FindByIDTx(tx, userID, *in.supplierID)
		if err != nil {
			return lookupErr(err, "supplier")
		}
		if supplierName == "" {
			supplierName = sup.Name
		}
	}

	e.MaterialID = m.ID
	e.PurchaseDate = in.date
	e.TotalQuantity = qty
	e.TotalCost = cost
	e.AvgCost = averageCost(cost, qty)
	e.SupplierID = in.supplierID
	e.SupplierName = supplierName
	e.InvoiceRef = in.invoiceRef
	e.Notes = in.notes
	return nil
}

func (j *journal) create(tx *gorm.DB, sess *ledgerSession, userID uuid.UUID, in entryInput, orderID *uuid.UUID) (*model.PurchaseJournalEntry, error) {
	e := &model.PurchaseJournalEntry{ID: uuid.New(), UserID: userID, PurchaseID: orderID}
	if err := j.fill(tx, sess, userID, e, in); err != nil {
		return nil, err
	}
	if err := sess.applyPurchase(e, +1); err != nil {
		return nil, err
	}
	if err := j.purchases.CreateTx(tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// update rewrites e from in. The ledger sees remove(old) then apply(new),
// and only when a ledger-relevant field changed.
func (j *journal) update(tx *gorm.DB, sess *ledgerSession, userID uuid.UUID, e *model.PurchaseJournalEntry, in entryInput) error {
	next := *e
	if err := j.fill(tx, sess, userID, &next, in); err != nil {
		return err
	}
	if sameEntry(e, &next) {
		return nil
	}
	if ledgerChanged(e, &next) {
		if err := sess.applyPurchase(e, -1); err != nil {
			return err
		}
		if err := sess.applyPurchase(&next, +1); err != nil {
			return err
		}
	}
	*e = next
	return j.purchases.UpdateTx(tx, e)
}

func (j *journal) remove(tx *gorm.DB, sess *ledgerSession, e *model.PurchaseJournalEntry) error {
	if err := sess.applyPurchase(e, -1); err != nil {
		return err
	}
	return j.purchases.DeleteTx(tx, e.ID)
}

// checkParent fails when an entry claims an order that no longer exists.
func (j *journal) checkParent(tx *gorm.DB, userID uuid.UUID, e *model.PurchaseJournalEntry) error {
	if e.PurchaseID == nil {
		return nil
	}
	ok, err := j.orders.ExistsTx(tx, userID, *e.PurchaseID)
	if err != nil {
		return err
	}
	if !ok {
		return integrity(nil, "purchase entry %s references missing order %s", e.ID, *e.PurchaseID)
	}
	return nil
}

func ledgerChanged(a, b *model.PurchaseJournalEntry) bool {
	return a.MaterialID != b.MaterialID ||
		!a.TotalQuantity.Equal(b.TotalQuantity) ||
		!a.TotalCost.Equal(b.TotalCost)
}

func sameEntry(a, b *model.PurchaseJournalEntry) bool {
	return !ledgerChanged(a, b) &&
		a.PurchaseDate.Equal(b.PurchaseDate) &&
		sameID(a.SupplierID, b.SupplierID) &&
		a.SupplierName == b.SupplierName &&
		a.InvoiceRef == b.InvoiceRef &&
		a.Notes == b.Notes
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// notifyLowStock enqueues one alert per material left below its threshold.
// Best-effort: the ledger transaction has already committed.
func notifyLowStock(ctx context.Context, d *worker.Dispatcher, userID uuid.UUID, ms []model.Material) {
	if d == nil {
		return
	}
	for _, m := range lowStock(ms) {
		err := d.EnqueueLowStock(ctx, worker.LowStockPayload{
			UserID:           userID.String(),
			MaterialID:       m.ID.String(),
			Name:             m.Name,
			CurrentStock:     m.CurrentStock,
			MinimumThreshold: m.MinimumThreshold,
		})
		if err != nil {
			log.Warn().Err(err).Str("material_id", m.ID.String()).Msg("low stock alert not enqueued")
		}
	}
}
