package service

import (
	"context"
	"time"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseService is the purchase journal: every call applies, replaces or
// reverses exactly one entry's contribution to its material.
type PurchaseService interface {
	ApplyPurchase(ctx context.Context, userID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.PurchaseResultResponse, error)
	CreatePurchase(ctx context.Context, userID uuid.UUID, req dto.PurchaseRequest) (*dto.PurchaseResultResponse, error)
	UpdatePurchase(ctx context.Context, userID, id uuid.UUID, req dto.PurchaseRequest) (*dto.PurchaseResultResponse, error)
	DeletePurchase(ctx context.Context, userID, id uuid.UUID) (*dto.PurchaseResultResponse, error)
	GetPurchase(ctx context.Context, userID, id uuid.UUID) (*dto.PurchaseResponse, error)
	ListPurchases(ctx context.Context, userID uuid.UUID, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error)
}

type purchaseService struct {
	tx         *TxRunner
	journal    *journal
	purchases  repository.PurchaseRepository
	dispatcher *worker.Dispatcher
}

func NewPurchaseService(
	tx *TxRunner,
	materials repository.MaterialRepository,
	purchases repository.PurchaseRepository,
	orders repository.OrderRepository,
	suppliers repository.SupplierRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
	dispatcher *worker.Dispatcher,
) PurchaseService {
	return &purchaseService{
		tx: tx,
		journal: &journal{
			ledger:    &ledgerStore{materials: materials, movements: movements, costs: costs},
			purchases: purchases,
			orders:    orders,
			suppliers: suppliers,
		},
		purchases:  purchases,
		dispatcher: dispatcher,
	}
}

// ── ApplyPurchase ─────────────────────────────────────────────────────────────
// Single entry point for the three journal modes:
//   create: apply entry
//   update: reverse the stored entry, apply the new values
//   delete: reverse the stored entry and remove it

func (s *purchaseService) ApplyPurchase(ctx context.Context, userID uuid.UUID, req dto.ApplyPurchaseRequest) (*dto.PurchaseResultResponse, error) {
	switch req.Mode {
	case dto.ApplyCreate:
		if req.Entry == nil {
			return nil, invalid("entry is required for create")
		}
		return s.CreatePurchase(ctx, userID, *req.Entry)
	case dto.ApplyUpdate, dto.ApplyDelete:
		if req.EntryID == nil {
			return nil, invalid("entry_id is required for %s", req.Mode)
		}
		id, err := parseID(*req.EntryID, "entry_id")
		if err != nil {
			return nil, err
		}
		if req.Mode == dto.ApplyDelete {
			return s.DeletePurchase(ctx, userID, id)
		}
		if req.Entry == nil {
			return nil, invalid("entry is required for update")
		}
		return s.UpdatePurchase(ctx, userID, id, *req.Entry)
	default:
		return nil, invalid("unknown mode %q", req.Mode)
	}
}

func (s *purchaseService) CreatePurchase(ctx context.Context, userID uuid.UUID, req dto.PurchaseRequest) (*dto.PurchaseResultResponse, error) {
	in, err := parsePurchase(req)
	if err != nil {
		return nil, err
	}

	var entry *model.PurchaseJournalEntry
	var touched []model.Material
	err = s.tx.Run(ctx, "purchase.create", func(tx *gorm.DB) error {
		sess, err := s.journal.ledger.open(tx, userID, []uuid.UUID{in.materialID})
		if err != nil {
			return err
		}
		e, err := s.journal.create(tx, sess, userID, in, nil)
		if err != nil {
			return err
		}
		ms, err := sess.flush()
		if err != nil {
			return err
		}
		entry, touched = e, ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return &dto.PurchaseResultResponse{Entry: purchaseToResponse(entry), Materials: materialsToResponse(touched)}, nil
}

func (s *purchaseService) UpdatePurchase(ctx context.Context, userID, id uuid.UUID, req dto.PurchaseRequest) (*dto.PurchaseResultResponse, error) {
	in, err := parsePurchase(req)
	if err != nil {
		return nil, err
	}

	var entry *model.PurchaseJournalEntry
	var touched []model.Material
	err = s.tx.Run(ctx, "purchase.update", func(tx *gorm.DB) error {
		e, err := s.purchases.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "purchase entry")
		}
		if err := s.journal.checkParent(tx, userID, e); err != nil {
			return err
		}
		// Both the old and the new material are locked; the entry may move.
		sess, err := s.journal.ledger.open(tx, userID, []uuid.UUID{e.MaterialID, in.materialID})
		if err != nil {
			return err
		}
		if !sess.has(e.MaterialID) {
			return integrity(nil, "purchase entry %s references missing material %s", e.ID, e.MaterialID)
		}
		if err := s.journal.update(tx, sess, userID, e, in); err != nil {
			return err
		}
		ms, err := sess.flush()
		if err != nil {
			return err
		}
		entry, touched = e, ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return &dto.PurchaseResultResponse{Entry: purchaseToResponse(entry), Materials: materialsToResponse(touched)}, nil
}

func (s *purchaseService) DeletePurchase(ctx context.Context, userID, id uuid.UUID) (*dto.PurchaseResultResponse, error) {
	var touched []model.Material
	err := s.tx.Run(ctx, "purchase.delete", func(tx *gorm.DB) error {
		e, err := s.purchases.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "purchase entry")
		}
		if err := s.journal.checkParent(tx, userID, e); err != nil {
			return err
		}
		sess, err := s.journal.ledger.open(tx, userID, []uuid.UUID{e.MaterialID})
		if err != nil {
			return err
		}
		if !sess.has(e.MaterialID) {
			return integrity(nil, "purchase entry %s references missing material %s", e.ID, e.MaterialID)
		}
		if err := s.journal.remove(tx, sess, e); err != nil {
			return err
		}
		touched, err = sess.flush()
		return err
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return &dto.PurchaseResultResponse{Materials: materialsToResponse(touched)}, nil
}

func (s *purchaseService) GetPurchase(ctx context.Context, userID, id uuid.UUID) (*dto.PurchaseResponse, error) {
	e, err := s.purchases.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "purchase entry")
	}
	return purchaseToResponse(e), nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, userID uuid.UUID, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error) {
	f := repository.PurchaseFilter{Page: filter.Page, Limit: filter.Limit}
	var err error
	if filter.MaterialID != "" {
		if f.MaterialID, err = parseOptionalID(&filter.MaterialID, "material_id"); err != nil {
			return nil, err
		}
	}
	if filter.PurchaseID != "" {
		if f.PurchaseID, err = parseOptionalID(&filter.PurchaseID, "purchase_id"); err != nil {
			return nil, err
		}
	}
	if f.From, err = parseDay(filter.From, "from", 0); err != nil {
		return nil, err
	}
	if f.To, err = parseDay(filter.To, "to", 1); err != nil {
		return nil, err
	}

	rows, total, err := s.purchases.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	resp := &dto.PurchaseListResponse{
		Data:       make([]dto.PurchaseResponse, 0, len(rows)),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range rows {
		resp.Data = append(resp.Data, *purchaseToResponse(&rows[i]))
	}
	return resp, nil
}

// parseDay parses a YYYY-MM-DD bound, shifted by addDays (1 turns an
// inclusive end date into an exclusive bound).
func parseDay(raw, field string, addDays int) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalid("%s must be a date in YYYY-MM-DD format", field)
	}
	t = t.AddDate(0, 0, addDays)
	return &t, nil
}

// normalizePage mirrors the repository's pagination defaults so list
// responses report the limit actually applied.
func normalizePage(p, l, def, maxLimit int) (int, int) {
	if p < 1 {
		p = 1
	}
	if l < 1 || l > maxLimit {
		l = def
	}
	return p, l
}
