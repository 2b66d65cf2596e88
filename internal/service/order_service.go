package service

import (
	"context"
	"strings"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService groups purchase entries under one header. Every call is one
// transaction: either all child entries reach the ledger or none do.
type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req dto.OrderRequest) (*dto.OrderResponse, error)
	UpdateOrder(ctx context.Context, userID, id uuid.UUID, req dto.OrderRequest) (*dto.OrderResponse, error)
	DeleteOrder(ctx context.Context, userID, id uuid.UUID) error
	GetOrder(ctx context.Context, userID, id uuid.UUID) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, userID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error)
}

type orderService struct {
	tx         *TxRunner
	journal    *journal
	orders     repository.OrderRepository
	purchases  repository.PurchaseRepository
	dispatcher *worker.Dispatcher
}

func NewOrderService(
	tx *TxRunner,
	materials repository.MaterialRepository,
	purchases repository.PurchaseRepository,
	orders repository.OrderRepository,
	suppliers repository.SupplierRepository,
	movements repository.StockMovementRepository,
	costs repository.CostHistoryRepository,
	dispatcher *worker.Dispatcher,
) OrderService {
	return &orderService{
		tx: tx,
		journal: &journal{
			ledger:    &ledgerStore{materials: materials, movements: movements, costs: costs},
			purchases: purchases,
			orders:    orders,
			suppliers: suppliers,
		},
		orders:     orders,
		purchases:  purchases,
		dispatcher: dispatcher,
	}
}

type orderItem struct {
	id *uuid.UUID
	in entryInput
}

// parseOrder validates the header and every item before anything is locked.
func parseOrder(req dto.OrderRequest) (*model.PurchaseOrder, []orderItem, error) {
	status := strings.ToLower(req.Status)
	switch status {
	case "":
		status = model.OrderPending
	case model.OrderPending, model.OrderCompleted, model.OrderUnpaid, model.OrderCancelled:
	default:
		return nil, nil, invalid("unknown order status %q", req.Status)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, invalid("order name is required")
	}
	header := &model.PurchaseOrder{
		Name:         req.Name,
		PurchaseDate: dateOr(req.PurchaseDate),
		Status:       status,
		Notes:        req.Notes,
	}

	items := make([]orderItem, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool)
	for i, it := range req.Items {
		id, err := parseOptionalID(it.ID, "items.id")
		if err != nil {
			return nil, nil, err
		}
		if id != nil {
			if seen[*id] {
				return nil, nil, invalid("item %d repeats entry %s", i, *id)
			}
			seen[*id] = true
		}
		in, err := parsePurchase(dto.PurchaseRequest{
			MaterialID:   it.MaterialID,
			PurchaseDate: &header.PurchaseDate,
			Quantity:     it.Quantity,
			QuantityUnit: it.QuantityUnit,
			TotalCost:    it.TotalCost,
			SupplierID:   it.SupplierID,
			SupplierName: it.SupplierName,
			InvoiceRef:   it.InvoiceRef,
			Notes:        it.Notes,
		})
		if err != nil {
			if le, ok := err.(*Error); ok {
				return nil, nil, with(le, "item %d: %s", i, le.Msg)
			}
			return nil, nil, err
		}
		items = append(items, orderItem{id: id, in: in})
	}
	return header, items, nil
}

// ── CreateOrder ───────────────────────────────────────────────────────────────
//   1. Validate header and items
//   2. BEGIN TX: insert header, lock every material, create each entry
//   3. COMMIT (any failure rolls back the header and every entry)

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, req dto.OrderRequest) (*dto.OrderResponse, error) {
	header, items, err := parseOrder(req)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.id != nil {
			return nil, invalid("items of a new order cannot reference existing entries")
		}
	}

	var order *model.PurchaseOrder
	var touched []model.Material
	err = s.tx.Run(ctx, "order.create", func(tx *gorm.DB) error {
		o := *header
		o.ID = uuid.New()
		o.UserID = userID
		if err := s.orders.CreateTx(tx, &o); err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.in.materialID)
		}
		sess, err := s.journal.ledger.open(tx, userID, ids)
		if err != nil {
			return err
		}
		for _, it := range items {
			e, err := s.journal.create(tx, sess, userID, it.in, &o.ID)
			if err != nil {
				return err
			}
			o.Entries = append(o.Entries, *e)
		}
		ms, err := sess.flush()
		if err != nil {
			return err
		}
		order, touched = &o, ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return orderToResponse(order), nil
}

// ── UpdateOrder ───────────────────────────────────────────────────────────────
// Three-phase diff keyed by entry id, in one transaction:
//   1. entries missing from the request are reversed and removed
//   2. entries present with changed values are replaced (reverse old, apply new)
//   3. items without an id are created
// The header is rewritten unconditionally.

func (s *orderService) UpdateOrder(ctx context.Context, userID, id uuid.UUID, req dto.OrderRequest) (*dto.OrderResponse, error) {
	header, items, err := parseOrder(req)
	if err != nil {
		return nil, err
	}

	var order *model.PurchaseOrder
	var touched []model.Material
	err = s.tx.Run(ctx, "order.update", func(tx *gorm.DB) error {
		o, err := s.orders.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "purchase order")
		}
		existing, err := s.purchases.FindByOrderTx(tx, userID, o.ID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*model.PurchaseJournalEntry, len(existing))
		ids := make([]uuid.UUID, 0, len(existing)+len(items))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
			ids = append(ids, existing[i].MaterialID)
		}
		keep := make(map[uuid.UUID]bool, len(items))
		for _, it := range items {
			if it.id != nil {
				if _, ok := byID[*it.id]; !ok {
					return invalid("entry %s does not belong to this order", *it.id)
				}
				keep[*it.id] = true
			}
			ids = append(ids, it.in.materialID)
		}

		sess, err := s.journal.ledger.open(tx, userID, ids)
		if err != nil {
			return err
		}
		for i := range existing {
			if !sess.has(existing[i].MaterialID) {
				return integrity(nil, "purchase entry %s references missing material %s", existing[i].ID, existing[i].MaterialID)
			}
		}

		// 1. removed
		for i := range existing {
			if !keep[existing[i].ID] {
				if err := s.journal.remove(tx, sess, &existing[i]); err != nil {
					return err
				}
			}
		}
		// 2. changed
		for _, it := range items {
			if it.id == nil {
				continue
			}
			if err := s.journal.update(tx, sess, userID, byID[*it.id], it.in); err != nil {
				return err
			}
		}
		// 3. added
		for _, it := range items {
			if it.id != nil {
				continue
			}
			if _, err := s.journal.create(tx, sess, userID, it.in, &o.ID); err != nil {
				return err
			}
		}

		o.Name = header.Name
		o.PurchaseDate = header.PurchaseDate
		o.Status = header.Status
		o.Notes = header.Notes
		if err := s.orders.UpdateHeaderTx(tx, o); err != nil {
			return err
		}

		ms, err := sess.flush()
		if err != nil {
			return err
		}
		if o.Entries, err = s.purchases.FindByOrderTx(tx, userID, o.ID); err != nil {
			return err
		}
		order, touched = o, ms
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifyLowStock(ctx, s.dispatcher, userID, touched)
	return orderToResponse(order), nil
}

// ── DeleteOrder ───────────────────────────────────────────────────────────────
// Children first: every entry is reversed and removed, then the header goes.

func (s *orderService) DeleteOrder(ctx context.Context, userID, id uuid.UUID) error {
	var touched []model.Material
	err := s.tx.Run(ctx, "order.delete", func(tx *gorm.DB) error {
		o, err := s.orders.LockByIDTx(tx, userID, id)
		if err != nil {
			return lookupErr(err, "purchase order")
		}
		entries, err := s.purchases.FindByOrderTx(tx, userID, o.ID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.MaterialID)
		}
		sess, err := s.journal.ledger.open(tx, userID, ids)
		if err != nil {
			return err
		}
		for i := range entries {
			if !sess.has(entries[i].MaterialID) {
				return integrity(nil, "purchase entry %s references missing material %s", entries[i].ID, entries[i].MaterialID)
			}
			if err := s.journal.remove(tx, sess, &entries[i]); err != nil {
				return err
			}
		}
		if err := s.orders.DeleteTx(tx, o.ID); err != nil {
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

func (s *orderService) GetOrder(ctx context.Context, userID, id uuid.UUID) (*dto.OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookupErr(err, "purchase order")
	}
	return orderToResponse(o), nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	rows, total, err := s.orders.List(ctx, userID, repository.OrderFilter{
		Status: strings.ToLower(filter.Status),
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	p, limit := normalizePage(filter.Page, filter.Limit, 50, 500)
	resp := &dto.OrderListResponse{
		Data:       make([]dto.OrderResponse, 0, len(rows)),
		Total:      total,
		Page:       p,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
	for i := range rows {
		resp.Data = append(resp.Data, *orderToResponse(&rows[i]))
	}
	return resp, nil
}
