package service_test

import (
	"testing"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderItem(material uuid.UUID, qty, cost string) dto.OrderItemRequest {
	return dto.OrderItemRequest{MaterialID: material.String(), Quantity: d(qty), TotalCost: d(cost)}
}

func TestOrder_CreateAppliesEveryItem(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour, sugar := l.material(t, "flour"), l.material(t, "sugar")

	o, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{
		Name:  "weekly",
		Items: []dto.OrderItemRequest{orderItem(flour, "10", "50"), orderItem(sugar, "4", "8"), orderItem(flour, "10", "70")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Len(t, o.Items, 3)
	for _, it := range o.Items {
		require.NotNil(t, it.PurchaseID)
		assert.Equal(t, o.ID, *it.PurchaseID)
	}

	assertDec(t, "6", l.reload(t, flour).AvgCost)
	assertDec(t, "2", l.reload(t, sugar).AvgCost)
}

func TestOrder_FailingItemRollsBackEverything(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	_, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{
		Name:  "broken",
		Items: []dto.OrderItemRequest{orderItem(flour, "10", "50"), orderItem(uuid.New(), "1", "1")},
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.True(t, l.reload(t, flour).TotalQuantity.IsZero())

	list, err := l.orders.ListOrders(l.ctx, l.user, dto.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestOrder_UpdateDiffsItems(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour, sugar, salt := l.material(t, "flour"), l.material(t, "sugar"), l.material(t, "salt")

	o, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{
		Name:  "weekly",
		Items: []dto.OrderItemRequest{orderItem(flour, "10", "50"), orderItem(sugar, "4", "8")},
	})
	require.NoError(t, err)
	var flourEntry string
	for _, it := range o.Items {
		if it.MaterialID == flour.String() {
			flourEntry = it.ID
		}
	}

	// keep+change flour, drop sugar, add salt
	changed := orderItem(flour, "10", "30")
	changed.ID = &flourEntry
	o, err = l.orders.UpdateOrder(l.ctx, l.user, uuid.MustParse(o.ID), dto.OrderRequest{
		Name:   "weekly (paid)",
		Status: model.OrderCompleted,
		Items:  []dto.OrderItemRequest{changed, orderItem(salt, "2", "1")},
	})
	require.NoError(t, err)
	assert.Equal(t, "weekly (paid)", o.Name)
	assert.Equal(t, model.OrderCompleted, o.Status)
	assert.Len(t, o.Items, 2)

	assertDec(t, "3", l.reload(t, flour).AvgCost)
	assertDec(t, "10", l.reload(t, flour).CurrentStock)
	assert.True(t, l.reload(t, sugar).TotalQuantity.IsZero())
	assertDec(t, "0.5", l.reload(t, salt).AvgCost)
}

func TestOrder_UpdateRejectsForeignEntry(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	loose := l.buy(t, flour, "1", "1")

	o, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{Name: "o", Items: []dto.OrderItemRequest{orderItem(flour, "1", "1")}})
	require.NoError(t, err)

	foreign := orderItem(flour, "5", "5")
	id := loose.String()
	foreign.ID = &id
	_, err = l.orders.UpdateOrder(l.ctx, l.user, uuid.MustParse(o.ID), dto.OrderRequest{Name: "o", Items: []dto.OrderItemRequest{foreign}})
	assert.ErrorIs(t, err, service.ErrValidation)
	assertDec(t, "2", l.reload(t, flour).TotalQuantity)
}

func TestOrder_DeleteCascadeRestoresMaterials(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		l := newLedger(t, service.StockPolicyAllow)
		flour := l.material(t, "flour")
		l.buy(t, flour, "3", "7")
		before := l.reload(t, flour)

		items := make([]dto.OrderItemRequest, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, orderItem(flour, "2.5", "3.3"))
		}
		o, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{Name: "o", Items: items})
		require.NoError(t, err)
		require.NoError(t, l.orders.DeleteOrder(l.ctx, l.user, uuid.MustParse(o.ID)))

		after := l.reload(t, flour)
		assertDec(t, before.TotalQuantity.String(), after.TotalQuantity, "n=%d", n)
		assertDec(t, before.TotalCost.String(), after.TotalCost, "n=%d", n)
		assertDec(t, before.AvgCost.String(), after.AvgCost, "n=%d", n)
		assertDec(t, before.CurrentStock.String(), after.CurrentStock, "n=%d", n)

		_, err = l.orders.GetOrder(l.ctx, l.user, uuid.MustParse(o.ID))
		assert.ErrorIs(t, err, service.ErrNotFound)
	}
}

func TestOrder_ChildEntryEditedDirectly(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	o, err := l.orders.CreateOrder(l.ctx, l.user, dto.OrderRequest{Name: "o", Items: []dto.OrderItemRequest{orderItem(flour, "4", "4")}})
	require.NoError(t, err)

	res, err := l.purchases.UpdatePurchase(l.ctx, l.user, uuid.MustParse(o.Items[0].ID), dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("4"), TotalCost: d("8"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Entry.PurchaseID)
	assert.Equal(t, o.ID, *res.Entry.PurchaseID)
	assertDec(t, "2", l.reload(t, flour).AvgCost)
}
