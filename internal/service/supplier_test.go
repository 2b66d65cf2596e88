package service_test

import (
	"testing"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplier_LifecycleAndPurchaseLink(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	sup, err := l.suppliers.Create(l.ctx, l.user, dto.SupplierRequest{Name: "Mill & Co"})
	require.NoError(t, err)
	assert.True(t, sup.Active)

	flour := l.material(t, "flour")
	res, err := l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("5"), TotalCost: d("10"), SupplierID: &sup.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mill & Co", res.Entry.SupplierName)
	require.NotNil(t, res.Entry.SupplierID)
	assert.Equal(t, sup.ID, *res.Entry.SupplierID)

	require.NoError(t, l.suppliers.Delete(l.ctx, l.user, uuid.MustParse(sup.ID)))
	list, err := l.suppliers.List(l.ctx, l.user)
	require.NoError(t, err)
	assert.Empty(t, list)

	// soft delete keeps history readable
	entry, err := l.purchases.GetPurchase(l.ctx, l.user, uuid.MustParse(res.Entry.ID))
	require.NoError(t, err)
	assert.Equal(t, "Mill & Co", entry.SupplierName)
}

func TestSupplier_ScopedByUser(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	sup, err := l.suppliers.Create(l.ctx, uuid.New(), dto.SupplierRequest{Name: "Elsewhere"})
	require.NoError(t, err)

	_, err = l.suppliers.GetByID(l.ctx, l.user, uuid.MustParse(sup.ID))
	assert.ErrorIs(t, err, service.ErrNotFound)

	flour := l.material(t, "flour")
	_, err = l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("5"), TotalCost: d("10"), SupplierID: &sup.ID,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.True(t, l.reload(t, flour).TotalQuantity.IsZero())

	_, err = l.suppliers.Create(l.ctx, l.user, dto.SupplierRequest{Name: "  "})
	assert.ErrorIs(t, err, service.ErrValidation)
}
