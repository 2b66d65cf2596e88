package service_test

import (
	"testing"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/service"
	"github.com/oliklab/mledger-sub000/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stocked returns a product linked to a recipe whose per-unit cost is 2,
// with qty units built.
func (l *ledger) stocked(t *testing.T, qty string) uuid.UUID {
	t.Helper()
	flour := l.material(t, "flour-"+uuid.NewString()[:4])
	l.buy(t, flour, "1000", "1000")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "2"})
	product := l.product(t, &recipe)
	_, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d(qty)})
	require.NoError(t, err)
	return product
}

func item(product uuid.UUID, qty, price string) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: product.String(), Quantity: d(qty), PricePerUnit: d(price)}
}

func TestSale_CompleteAndRevertRestoresStock(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	cookie := l.stocked(t, "10")

	draft, err := l.sales.CreateSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(cookie, "4", "3")}})
	require.NoError(t, err)
	assert.Equal(t, model.SaleDraft, draft.Status)
	assertDec(t, "12", draft.TotalAmount)
	assertDec(t, "2", draft.Items[0].CostPerUnitAtSale)
	assertDec(t, "10", testutil.ReloadProduct(t, l.db, cookie).CurrentStock)

	id := uuid.MustParse(draft.ID)
	done, err := l.sales.CompleteSale(l.ctx, l.user, id)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCompleted, done.Status)
	assertDec(t, "6", testutil.ReloadProduct(t, l.db, cookie).CurrentStock)

	back, err := l.sales.RevertSale(l.ctx, l.user, id, model.SaleDraft)
	require.NoError(t, err)
	assert.Equal(t, model.SaleDraft, back.Status)
	assertDec(t, "10", testutil.ReloadProduct(t, l.db, cookie).CurrentStock)
	assertDec(t, "2", back.Items[0].CostPerUnitAtSale)
}

func TestSale_SnapshotSurvivesCostChanges(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "10", "10")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "1"})
	cookie := l.product(t, &recipe)

	sale, err := l.sales.CreateSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(cookie, "1", "5")}})
	require.NoError(t, err)
	assertDec(t, "1", sale.Items[0].CostPerUnitAtSale)

	l.buy(t, flour, "10", "50") // average moves to 3
	itemID := sale.Items[0].ID
	updated, err := l.sales.UpdateDraft(l.ctx, l.user, uuid.MustParse(sale.ID), dto.SaleRequest{
		Items: []dto.SaleItemRequest{
			{ID: &itemID, ProductID: cookie.String(), Quantity: d("2"), PricePerUnit: d("5")},
			item(cookie, "1", "6"),
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assertDec(t, "16", updated.TotalAmount)
	for _, it := range updated.Items {
		if it.ID == itemID {
			assertDec(t, "1", it.CostPerUnitAtSale, "existing item keeps its snapshot")
			assertDec(t, "2", it.Quantity)
		} else {
			assertDec(t, "3", it.CostPerUnitAtSale, "new item takes the current cost")
		}
	}
}

func TestSale_ShortageRejectsWholeSale(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	plenty := l.stocked(t, "10")
	scarce := l.stocked(t, "1")

	_, err := l.sales.CreateAndCompleteSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{
		item(plenty, "5", "1"),
		item(scarce, "2", "1"),
	}})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assertDec(t, "10", testutil.ReloadProduct(t, l.db, plenty).CurrentStock)
	assertDec(t, "1", testutil.ReloadProduct(t, l.db, scarce).CurrentStock)

	list, err := l.sales.ListSales(l.ctx, l.user, dto.SaleFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Total, "the rolled back sale must not exist")
}

func TestSale_QuantitiesAggregatePerProduct(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	cookie := l.stocked(t, "5")

	// Each line fits on its own; together they do not.
	_, err := l.sales.CreateAndCompleteSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{
		item(cookie, "3", "1"),
		item(cookie, "3", "1"),
	}})
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assertDec(t, "5", testutil.ReloadProduct(t, l.db, cookie).CurrentStock)
}

func TestSale_IllegalTransitions(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	cookie := l.stocked(t, "5")
	sale, err := l.sales.CreateAndCompleteSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(cookie, "1", "1")}})
	require.NoError(t, err)
	id := uuid.MustParse(sale.ID)

	_, err = l.sales.CompleteSale(l.ctx, l.user, id)
	assert.ErrorIs(t, err, service.ErrIllegalTransition)

	_, err = l.sales.UpdateDraft(l.ctx, l.user, id, dto.SaleRequest{Items: []dto.SaleItemRequest{item(cookie, "2", "1")}})
	assert.ErrorIs(t, err, service.ErrIllegalTransition)

	_, err = l.sales.CancelDraft(l.ctx, l.user, id)
	assert.ErrorIs(t, err, service.ErrIllegalTransition)

	err = l.sales.DeleteSale(l.ctx, l.user, id)
	assert.ErrorIs(t, err, service.ErrIllegalTransition)

	_, err = l.sales.RevertSale(l.ctx, l.user, id, model.SaleCompleted)
	assert.ErrorIs(t, err, service.ErrValidation)

	cancelled, err := l.sales.RevertSale(l.ctx, l.user, id, model.SaleCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, cancelled.Status)
	assertDec(t, "5", testutil.ReloadProduct(t, l.db, cookie).CurrentStock)

	_, err = l.sales.RevertSale(l.ctx, l.user, id, model.SaleDraft)
	assert.ErrorIs(t, err, service.ErrIllegalTransition)

	require.NoError(t, l.sales.DeleteSale(l.ctx, l.user, id))
	_, err = l.sales.GetSale(l.ctx, l.user, id)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSale_ProductWithoutRecipeHasZeroCost(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	p := testutil.Product(t, l.db, l.user, nil, "3")

	sale, err := l.sales.CreateAndCompleteSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(p.ID, "3", "2")}})
	require.NoError(t, err)
	assert.True(t, sale.Items[0].CostPerUnitAtSale.IsZero())
	assert.True(t, testutil.ReloadProduct(t, l.db, p.ID).CurrentStock.IsZero())
}

func TestSale_Validation(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	cookie := l.stocked(t, "1")

	_, err := l.sales.CreateSale(l.ctx, l.user, dto.SaleRequest{})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = l.sales.CreateSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(cookie, "0", "1")}})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = l.sales.CreateSale(l.ctx, l.user, dto.SaleRequest{Items: []dto.SaleItemRequest{item(uuid.New(), "1", "1")}})
	assert.ErrorIs(t, err, service.ErrNotFound)
}
