package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/model"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/service"
	"github.com/oliklab/mledger-sub000/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var d = testutil.D

// ── Fixture ───────────────────────────────────────────────────────────────────

type ledger struct {
	db        *gorm.DB
	user      uuid.UUID
	ctx       context.Context
	materials service.MaterialService
	purchases service.PurchaseService
	orders    service.OrderService
	recipes   service.RecipeService
	products  service.ProductService
	builds    service.BuildService
	sales     service.SaleService
	suppliers service.SupplierService
	inventory service.InventoryService
}

func newLedger(t *testing.T, policy service.StockPolicy) *ledger {
	t.Helper()
	db := testutil.NewDB(t)

	materialRepo := repository.NewMaterialRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	productRepo := repository.NewProductRepository(db)
	buildRepo := repository.NewBuildRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	costRepo := repository.NewCostHistoryRepository(db)

	tx := service.NewTxRunner(db, 2, time.Second)
	return &ledger{
		db:        db,
		user:      uuid.New(),
		ctx:       context.Background(),
		materials: service.NewMaterialService(materialRepo, purchaseRepo, costRepo),
		purchases: service.NewPurchaseService(tx, materialRepo, purchaseRepo, orderRepo, supplierRepo, movementRepo, costRepo, nil),
		orders:    service.NewOrderService(tx, materialRepo, purchaseRepo, orderRepo, supplierRepo, movementRepo, costRepo, nil),
		recipes:   service.NewRecipeService(tx, recipeRepo, materialRepo, productRepo),
		products:  service.NewProductService(productRepo, recipeRepo, materialRepo, buildRepo, saleRepo),
		builds:    service.NewBuildService(tx, materialRepo, productRepo, recipeRepo, buildRepo, movementRepo, costRepo, policy, nil),
		sales:     service.NewSaleService(tx, saleRepo, productRepo, recipeRepo, materialRepo, movementRepo),
		suppliers: service.NewSupplierService(supplierRepo),
		inventory: service.NewInventoryService(movementRepo, nil),
	}
}

func (l *ledger) material(t *testing.T, name string) uuid.UUID {
	t.Helper()
	m, err := l.materials.CreateMaterial(l.ctx, l.user, dto.CreateMaterialRequest{
		Name: name, PurchaseUnit: "bag", CraftingUnit: "g", ConversionFactor: d("1000"),
	})
	require.NoError(t, err)
	return uuid.MustParse(m.ID)
}

func (l *ledger) buy(t *testing.T, materialID uuid.UUID, qty, cost string) uuid.UUID {
	t.Helper()
	res, err := l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: materialID.String(), Quantity: d(qty), TotalCost: d(cost),
	})
	require.NoError(t, err)
	return uuid.MustParse(res.Entry.ID)
}

func (l *ledger) reload(t *testing.T, id uuid.UUID) *model.Material {
	t.Helper()
	return testutil.ReloadMaterial(t, l.db, id)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// ── MaterialLedger / PurchaseJournal ─────────────────────────────────────────

func TestPurchase_WeightedAverage(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	l.buy(t, flour, "10", "50")
	l.buy(t, flour, "10", "70")

	m := l.reload(t, flour)
	assertDec(t, "20", m.TotalQuantity)
	assertDec(t, "120", m.TotalCost)
	assertDec(t, "6", m.AvgCost)
	assertDec(t, "20", m.CurrentStock)
}

func TestPurchase_CreateDeleteRoundTrip(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "4", "10")
	before := l.reload(t, flour)

	id := l.buy(t, flour, "3", "9.5")
	res, err := l.purchases.DeletePurchase(l.ctx, l.user, id)
	require.NoError(t, err)
	assert.Nil(t, res.Entry)

	after := l.reload(t, flour)
	assertDec(t, before.TotalQuantity.String(), after.TotalQuantity)
	assertDec(t, before.TotalCost.String(), after.TotalCost)
	assertDec(t, before.AvgCost.String(), after.AvgCost)
	assertDec(t, before.CurrentStock.String(), after.CurrentStock)

	_, err = l.purchases.GetPurchase(l.ctx, l.user, id)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPurchase_DeleteLastEntryZeroesAverage(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	id := l.buy(t, flour, "5", "20")

	_, err := l.purchases.DeletePurchase(l.ctx, l.user, id)
	require.NoError(t, err)

	m := l.reload(t, flour)
	assert.True(t, m.TotalQuantity.IsZero())
	assert.True(t, m.AvgCost.IsZero())
}

func TestPurchase_UpdateEqualsDeleteThenCreate(t *testing.T) {
	// Two identical ledgers: one edits the entry, the other deletes and
	// re-creates it. Both must end in the same state.
	a := newLedger(t, service.StockPolicyAllow)
	b := newLedger(t, service.StockPolicyAllow)
	fa, fb := a.material(t, "flour"), b.material(t, "flour")
	a.buy(t, fa, "10", "50")
	b.buy(t, fb, "10", "50")
	ea := a.buy(t, fa, "10", "70")
	eb := b.buy(t, fb, "10", "70")

	_, err := a.purchases.UpdatePurchase(a.ctx, a.user, ea, dto.PurchaseRequest{
		MaterialID: fa.String(), Quantity: d("4"), TotalCost: d("30"),
	})
	require.NoError(t, err)

	_, err = b.purchases.DeletePurchase(b.ctx, b.user, eb)
	require.NoError(t, err)
	b.buy(t, fb, "4", "30")

	ma, mb := a.reload(t, fa), b.reload(t, fb)
	assertDec(t, mb.TotalQuantity.String(), ma.TotalQuantity)
	assertDec(t, mb.TotalCost.String(), ma.TotalCost)
	assertDec(t, mb.AvgCost.String(), ma.AvgCost)
	assertDec(t, mb.CurrentStock.String(), ma.CurrentStock)
	assertDec(t, "5.714286", ma.AvgCost) // 80 / 14
}

func TestPurchase_UpdateMovesEntryBetweenMaterials(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour, sugar := l.material(t, "flour"), l.material(t, "sugar")
	id := l.buy(t, flour, "10", "50")

	res, err := l.purchases.UpdatePurchase(l.ctx, l.user, id, dto.PurchaseRequest{
		MaterialID: sugar.String(), Quantity: d("10"), TotalCost: d("50"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Materials, 2)

	assert.True(t, l.reload(t, flour).TotalQuantity.IsZero())
	assertDec(t, "10", l.reload(t, sugar).TotalQuantity)
	assertDec(t, "5", l.reload(t, sugar).AvgCost)
}

func TestPurchase_PurchaseUnitsAreConverted(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour") // 1 bag = 1000 g

	res, err := l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("2"), QuantityUnit: dto.UnitPurchase, TotalCost: d("3"),
	})
	require.NoError(t, err)
	assertDec(t, "2000", res.Entry.TotalQuantity)
	assertDec(t, "0.0015", l.reload(t, flour).AvgCost)
}

func TestPurchase_Validation(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	_, err := l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("0"), TotalCost: d("1"),
	})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("1"), TotalCost: d("-2"),
	})
	assert.ErrorIs(t, err, service.ErrInvalidCost)

	_, err = l.purchases.CreatePurchase(l.ctx, l.user, dto.PurchaseRequest{
		MaterialID: uuid.NewString(), Quantity: d("1"), TotalCost: d("1"),
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Nothing above may have touched the ledger.
	assert.True(t, l.reload(t, flour).TotalQuantity.IsZero())
}

func TestPurchase_OtherUsersMaterialIsNotFound(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	_, err := l.purchases.CreatePurchase(l.ctx, uuid.New(), dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("1"), TotalCost: d("1"),
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestApplyPurchase_Modes(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	entry := dto.PurchaseRequest{MaterialID: flour.String(), Quantity: d("10"), TotalCost: d("50")}

	res, err := l.purchases.ApplyPurchase(l.ctx, l.user, dto.ApplyPurchaseRequest{Mode: dto.ApplyCreate, Entry: &entry})
	require.NoError(t, err)
	id := res.Entry.ID

	entry.TotalCost = d("80")
	_, err = l.purchases.ApplyPurchase(l.ctx, l.user, dto.ApplyPurchaseRequest{Mode: dto.ApplyUpdate, EntryID: &id, Entry: &entry})
	require.NoError(t, err)
	assertDec(t, "8", l.reload(t, flour).AvgCost)

	_, err = l.purchases.ApplyPurchase(l.ctx, l.user, dto.ApplyPurchaseRequest{Mode: dto.ApplyDelete, EntryID: &id})
	require.NoError(t, err)
	assert.True(t, l.reload(t, flour).CurrentStock.IsZero())

	_, err = l.purchases.ApplyPurchase(l.ctx, l.user, dto.ApplyPurchaseRequest{Mode: dto.ApplyUpdate})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestPurchase_AuditTrail(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	id := l.buy(t, flour, "10", "50")
	_, err := l.purchases.DeletePurchase(l.ctx, l.user, id)
	require.NoError(t, err)

	hist, err := l.materials.CostHistory(l.ctx, l.user, flour, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hist.Total)

	moves, err := l.inventory.ListMovements(l.ctx, l.user, dto.MovementFilter{ItemID: flour.String()})
	require.NoError(t, err)
	require.EqualValues(t, 2, moves.Total)
	kinds := []string{moves.Data[0].Kind, moves.Data[1].Kind}
	assert.ElementsMatch(t, []string{model.MovePurchase, model.MovePurchaseReversal}, kinds)
}

func TestMaterial_DeleteBlockedByPurchases(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	id := l.buy(t, flour, "1", "1")

	err := l.materials.DeleteMaterial(l.ctx, l.user, flour)
	assert.ErrorIs(t, err, service.ErrInUse)

	_, err = l.purchases.DeletePurchase(l.ctx, l.user, id)
	require.NoError(t, err)
	require.NoError(t, l.materials.DeleteMaterial(l.ctx, l.user, flour))
}

func TestMaterial_LowStockListing(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	m, err := l.materials.CreateMaterial(l.ctx, l.user, dto.CreateMaterialRequest{
		Name: "butter", PurchaseUnit: "kg", CraftingUnit: "g", ConversionFactor: d("1000"), MinimumThreshold: d("100"),
	})
	require.NoError(t, err)

	low, err := l.materials.ListLowStock(l.ctx, l.user)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, m.ID, low[0].ID)

	l.buy(t, uuid.MustParse(m.ID), "500", "4")
	low, err = l.materials.ListLowStock(l.ctx, l.user)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestPurchase_AverageInvariantAcrossSequence(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	a := l.buy(t, flour, "3", "10")
	b := l.buy(t, flour, "7.25", "19.99")
	l.buy(t, flour, "0.5", "1.13")
	_, err := l.purchases.UpdatePurchase(l.ctx, l.user, a, dto.PurchaseRequest{
		MaterialID: flour.String(), Quantity: d("11"), TotalCost: d("23.4"),
	})
	require.NoError(t, err)
	_, err = l.purchases.DeletePurchase(l.ctx, l.user, b)
	require.NoError(t, err)

	m := l.reload(t, flour)
	// avg is rounded to six places, so the product drifts by at most
	// half a unit in the last place times the quantity.
	tolerance := m.TotalQuantity.Mul(d("0.0000005"))
	diff := m.AvgCost.Mul(m.TotalQuantity).Sub(m.TotalCost).Abs()
	assert.True(t, diff.LessThanOrEqual(tolerance), "avg*qty drifted from total by %s", diff)
	assertDec(t, "11.5", m.TotalQuantity)
	assertDec(t, "24.53", m.TotalCost)
}
