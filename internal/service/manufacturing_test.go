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

func (l *ledger) recipe(t *testing.T, yield string, lines map[uuid.UUID]string) uuid.UUID {
	t.Helper()
	req := dto.RecipeRequest{Name: "batch", YieldQuantity: d(yield), YieldUnit: "pcs"}
	for id, qty := range lines {
		req.Materials = append(req.Materials, dto.RecipeMaterialRequest{MaterialID: id.String(), Quantity: d(qty)})
	}
	r, err := l.recipes.CreateRecipe(l.ctx, l.user, req)
	require.NoError(t, err)
	return uuid.MustParse(r.ID)
}

func (l *ledger) product(t *testing.T, recipeID *uuid.UUID) uuid.UUID {
	t.Helper()
	req := dto.ProductRequest{Name: "cookie", SellingPrice: d("2.5")}
	if recipeID != nil {
		s := recipeID.String()
		req.RecipeID = &s
	}
	p, err := l.products.CreateProduct(l.ctx, l.user, req)
	require.NoError(t, err)
	return uuid.MustParse(p.ID)
}

func TestBuild_ConcreteScenario(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	l.buy(t, flour, "10", "50")
	m := l.reload(t, flour)
	assertDec(t, "5", m.AvgCost)
	assertDec(t, "10", m.CurrentStock)

	l.buy(t, flour, "10", "70")
	m = l.reload(t, flour)
	assertDec(t, "20", m.TotalQuantity)
	assertDec(t, "120", m.TotalCost)
	assertDec(t, "6", m.AvgCost)
	assertDec(t, "20", m.CurrentStock)

	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "5"})
	product := l.product(t, &recipe)

	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	require.NoError(t, err)
	assertDec(t, "30", b.TotalCostAtBuild)
	require.Len(t, b.Lines, 1)
	assertDec(t, "5", b.Lines[0].QuantityConsumed)
	assertDec(t, "6", b.Lines[0].AvgCostAtBuild)

	m = l.reload(t, flour)
	assertDec(t, "15", m.CurrentStock)
	assertDec(t, "6", m.AvgCost)
	assertDec(t, "20", m.TotalQuantity)
	assertDec(t, "1", testutil.ReloadProduct(t, l.db, product).CurrentStock)

	require.NoError(t, l.builds.DeleteBuild(l.ctx, l.user, uuid.MustParse(b.ID)))
	m = l.reload(t, flour)
	assertDec(t, "20", m.CurrentStock)
	assertDec(t, "6", m.AvgCost)
	assert.True(t, testutil.ReloadProduct(t, l.db, product).CurrentStock.IsZero())
}

func TestBuild_ScalesByYield(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour, sugar := l.material(t, "flour"), l.material(t, "sugar")
	l.buy(t, flour, "1000", "2")
	l.buy(t, sugar, "500", "1.5")

	recipe := l.recipe(t, "12", map[uuid.UUID]string{flour: "300", sugar: "100"})
	product := l.product(t, &recipe)

	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("24")})
	require.NoError(t, err)
	assertDec(t, "400", l.reload(t, flour).CurrentStock)
	assertDec(t, "300", l.reload(t, sugar).CurrentStock)
	// 600 g × 0.002 + 200 g × 0.003
	assertDec(t, "1.8", b.TotalCostAtBuild)
}

func TestBuild_ReversalUsesFrozenLines(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour, sugar := l.material(t, "flour"), l.material(t, "sugar")
	l.buy(t, flour, "100", "100")
	l.buy(t, sugar, "100", "100")

	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "10"})
	product := l.product(t, &recipe)
	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("2")})
	require.NoError(t, err)

	// Rewrite the recipe after the build; the reversal must not notice.
	_, err = l.recipes.UpdateRecipe(l.ctx, l.user, recipe, dto.RecipeRequest{
		Name: "batch", YieldQuantity: d("1"), YieldUnit: "pcs",
		Materials: []dto.RecipeMaterialRequest{{MaterialID: sugar.String(), Quantity: d("7")}},
	})
	require.NoError(t, err)

	require.NoError(t, l.builds.DeleteBuild(l.ctx, l.user, uuid.MustParse(b.ID)))
	assertDec(t, "100", l.reload(t, flour).CurrentStock)
	assertDec(t, "100", l.reload(t, sugar).CurrentStock)
}

func TestBuild_SkipsMissingMaterials(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "100", "100")
	ghost := testutil.Material(t, l.db, l.user, "ghost")

	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "10", ghost.ID: "3"})
	require.NoError(t, l.materials.DeleteMaterial(l.ctx, l.user, ghost.ID))
	product := l.product(t, &recipe)

	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	require.NoError(t, err)
	assert.Equal(t, []string{ghost.ID.String()}, b.MissingMaterialIDs)
	require.Len(t, b.Lines, 1)
	assertDec(t, "10", b.TotalCostAtBuild)
}

func TestBuild_NegativeStockPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy service.StockPolicy
		wantOK bool
	}{
		{service.StockPolicyAllow, true},
		{service.StockPolicyReject, false},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			l := newLedger(t, tc.policy)
			flour := l.material(t, "flour")
			l.buy(t, flour, "3", "3")
			recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "5"})
			product := l.product(t, &recipe)

			_, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
			if tc.wantOK {
				require.NoError(t, err)
				assertDec(t, "-2", l.reload(t, flour).CurrentStock)
				return
			}
			assert.ErrorIs(t, err, service.ErrInsufficientStock)
			assertDec(t, "3", l.reload(t, flour).CurrentStock)
			assert.True(t, testutil.ReloadProduct(t, l.db, product).CurrentStock.IsZero())
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	bare := l.product(t, nil)

	_, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: bare.String(), Quantity: d("1")})
	assert.ErrorIs(t, err, service.ErrNoRecipeLinked)

	_, err = l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: bare.String(), Quantity: d("0")})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: uuid.NewString(), Quantity: d("1")})
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = l.builds.DeleteBuild(l.ctx, l.user, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteBuild_RejectedOnceProductSold(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "100", "100")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "1"})
	product := l.product(t, &recipe)

	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("5")})
	require.NoError(t, err)
	_, err = l.sales.CreateAndCompleteSale(l.ctx, l.user, dto.SaleRequest{
		Items: []dto.SaleItemRequest{{ProductID: product.String(), Quantity: d("2"), PricePerUnit: d("3")}},
	})
	require.NoError(t, err)

	err = l.builds.DeleteBuild(l.ctx, l.user, uuid.MustParse(b.ID))
	assert.ErrorIs(t, err, service.ErrInsufficientStock)
	assertDec(t, "95", l.reload(t, flour).CurrentStock)
}

func TestDeleteBuild_VanishedMaterialIsIntegrity(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "1"})
	product := l.product(t, &recipe)

	b, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	require.NoError(t, err)
	require.NoError(t, l.materials.DeleteMaterial(l.ctx, l.user, flour))

	err = l.builds.DeleteBuild(l.ctx, l.user, uuid.MustParse(b.ID))
	assert.ErrorIs(t, err, service.ErrIntegrity)
	assertDec(t, "1", testutil.ReloadProduct(t, l.db, product).CurrentStock)
}

// ── Recipes / products ───────────────────────────────────────────────────────

func TestRecipe_CostFollowsAverages(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "10", "50")
	recipe := l.recipe(t, "4", map[uuid.UUID]string{flour: "2"})

	cost, err := l.recipes.ComputeRecipeCost(l.ctx, l.user, recipe)
	require.NoError(t, err)
	assertDec(t, "10", cost.TotalCost)
	assertDec(t, "2.5", cost.CostPerYieldUnit)

	l.buy(t, flour, "10", "70")
	cost, err = l.recipes.ComputeRecipeCost(l.ctx, l.user, recipe)
	require.NoError(t, err)
	assertDec(t, "12", cost.TotalCost)
}

func TestRecipe_Validation(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")

	_, err := l.recipes.CreateRecipe(l.ctx, l.user, dto.RecipeRequest{Name: "r", YieldQuantity: d("0"), YieldUnit: "pcs"})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = l.recipes.CreateRecipe(l.ctx, l.user, dto.RecipeRequest{
		Name: "r", YieldQuantity: d("1"), YieldUnit: "pcs",
		Materials: []dto.RecipeMaterialRequest{{MaterialID: uuid.NewString(), Quantity: d("1")}},
	})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = l.recipes.CreateRecipe(l.ctx, l.user, dto.RecipeRequest{
		Name: "r", YieldQuantity: d("1"), YieldUnit: "pcs",
		Materials: []dto.RecipeMaterialRequest{
			{MaterialID: flour.String(), Quantity: d("1")},
			{MaterialID: flour.String(), Quantity: d("2")},
		},
	})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestRecipe_DeleteUnlinksProducts(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "1"})
	product := l.product(t, &recipe)

	require.NoError(t, l.recipes.DeleteRecipe(l.ctx, l.user, recipe))

	p, err := l.products.GetProduct(l.ctx, l.user, product)
	require.NoError(t, err)
	assert.Nil(t, p.RecipeID)
	assert.True(t, p.UnitCost.IsZero())

	_, err = l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	assert.ErrorIs(t, err, service.ErrNoRecipeLinked)
}

func TestProduct_DeleteBlockedByBuilds(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "1"})
	product := l.product(t, &recipe)
	_, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	require.NoError(t, err)

	err = l.products.DeleteProduct(l.ctx, l.user, product)
	assert.ErrorIs(t, err, service.ErrInUse)
}

func TestBuild_RecordsMovements(t *testing.T) {
	l := newLedger(t, service.StockPolicyAllow)
	flour := l.material(t, "flour")
	l.buy(t, flour, "10", "10")
	recipe := l.recipe(t, "1", map[uuid.UUID]string{flour: "2"})
	product := l.product(t, &recipe)
	_, err := l.builds.Build(l.ctx, l.user, dto.BuildRequest{ProductID: product.String(), Quantity: d("1")})
	require.NoError(t, err)

	moves, err := l.inventory.ListMovements(l.ctx, l.user, dto.MovementFilter{Kind: model.MoveBuildConsume})
	require.NoError(t, err)
	require.EqualValues(t, 1, moves.Total)
	assertDec(t, "-2", moves.Data[0].Delta)
	assertDec(t, "10", moves.Data[0].StockBefore)
	assertDec(t, "8", moves.Data[0].StockAfter)

	moves, err = l.inventory.ListMovements(l.ctx, l.user, dto.MovementFilter{ItemType: model.ItemProduct})
	require.NoError(t, err)
	assert.EqualValues(t, 1, moves.Total)
}
