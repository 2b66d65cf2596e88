package service

import (
	"testing"

	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculateRecipeCost(t *testing.T) {
	flour, sugar, gone := uuid.New(), uuid.New(), uuid.New()
	recipe := &model.Recipe{
		YieldQuantity: dec("12"),
		Materials: []model.RecipeMaterial{
			{MaterialID: flour, Quantity: dec("300")},
			{MaterialID: sugar, Quantity: dec("100")},
			{MaterialID: gone, Quantity: dec("5")},
		},
	}
	snapshot := map[uuid.UUID]model.Material{
		flour: {Name: "flour", AvgCost: dec("0.002")},
		sugar: {Name: "sugar", AvgCost: dec("0.003")},
	}

	c := CalculateRecipeCost(recipe, snapshot)
	assert.True(t, dec("0.9").Equal(c.Total), c.Total.String())
	assert.True(t, dec("0.075").Equal(c.PerYieldUnit), c.PerYieldUnit.String())
	require.Len(t, c.Lines, 3)
	assert.True(t, c.Lines[2].Missing)
	assert.True(t, c.Lines[2].LineCost.IsZero())
	assert.Equal(t, []uuid.UUID{gone}, c.Missing)
	assert.Equal(t, "flour", c.Lines[0].MaterialName)
}

func TestCalculateRecipeCost_Degenerate(t *testing.T) {
	c := CalculateRecipeCost(nil, nil)
	assert.True(t, c.Total.IsZero())

	empty := &model.Recipe{YieldQuantity: dec("4")}
	c = CalculateRecipeCost(empty, map[uuid.UUID]model.Material{})
	assert.True(t, c.Total.IsZero())
	assert.True(t, c.PerYieldUnit.IsZero())
	assert.Empty(t, c.Missing)

	noYield := &model.Recipe{Materials: []model.RecipeMaterial{{MaterialID: uuid.New(), Quantity: dec("1")}}}
	c = CalculateRecipeCost(noYield, nil)
	assert.True(t, c.PerYieldUnit.IsZero())
}

func TestAverageCost(t *testing.T) {
	assert.True(t, averageCost(dec("120"), dec("20")).Equal(dec("6")))
	assert.True(t, averageCost(dec("10"), dec("3")).Equal(dec("3.333333")))
	assert.True(t, averageCost(dec("5"), decimal.Zero).IsZero())
	assert.True(t, averageCost(dec("5"), dec("-1")).IsZero())
}

func TestParseStockPolicy(t *testing.T) {
	assert.Equal(t, StockPolicyReject, ParseStockPolicy("REJECT"))
	assert.Equal(t, StockPolicyAllow, ParseStockPolicy("allow"))
	assert.Equal(t, StockPolicyAllow, ParseStockPolicy(""))
}
