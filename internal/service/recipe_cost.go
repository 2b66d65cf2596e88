package service

import (
	"github.com/oliklab/mledger-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeCostLine is one recipe line priced at the snapshot's average cost.
type RecipeCostLine struct {
	MaterialID   uuid.UUID
	MaterialName string
	Quantity     decimal.Decimal
	AvgCost      decimal.Decimal
	LineCost     decimal.Decimal
	Missing      bool
}

// RecipeCost is the live cost of one yield batch of a recipe.
type RecipeCost struct {
	Total        decimal.Decimal
	PerYieldUnit decimal.Decimal
	Lines        []RecipeCostLine
	// Missing lists materials the recipe names that are absent from the
	// snapshot. Their lines contribute zero.
	Missing []uuid.UUID
}

// CalculateRecipeCost prices recipe against snapshot (material id → row).
// It reads nothing else and mutates nothing, so it is safe to call
// concurrently on shared inputs.
func CalculateRecipeCost(recipe *model.Recipe, snapshot map[uuid.UUID]model.Material) RecipeCost {
	out := RecipeCost{Total: decimal.Zero, PerYieldUnit: decimal.Zero}
	if recipe == nil {
		return out
	}
	for _, rm := range recipe.Materials {
		line := RecipeCostLine{
			MaterialID: rm.MaterialID,
			Quantity:   rm.Quantity,
			AvgCost:    decimal.Zero,
			LineCost:   decimal.Zero,
		}
		m, ok := snapshot[rm.MaterialID]
		if !ok {
			line.Missing = true
			out.Missing = append(out.Missing, rm.MaterialID)
		} else {
			line.MaterialName = m.Name
			line.AvgCost = m.AvgCost
			line.LineCost = rm.Quantity.Mul(m.AvgCost).Round(costScale)
			out.Total = out.Total.Add(line.LineCost)
		}
		out.Lines = append(out.Lines, line)
	}
	if recipe.YieldQuantity.IsPositive() {
		out.PerYieldUnit = out.Total.Div(recipe.YieldQuantity).Round(costScale)
	}
	return out
}

// materialIDs lists the material ids a recipe references.
func materialIDs(recipe *model.Recipe) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(recipe.Materials))
	for _, rm := range recipe.Materials {
		ids = append(ids, rm.MaterialID)
	}
	return ids
}

func snapshotOf(rows []model.Material) map[uuid.UUID]model.Material {
	out := make(map[uuid.UUID]model.Material, len(rows))
	for _, m := range rows {
		out[m.ID] = m
	}
	return out
}
