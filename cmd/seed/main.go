// cmd/seed loads a small demo catalogue for one user through the ledger
// services: two materials with purchases, a recipe, a product and one build.
// Usage: go run ./cmd/seed -user <uuid>
package main

import (
	"context"
	"flag"
	"os"

	"github.com/oliklab/mledger-sub000/internal/config"
	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/infra"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	user := flag.String("user", "", "owner uuid")
	flag.Parse()

	userID, err := uuid.Parse(*user)
	if err != nil {
		log.Fatal().Err(err).Msg("-user must be a uuid")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

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

	tx := service.NewTxRunner(db, cfg.LedgerConflictRetries, cfg.LockTimeout())
	materials := service.NewMaterialService(materialRepo, purchaseRepo, costRepo)
	purchases := service.NewPurchaseService(tx, materialRepo, purchaseRepo, orderRepo, supplierRepo, movementRepo, costRepo, nil)
	recipes := service.NewRecipeService(tx, recipeRepo, materialRepo, productRepo)
	products := service.NewProductService(productRepo, recipeRepo, materialRepo, buildRepo, saleRepo)
	builds := service.NewBuildService(tx, materialRepo, productRepo, recipeRepo, buildRepo, movementRepo, costRepo,
		service.ParseStockPolicy(cfg.MaterialStockPolicy), nil)

	ctx := context.Background()
	d := decimal.RequireFromString

	flour, err := materials.CreateMaterial(ctx, userID, dto.CreateMaterialRequest{
		Name: "Flour", PurchaseUnit: "bag", CraftingUnit: "g",
		ConversionFactor: d("1000"), MinimumThreshold: d("500"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create flour")
	}
	sugar, err := materials.CreateMaterial(ctx, userID, dto.CreateMaterialRequest{
		Name: "Sugar", PurchaseUnit: "bag", CraftingUnit: "g",
		ConversionFactor: d("1000"), MinimumThreshold: d("200"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create sugar")
	}

	for _, p := range []dto.PurchaseRequest{
		{MaterialID: flour.ID, Quantity: d("5"), QuantityUnit: "purchase", TotalCost: d("7.50"), SupplierName: "Mill & Co"},
		{MaterialID: sugar.ID, Quantity: d("2000"), TotalCost: d("3.20"), SupplierName: "Sweet Supply"},
	} {
		if _, err := purchases.CreatePurchase(ctx, userID, p); err != nil {
			log.Fatal().Err(err).Str("material_id", p.MaterialID).Msg("record purchase")
		}
	}

	recipe, err := recipes.CreateRecipe(ctx, userID, dto.RecipeRequest{
		Name: "Shortbread", YieldQuantity: d("12"), YieldUnit: "pcs",
		Materials: []dto.RecipeMaterialRequest{
			{MaterialID: flour.ID, Quantity: d("300")},
			{MaterialID: sugar.ID, Quantity: d("100")},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create recipe")
	}

	product, err := products.CreateProduct(ctx, userID, dto.ProductRequest{
		Name: "Shortbread biscuit", RecipeID: &recipe.ID, SellingPrice: d("1.50"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create product")
	}

	build, err := builds.Build(ctx, userID, dto.BuildRequest{ProductID: product.ID, Quantity: d("24")})
	if err != nil {
		log.Fatal().Err(err).Msg("build product")
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("product_id", product.ID).
		Str("build_id", build.ID).
		Str("build_cost", build.TotalCostAtBuild.String()).
		Msg("seed complete")
}
