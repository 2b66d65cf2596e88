package router

import (
	"time"

	"github.com/oliklab/mledger-sub000/internal/config"
	"github.com/oliklab/mledger-sub000/internal/handler"
	"github.com/oliklab/mledger-sub000/internal/middleware"
	"github.com/oliklab/mledger-sub000/internal/repository"
	"github.com/oliklab/mledger-sub000/internal/service"
	"github.com/oliklab/mledger-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil; low-stock alerts are then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
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

	// ── Async alerts ─────────────────────────────────────────────────────────
	var (
		dispatcher *worker.Dispatcher
		alerts     *worker.AlertStore
	)
	if rdb != nil {
		alerts = worker.NewAlertStore(rdb)
		if cfg.LowStockAlerts {
			dispatcher = worker.NewDispatcher(rdb)
		}
	}

	// ── Services ─────────────────────────────────────────────────────────────
	txRunner := service.NewTxRunner(db, cfg.LedgerConflictRetries, cfg.LockTimeout())
	policy := service.ParseStockPolicy(cfg.MaterialStockPolicy)

	materialSvc := service.NewMaterialService(materialRepo, purchaseRepo, costRepo)
	purchaseSvc := service.NewPurchaseService(txRunner, materialRepo, purchaseRepo, orderRepo, supplierRepo, movementRepo, costRepo, dispatcher)
	orderSvc := service.NewOrderService(txRunner, materialRepo, purchaseRepo, orderRepo, supplierRepo, movementRepo, costRepo, dispatcher)
	recipeSvc := service.NewRecipeService(txRunner, recipeRepo, materialRepo, productRepo)
	productSvc := service.NewProductService(productRepo, recipeRepo, materialRepo, buildRepo, saleRepo)
	buildSvc := service.NewBuildService(txRunner, materialRepo, productRepo, recipeRepo, buildRepo, movementRepo, costRepo, policy, dispatcher)
	saleSvc := service.NewSaleService(txRunner, saleRepo, productRepo, recipeRepo, materialRepo, movementRepo)
	supplierSvc := service.NewSupplierService(supplierRepo)
	inventorySvc := service.NewInventoryService(movementRepo, alerts)

	// ── Handlers ─────────────────────────────────────────────────────────────
	materialsH := handler.NewMaterialsHandler(materialSvc)
	purchasesH := handler.NewPurchasesHandler(purchaseSvc)
	ordersH := handler.NewOrdersHandler(orderSvc)
	recipesH := handler.NewRecipesHandler(recipeSvc)
	productsH := handler.NewProductsHandler(productSvc)
	buildsH := handler.NewBuildsHandler(buildSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	suppliersH := handler.NewSuppliersHandler(supplierSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes. Reads only need a valid identity; writes also need an
	// active subscription.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	w := middleware.RequireActiveSubscription()
	{
		v1.GET("/materials", materialsH.List)
		v1.GET("/materials/low-stock", materialsH.LowStock)
		v1.GET("/materials/:id", materialsH.Get)
		v1.GET("/materials/:id/cost-history", materialsH.CostHistory)
		v1.POST("/materials", w, materialsH.Create)
		v1.PUT("/materials/:id", w, materialsH.Update)
		v1.DELETE("/materials/:id", w, materialsH.Delete)

		v1.GET("/purchases", purchasesH.List)
		v1.GET("/purchases/:id", purchasesH.Get)
		v1.POST("/purchases", w, purchasesH.Create)
		v1.POST("/purchases/apply", w, purchasesH.Apply)
		v1.PUT("/purchases/:id", w, purchasesH.Update)
		v1.DELETE("/purchases/:id", w, purchasesH.Delete)

		v1.GET("/orders", ordersH.List)
		v1.GET("/orders/:id", ordersH.Get)
		v1.POST("/orders", w, ordersH.Create)
		v1.PUT("/orders/:id", w, ordersH.Update)
		v1.DELETE("/orders/:id", w, ordersH.Delete)

		v1.GET("/recipes", recipesH.List)
		v1.GET("/recipes/:id", recipesH.Get)
		v1.GET("/recipes/:id/cost", recipesH.Cost)
		v1.POST("/recipes", w, recipesH.Create)
		v1.PUT("/recipes/:id", w, recipesH.Update)
		v1.DELETE("/recipes/:id", w, recipesH.Delete)

		v1.GET("/products", productsH.List)
		v1.GET("/products/:id", productsH.Get)
		v1.POST("/products", w, productsH.Create)
		v1.PUT("/products/:id", w, productsH.Update)
		v1.DELETE("/products/:id", w, productsH.Delete)

		v1.GET("/builds", buildsH.List)
		v1.GET("/builds/:id", buildsH.Get)
		v1.POST("/builds", w, buildsH.Create)
		v1.DELETE("/builds/:id", w, buildsH.Delete)

		v1.GET("/sales", salesH.List)
		v1.GET("/sales/:id", salesH.Get)
		v1.POST("/sales", w, salesH.Create)
		v1.PUT("/sales/:id", w, salesH.Update)
		v1.POST("/sales/:id/complete", w, salesH.Complete)
		v1.POST("/sales/:id/revert", w, salesH.Revert)
		v1.POST("/sales/:id/cancel", w, salesH.Cancel)
		v1.DELETE("/sales/:id", w, salesH.Delete)

		v1.GET("/suppliers", suppliersH.List)
		v1.GET("/suppliers/:id", suppliersH.Get)
		v1.POST("/suppliers", w, suppliersH.Create)
		v1.PUT("/suppliers/:id", w, suppliersH.Update)
		v1.DELETE("/suppliers/:id", w, suppliersH.Delete)

		v1.GET("/inventory/movements", inventoryH.Movements)
		v1.GET("/inventory/alerts", inventoryH.Alerts)
		v1.DELETE("/inventory/alerts/:id", inventoryH.DismissAlert)
	}

	return r
}
