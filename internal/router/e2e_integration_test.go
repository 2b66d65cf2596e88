//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v
//
// These exercise what sqlite cannot: SELECT ... FOR UPDATE, lock_timeout and
// version-guarded updates under concurrent requests.

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/oliklab/mledger-sub000/internal/config"
	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/infra"
	"github.com/oliklab/mledger-sub000/internal/middleware"
	"github.com/oliklab/mledger-sub000/internal/router"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("mledger_test"),
		tcPostgres.WithUsername("mledger"),
		tcPostgres.WithPassword("mledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		JWTSecret:             secret,
		DatabaseURL:           pgURL,
		RedisURL:              rdURL,
		MaterialStockPolicy:   "allow",
		LedgerConflictRetries: 5,
		LedgerLockTimeoutMS:   5000,
		LowStockAlerts:        true,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	token, err := middleware.SignToken(secret, uuid.New(), true, time.Hour)
	require.NoError(t, err)
	return &api{t: t, engine: router.New(cfg, db, rdb), token: token}
}

func TestE2E_ConcurrentPurchasesKeepTotals(t *testing.T) {
	a := setupPostgresAPI(t)

	var flour dto.MaterialResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/materials", map[string]any{
		"name": "flour", "purchase_unit": "kg", "crafting_unit": "kg", "conversion_factor": "1",
	}, &flour))

	const n = 20
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = a.do(http.MethodPost, "/v1/purchases", map[string]any{
				"material_id": flour.ID, "quantity": "1", "total_cost": fmt.Sprintf("%d", i+1),
			}, nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, c)
		}
	}

	var list dto.PurchaseListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/purchases?material_id="+flour.ID+"&limit=500", nil, &list))
	require.EqualValues(t, created, list.Total)
	qty, cost := decimal.Zero, decimal.Zero
	for _, e := range list.Data {
		qty = qty.Add(e.TotalQuantity)
		cost = cost.Add(e.TotalCost)
	}

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/materials/"+flour.ID, nil, &flour))
	assert.True(t, qty.Equal(flour.TotalQuantity), "quantity %s vs journal %s", flour.TotalQuantity, qty)
	assert.True(t, cost.Equal(flour.TotalCost), "cost %s vs journal %s", flour.TotalCost, cost)
	assert.True(t, cost.Div(qty).Round(6).Equal(flour.AvgCost))
}

func TestE2E_ConcurrentSalesNeverOversell(t *testing.T) {
	a := setupPostgresAPI(t)

	var flour dto.MaterialResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/materials", map[string]any{
		"name": "flour", "purchase_unit": "kg", "crafting_unit": "kg", "conversion_factor": "1",
	}, &flour))
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/purchases", map[string]any{
		"material_id": flour.ID, "quantity": "100", "total_cost": "100",
	}, nil))
	var recipe dto.RecipeResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/recipes", map[string]any{
		"name": "bread", "yield_quantity": "1", "yield_unit": "loaf",
		"materials": []map[string]any{{"material_id": flour.ID, "quantity": "1"}},
	}, &recipe))
	var product dto.ProductResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/products", map[string]any{
		"name": "loaf", "recipe_id": recipe.ID, "selling_price": "4",
	}, &product))
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/builds", map[string]any{
		"product_id": product.ID, "quantity": "5",
	}, nil))

	const n = 12
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = a.do(http.MethodPost, "/v1/sales?complete=true", map[string]any{
				"items": []map[string]any{{"product_id": product.ID, "quantity": "1", "price_per_unit": "4"}},
			}, nil)
		}(i)
	}
	wg.Wait()

	sold := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			sold++
		}
	}
	assert.Equal(t, 5, sold)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/products/"+product.ID, nil, &product))
	assert.True(t, product.CurrentStock.IsZero(), "stock %s", product.CurrentStock)
}
