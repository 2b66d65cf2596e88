package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oliklab/mledger-sub000/internal/config"
	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/middleware"
	"github.com/oliklab/mledger-sub000/internal/router"
	"github.com/oliklab/mledger-sub000/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

func init() { gin.SetMode(gin.TestMode) }

type api struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := &config.Config{
		Env:                   "test",
		JWTSecret:             secret,
		RateLimitPerMinute:    0,
		MaterialStockPolicy:   "allow",
		LedgerConflictRetries: 2,
		LedgerLockTimeoutMS:   1000,
	}
	token, err := middleware.SignToken(secret, uuid.New(), true, time.Hour)
	require.NoError(t, err)
	return &api{t: t, engine: router.New(cfg, testutil.NewDB(t), nil), token: token}
}

func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestRouter_PurchaseBuildSaleFlow(t *testing.T) {
	a := newAPI(t)

	var flour dto.MaterialResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/materials", map[string]any{
		"name": "flour", "purchase_unit": "kg", "crafting_unit": "kg", "conversion_factor": "1",
	}, &flour))

	for _, cost := range []string{"50", "70"} {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/purchases", map[string]any{
			"material_id": flour.ID, "quantity": "10", "total_cost": cost,
		}, nil))
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/materials/"+flour.ID, nil, &flour))
	assert.Equal(t, "6", flour.AvgCost.String())

	var recipe dto.RecipeResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/recipes", map[string]any{
		"name": "bread", "yield_quantity": "1", "yield_unit": "loaf",
		"materials": []map[string]any{{"material_id": flour.ID, "quantity": "1"}},
	}, &recipe))

	var product dto.ProductResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/products", map[string]any{
		"name": "loaf", "recipe_id": recipe.ID, "selling_price": "9",
	}, &product))

	var build dto.BuildResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/builds", map[string]any{
		"product_id": product.ID, "quantity": "5",
	}, &build))
	assert.Equal(t, "30", build.TotalCostAtBuild.String())

	var sale dto.SaleResponse
	var errBody map[string]any
	require.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v1/sales?complete=true", map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": "6", "price_per_unit": "9"}},
	}, &errBody))
	assert.Equal(t, "insufficient_stock", errBody["code"])
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/sales?complete=true", map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": "2", "price_per_unit": "9"}},
	}, &sale))
	assert.Equal(t, "completed", sale.Status)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/products/"+product.ID, nil, &product))
	assert.Equal(t, "3", product.CurrentStock.String())

	var movements dto.MovementListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/inventory/movements?item_id="+flour.ID, nil, &movements))
	assert.EqualValues(t, 3, movements.Total)
}

func TestRouter_ErrorStatuses(t *testing.T) {
	a := newAPI(t)

	var errBody map[string]any
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/v1/materials", map[string]any{"name": "x"}, &errBody))
	assert.Equal(t, "validation", errBody["code"])

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/materials/"+uuid.NewString(), nil, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/materials/not-a-uuid", nil, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/v1/purchases", map[string]any{
		"material_id": uuid.NewString(), "quantity": "0", "total_cost": "1",
	}, &errBody))
	assert.Equal(t, "invalid_quantity", errBody["code"])

	a.token = ""
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/materials", nil, nil))
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", nil, nil))
}

func TestRouter_LapsedSubscriptionIsReadOnly(t *testing.T) {
	a := newAPI(t)
	var err error
	a.token, err = middleware.SignToken(secret, uuid.New(), false, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/materials", nil, nil))
	assert.Equal(t, http.StatusPaymentRequired, a.do(http.MethodPost, "/v1/materials", map[string]any{
		"name": "flour", "purchase_unit": "kg", "crafting_unit": "kg", "conversion_factor": "1",
	}, nil))
}
