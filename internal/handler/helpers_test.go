package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oliklab/mledger-sub000/internal/apierror"
	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func respond(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, err)
	return w
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", service.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
		{"plain validation", service.ErrValidation, http.StatusUnprocessableEntity, "validation"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"insufficient", service.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict"},
		{"integrity", service.ErrIntegrity, http.StatusInternalServerError, "integrity"},
		{"wrapped", fmt.Errorf("build: %w", service.ErrNoRecipeLinked), http.StatusUnprocessableEntity, "no_recipe_linked"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := respond(c.err)
			assert.Equal(t, c.status, w.Code)
			var body apierror.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, c.code, body.Code)
		})
	}
}

func TestRespondError_ConflictSetsRetryAfter(t *testing.T) {
	w := respond(service.ErrConflict)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRespondError_UntypedHidesCause(t *testing.T) {
	w := respond(errors.New("dial tcp 10.0.0.3:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestValidateStruct_Decimals(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ok := validateStruct(c, &dto.CreateMaterialRequest{Name: "flour", PurchaseUnit: "bag", CraftingUnit: "g"})
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body apierror.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "ConversionFactor")
}
