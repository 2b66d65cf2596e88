package handler

import (
	"net/http"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Create godoc
// @Summary      Create a sale
// @Description  Creates a draft. With ?complete=true the sale is created and completed in one transaction.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        complete query bool            false "Complete immediately"
// @Param        body     body  dto.SaleRequest true  "Sale"
// @Success      201  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError "insufficient_stock"
// @Failure      422  {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var (
		resp *dto.SaleResponse
		err  error
	)
	if c.Query("complete") == "true" {
		resp, err = h.svc.CreateAndCompleteSale(c.Request.Context(), userID, req)
	} else {
		resp, err = h.svc.CreateSale(c.Request.Context(), userID, req)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SalesHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListSales(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary      Edit a draft sale
// @Description  Items are diffed by id. Existing items keep their cost snapshot; only drafts can be edited.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string          true "Sale UUID"
// @Param        body body dto.SaleRequest true "Full item list"
// @Success      200  {object} dto.SaleResponse
// @Failure      422  {object} apierror.APIError "illegal_transition"
// @Router       /v1/sales/{id} [put]
func (h *SalesHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.SaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateDraft(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Complete godoc
// @Summary      Complete a draft sale
// @Description  Deducts product stock for every item. Any shortage rejects the whole sale and nothing changes.
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Sale UUID"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError "insufficient_stock"
// @Router       /v1/sales/{id}/complete [post]
func (h *SalesHandler) Complete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CompleteSale(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revert godoc
// @Summary      Revert a completed sale
// @Description  Restores product stock and moves the sale to draft or cancelled.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "Sale UUID"
// @Param        body body dto.RevertSaleRequest true "Target status"
// @Success      200  {object} dto.SaleResponse
// @Router       /v1/sales/{id}/revert [post]
func (h *SalesHandler) Revert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.RevertSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RevertSale(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Cancel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CancelDraft(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
