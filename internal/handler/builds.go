package handler

import (
	"net/http"

	"github.com/oliklab/mledger-sub000/internal/dto"
	"github.com/oliklab/mledger-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type BuildsHandler struct{ svc service.BuildService }

func NewBuildsHandler(svc service.BuildService) *BuildsHandler { return &BuildsHandler{svc: svc} }

// Create godoc
// @Summary      Manufacture a batch of a product
// @Description  Consumes materials per the linked recipe at their current average cost and adds the quantity to product stock. The consumed lines are frozen on the build.
// @Tags         builds
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.BuildRequest true "Product + quantity"
// @Success      201  {object} dto.BuildResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError "no_recipe_linked, invalid_quantity"
// @Router       /v1/builds [post]
func (h *BuildsHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.BuildRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Build(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BuildsHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var filter dto.BuildFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListBuilds(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BuildsHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetBuild(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Reverse a build
// @Description  Returns the frozen material consumption to stock and removes the built quantity from the product.
// @Tags         builds
// @Security     BearerAuth
// @Param        id   path string true "Build UUID"
// @Success      204
// @Failure      409  {object} apierror.APIError "product stock already sold"
// @Router       /v1/builds/{id} [delete]
func (h *BuildsHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteBuild(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
