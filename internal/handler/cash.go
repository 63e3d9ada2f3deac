package handler

import (
	"net/http"

	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

// CashHandler serves expense and income entries.
type CashHandler struct{ svc service.CashService }

func NewCashHandler(svc service.CashService) *CashHandler { return &CashHandler{svc: svc} }

// Create godoc
// @Summary Record an expense or income entry
// @Tags cash
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CashEntryRequest true "Entry"
// @Success 201 {object} dto.CashEntryResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/cash [post]
func (h *CashHandler) Create(c *gin.Context) {
	var req dto.CashEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), session(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List cash entries with range totals
// @Tags cash
// @Security BearerAuth
// @Produce json
// @Param kind query string false "expense | income"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.CashEntryListResponse
// @Router /v1/cash [get]
func (h *CashHandler) List(c *gin.Context) {
	var filter dto.CashEntryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), session(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Correct a cash entry
// @Tags cash
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param body body dto.UpdateCashEntryRequest true "Changes"
// @Success 200 {object} dto.CashEntryResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/{id} [put]
func (h *CashHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCashEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), session(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Delete a cash entry
// @Tags cash
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash/{id} [delete]
func (h *CashHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), session(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
