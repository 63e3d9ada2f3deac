package handler

import (
	"net/http"

	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves the table cart and its kitchen tickets.
type OrderHandler struct{ svc service.OrderService }

func NewOrderHandler(svc service.OrderService) *OrderHandler { return &OrderHandler{svc: svc} }

// ── Cart ──────────────────────────────────────────────────────────────────────

// Cart godoc
// @Summary Current cart of a table with live totals
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Table ID"
// @Success 200 {object} dto.CartResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/tables/{id}/cart [get]
func (h *OrderHandler) Cart(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetCart(c.Request.Context(), session(c), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddItem godoc
// @Summary Add one unit of a menu item
// @Description Opens a bill for the table when it has none.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Table ID"
// @Param body body dto.AddItemRequest true "Menu item"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/tables/{id}/cart/items [post]
func (h *OrderHandler) AddItem(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), session(c), tableID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateItem godoc
// @Summary Change quantity or options of a cart line
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Table ID"
// @Param itemId path string true "Menu item ID of the line"
// @Param body body dto.UpdateItemRequest true "Changes"
// @Success 200 {object} dto.CartResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/tables/{id}/cart/items/{itemId} [patch]
func (h *OrderHandler) UpdateItem(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), session(c), tableID, c.Param("itemId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RemoveItem godoc
// @Summary Remove a cart line
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "Table ID"
// @Param itemId path string true "Menu item ID of the line"
// @Success 200 {object} dto.CartResponse
// @Router /v1/tables/{id}/cart/items/{itemId} [delete]
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RemoveItem(c.Request.Context(), session(c), tableID, c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── KOT ───────────────────────────────────────────────────────────────────────

// CutKOT godoc
// @Summary Cut a KOT from the items added since the last one
// @Tags kots
// @Security BearerAuth
// @Produce json
// @Param id path string true "Table ID"
// @Success 201 {object} kot.Ticket
// @Failure 409 {object} apierror.APIError
// @Router /v1/tables/{id}/kots [post]
func (h *OrderHandler) CutKOT(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	ticket, err := h.svc.CutKOT(c.Request.Context(), session(c), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// ListKOTs godoc
// @Summary KOT history of the open bill
// @Tags kots
// @Security BearerAuth
// @Produce json
// @Param id path string true "Table ID"
// @Success 200 {object} dto.KOTListResponse
// @Router /v1/tables/{id}/kots [get]
func (h *OrderHandler) ListKOTs(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	tickets, err := h.svc.ListKOTs(c.Request.Context(), session(c), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.KOTListResponse{KOTs: tickets})
}

// PrintKOTs godoc
// @Summary Print the unprinted KOTs
// @Description With again=true and nothing waiting, the last printed run is sent again.
// @Description Clients accepting text/html receive the browser print page.
// @Tags kots
// @Security BearerAuth
// @Accept json
// @Produce json,html
// @Param id path string true "Table ID"
// @Param body body dto.PrintRequest false "Target"
// @Success 200 {object} dto.PrintResponse
// @Failure 409 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/tables/{id}/kots/print [post]
func (h *OrderHandler) PrintKOTs(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bindPrint(c)
	if !ok {
		return
	}
	out, err := h.svc.PrintKOTs(c.Request.Context(), session(c), tableID, req, windowOpener(c))
	if err != nil {
		respondError(c, err)
		return
	}
	printed(c, out.Result, out.Response)
}
