package handler

import (
	"net/http"

	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

type TableHandler struct{ svc service.TableService }

func NewTableHandler(svc service.TableService) *TableHandler { return &TableHandler{svc: svc} }

// Create godoc
// @Summary Add a dining table
// @Tags tables
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateTableRequest true "Table"
// @Success 201 {object} dto.TableResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/tables [post]
func (h *TableHandler) Create(c *gin.Context) {
	var req dto.CreateTableRequest
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
// @Summary List tables with their occupancy
// @Tags tables
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.TableResponse
// @Router /v1/tables [get]
func (h *TableHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Rename or reorder a table
// @Tags tables
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Table ID"
// @Param body body dto.UpdateTableRequest true "Changes"
// @Success 200 {object} dto.TableResponse
// @Router /v1/tables/{id} [put]
func (h *TableHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTableRequest
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
// @Summary Remove a free table
// @Tags tables
// @Security BearerAuth
// @Param id path string true "Table ID"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/tables/{id} [delete]
func (h *TableHandler) Delete(c *gin.Context) {
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
