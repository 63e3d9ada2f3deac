package handler

import (
	"net/http"

	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

// ── Categories ────────────────────────────────────────────────────────────────

type CategoryHandler struct{ svc service.CategoryService }

func NewCategoryHandler(svc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// Create godoc
// @Summary Create a menu category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateCategoryRequest true "Category"
// @Success 201 {object} dto.CategoryResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
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
// @Summary List active categories in display order
// @Tags categories
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.CategoryResponse
// @Router /v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Rename, reorder or toggle a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param body body dto.UpdateCategoryRequest true "Changes"
// @Success 200 {object} dto.CategoryResponse
// @Router /v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCategoryRequest
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

// Deactivate godoc
// @Summary Deactivate a category
// @Tags categories
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 204
// @Router /v1/categories/{id} [delete]
func (h *CategoryHandler) Deactivate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), session(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Menu ──────────────────────────────────────────────────────────────────────

type MenuHandler struct{ svc service.MenuService }

func NewMenuHandler(svc service.MenuService) *MenuHandler { return &MenuHandler{svc: svc} }

// Create godoc
// @Summary Add a menu item
// @Tags menu
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateMenuItemRequest true "Menu item"
// @Success 201 {object} dto.MenuItemResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/menu [post]
func (h *MenuHandler) Create(c *gin.Context) {
	var req dto.CreateMenuItemRequest
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
// @Summary List menu items
// @Tags menu
// @Security BearerAuth
// @Produce json
// @Param category query string false "Category name"
// @Param name query string false "Name contains"
// @Param available query string false "true or false"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(200)
// @Success 200 {object} dto.MenuListResponse
// @Router /v1/menu [get]
func (h *MenuHandler) List(c *gin.Context) {
	var filter dto.MenuFilter
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

// Get godoc
// @Summary Get a menu item
// @Tags menu
// @Security BearerAuth
// @Produce json
// @Param id path string true "Menu item ID"
// @Success 200 {object} dto.MenuItemResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/menu/{id} [get]
func (h *MenuHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), session(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Update a menu item
// @Tags menu
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Menu item ID"
// @Param body body dto.UpdateMenuItemRequest true "Changes"
// @Success 200 {object} dto.MenuItemResponse
// @Router /v1/menu/{id} [put]
func (h *MenuHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateMenuItemRequest
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
// @Summary Remove a menu item
// @Tags menu
// @Security BearerAuth
// @Param id path string true "Menu item ID"
// @Success 204
// @Router /v1/menu/{id} [delete]
func (h *MenuHandler) Delete(c *gin.Context) {
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
