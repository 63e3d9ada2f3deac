package handler

import (
	"net/http"

	"tablepos/internal/apierror"
	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Login godoc
// @Summary Staff login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Exchange a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Staff Handler ─────────────────────────────────────────────────────────────

type StaffHandler struct{ svc service.AuthService }

func NewStaffHandler(svc service.AuthService) *StaffHandler {
	return &StaffHandler{svc: svc}
}

// Create godoc
// @Summary Create a staff account
// @Tags staff
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.CreateStaffRequest true "Staff member"
// @Success 201 {object} dto.StaffResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req dto.CreateStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateStaff(c.Request.Context(), session(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List staff accounts
// @Tags staff
// @Security BearerAuth
// @Produce json
// @Param inactive query bool false "Include deactivated accounts"
// @Success 200 {array} dto.StaffResponse
// @Router /v1/staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	resp, err := h.svc.ListStaff(c.Request.Context(), session(c), c.Query("inactive") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Update a staff account
// @Tags staff
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param body body dto.UpdateStaffRequest true "Changes"
// @Success 200 {object} dto.StaffResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStaffRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStaff(c.Request.Context(), session(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deactivate godoc
// @Summary Deactivate a staff account
// @Tags staff
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 204
// @Failure 400 {object} apierror.APIError
// @Router /v1/staff/{id} [delete]
func (h *StaffHandler) Deactivate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateStaff(c.Request.Context(), session(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
