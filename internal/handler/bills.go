package handler

import (
	"net/http"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/service"

	"github.com/gin-gonic/gin"
)

type BillHandler struct {
	svc     service.BillService
	reports service.ReportService
}

func NewBillHandler(svc service.BillService, reports service.ReportService) *BillHandler {
	return &BillHandler{svc: svc, reports: reports}
}

// Preview godoc
// @Summary Totals of the open bill without saving
// @Tags bills
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Table ID"
// @Param body body dto.BillRequest true "Persons, charges, discount and taxes"
// @Success 200 {object} dto.BillResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/tables/{id}/bill/preview [post]
func (h *BillHandler) Preview(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.BillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Preview(c.Request.Context(), session(c), tableID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Save godoc
// @Summary Finalise the open bill of a table
// @Description Assigns the bill number and frees the table.
// @Tags bills
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Table ID"
// @Param body body dto.BillRequest true "Persons, charges, discount and taxes"
// @Success 201 {object} dto.BillResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/tables/{id}/bill [post]
func (h *BillHandler) Save(c *gin.Context) {
	tableID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.BillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Save(c.Request.Context(), session(c), tableID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary Bill history
// @Tags bills
// @Security BearerAuth
// @Produce json
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param status query string false "open, saved or all" default(saved)
// @Param tableId query string false "Table ID"
// @Param q query string false "Bill number prefix or table name"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} dto.BillListResponse
// @Router /v1/bills [get]
func (h *BillHandler) List(c *gin.Context) {
	var filter dto.BillFilter
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
// @Summary Get a bill
// @Tags bills
// @Security BearerAuth
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} dto.BillResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/bills/{id} [get]
func (h *BillHandler) Get(c *gin.Context) {
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

// Reopen godoc
// @Summary Re-open a saved bill for correction
// @Description Creates a new open bill on the same table; the saved bill is kept.
// @Tags bills
// @Security BearerAuth
// @Produce json
// @Param id path string true "Bill ID"
// @Success 201 {object} dto.BillResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/bills/{id}/reopen [post]
func (h *BillHandler) Reopen(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Reopen(c.Request.Context(), session(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Print godoc
// @Summary Print a saved bill
// @Tags bills
// @Security BearerAuth
// @Accept json
// @Produce json,html
// @Param id path string true "Bill ID"
// @Param body body dto.PrintRequest false "Target"
// @Success 200 {object} dto.PrintResponse
// @Failure 409 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/bills/{id}/print [post]
func (h *BillHandler) Print(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bindPrint(c)
	if !ok {
		return
	}
	resp, res, err := h.svc.Print(c.Request.Context(), session(c), id, req, windowOpener(c))
	if err != nil {
		respondError(c, err)
		return
	}
	printed(c, res, resp)
}

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report godoc
// @Summary Bill report workbook
// @Tags reports
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {file} file
// @Router /v1/reports/bills.xlsx [get]
func (h *BillHandler) Report(c *gin.Context) {
	var filter dto.BillFilter
	if !bindQuery(c, &filter) {
		return
	}
	data, err := h.reports.BillsXLSX(c.Request.Context(), session(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	name := "bills-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxType, data)
}

// Summary godoc
// @Summary Dashboard totals for a date range
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Param from query string false "YYYY-MM-DD, default today"
// @Param to query string false "YYYY-MM-DD, default today"
// @Success 200 {object} dto.SummaryResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/reports/summary [get]
func (h *BillHandler) Summary(c *gin.Context) {
	var filter dto.SummaryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.reports.Summary(c.Request.Context(), session(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
