package dto

import (
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/cart"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// BillFilter is bound from the query string of GET /v1/bills.
type BillFilter struct {
	// From and To are YYYY-MM-DD bounds on the saved date, inclusive.
	From string `form:"from"`
	To   string `form:"to"`
	// Status: open | saved | all
	Status  string `form:"status,default=saved" validate:"omitempty,oneof=open saved all"`
	TableID string `form:"tableId"              validate:"omitempty,uuid"`
	// Search matches a bill number prefix or part of the table name.
	Search string `form:"q"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

type BillListResponse struct {
	Bills []BillResponse `json:"bills"`
	Total int64          `json:"total"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ChargeRequest struct {
	Name   string          `json:"name"   validate:"required,min=1,max=60"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// BillRequest is the body of both preview and save. Nil CGST/SGST are
// computed from the restaurant tax rates.
type BillRequest struct {
	Persons           int              `json:"persons"           validate:"min=0,max=100"`
	AdditionalCharges []ChargeRequest  `json:"additionalCharges" validate:"omitempty,dive"`
	DiscountAmount    decimal.Decimal  `json:"discountAmount"    validate:"gte=0"`
	CGST              *decimal.Decimal `json:"cgst"`
	SGST              *decimal.Decimal `json:"sgst"`
	CustomerEmail     *string          `json:"customerEmail"     validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BillResponse struct {
	ID                 string         `json:"id"`
	BillNumber         *string        `json:"billNumber"`
	TableID            string         `json:"tableId"`
	TableName          string         `json:"tableName"`
	Persons            int            `json:"persons"`
	StaffName          string         `json:"staffName"`
	Status             string         `json:"status"`
	Items              []cart.Item    `json:"items"`
	Totals             billing.Totals `json:"totals"`
	OriginalBillID     *string        `json:"originalBillId,omitempty"`
	OriginalBillNumber *string        `json:"originalBillNumber,omitempty"`
	SavedAt            *time.Time     `json:"savedAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
}
