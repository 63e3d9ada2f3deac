package dto

import "github.com/shopspring/decimal"

type CashEntryRequest struct {
	Kind     string          `json:"kind"     validate:"required,oneof=expense income"`
	Category string          `json:"category" validate:"required,min=1,max=50"`
	Amount   decimal.Decimal `json:"amount"   validate:"required,gt=0"`
	Note     string          `json:"note"     validate:"max=500"`
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateCashEntryRequest struct {
	Kind     *string          `json:"kind"     validate:"omitempty,oneof=expense income"`
	Category *string          `json:"category" validate:"omitempty,min=1,max=50"`
	Amount   *decimal.Decimal `json:"amount"`
	Note     *string          `json:"note"     validate:"omitempty,max=500"`
	Date     *string          `json:"date"     validate:"omitempty,datetime=2006-01-02"`
}

// CashEntryFilter is bound from the query string of GET /v1/cash.
type CashEntryFilter struct {
	Kind  string `form:"kind"  validate:"omitempty,oneof=expense income"`
	From  string `form:"from"  validate:"omitempty,datetime=2006-01-02"`
	To    string `form:"to"    validate:"omitempty,datetime=2006-01-02"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=500"`
}

type CashEntryResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	Date      string          `json:"date"`
	StaffName string          `json:"staffName"`
}

type CashEntryListResponse struct {
	Data    []CashEntryResponse `json:"data"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	Income  decimal.Decimal     `json:"income"`
	Expense decimal.Decimal     `json:"expense"`
}

// SummaryFilter bounds GET /v1/reports/summary. Both dates default to today.
type SummaryFilter struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   validate:"omitempty,datetime=2006-01-02"`
}

type TopItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// SummaryResponse feeds the manager dashboard.
type SummaryResponse struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Bills      int             `json:"bills"`
	Persons    int             `json:"persons"`
	Sales      decimal.Decimal `json:"sales"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	AvgBill    decimal.Decimal `json:"avgBill"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	OpenTables int             `json:"openTables"`
	TopItems   []TopItem       `json:"topItems"`
}
