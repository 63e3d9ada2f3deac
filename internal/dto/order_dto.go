package dto

import (
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/cart"
	"tablepos/internal/kot"

	"github.com/shopspring/decimal"
)

// ── Cart ──────────────────────────────────────────────────────────────────────

type AddItemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required,uuid"`
}

// UpdateItemRequest carries a quantity delta and/or line options. Absent
// fields are left untouched. SpiceLevel (0-5) is accepted as an alternative
// to SpicePercent.
type UpdateItemRequest struct {
	Delta          *int             `json:"delta"          validate:"omitempty,min=-1000,max=1000"`
	Note           *string          `json:"note"           validate:"omitempty,max=200"`
	SpicePercent   *int             `json:"spicePercent"   validate:"omitempty,min=0,max=100"`
	SpiceLevel     *int             `json:"spiceLevel"     validate:"omitempty,min=0,max=5"`
	IsJain         *bool            `json:"isJain"`
	DiscountAmount *decimal.Decimal `json:"discountAmount"`
}

type CartResponse struct {
	BillID    string         `json:"billId,omitempty"`
	TableID   string         `json:"tableId"`
	TableName string         `json:"tableName"`
	Persons   int            `json:"persons"`
	Items     []cart.Item    `json:"items"`
	Totals    billing.Totals `json:"totals"`
	// UnprintedKOTs counts cut tickets still waiting for the kitchen printer.
	UnprintedKOTs int `json:"unprintedKots"`
	// Cached is set when the cart came from the Redis draft mirror.
	Cached bool `json:"cached,omitempty"`
}

// ── KOT ───────────────────────────────────────────────────────────────────────

type KOTListResponse struct {
	KOTs []kot.Ticket `json:"kots"`
}

// ── Printing ──────────────────────────────────────────────────────────────────

// PrintRequest selects the print target. Empty Target picks automatically.
// Auto marks the first print of a freshly opened print screen, which waits
// for the layout delay. Again re-sends the last printed KOT run when nothing
// is waiting.
type PrintRequest struct {
	Target string `json:"target" validate:"omitempty,oneof=bridge window network"`
	Auto   bool   `json:"auto"`
	Again  bool   `json:"again"`
}

type PrintResponse struct {
	Target string `json:"target"`
	Bytes  int    `json:"bytes"`
	// Printed lists the KOT ids marked printed by this run.
	Printed   []string  `json:"printed,omitempty"`
	PrintedAt time.Time `json:"printedAt"`
}
