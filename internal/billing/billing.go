// Package billing derives the money fields of a bill from its cart lines and
// manual adjustments. It never mutates its input and never fails: amounts are
// validated upstream by the cart and the request layer.
//
// Every surface (JSON preview, receipt raster, ESC/POS text, PDF archive,
// report) projects from the single Totals value returned by Calculate.
//
//	GrandTotal = Subtotal + AdditionalTotal − DiscountAmount + CGST + SGST
package billing

import (
	"tablepos/internal/cart"

	"github.com/shopspring/decimal"
)

// Charge is a named bill-level surcharge (service charge, packing…).
type Charge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Input is everything Calculate reads.
type Input struct {
	Items             []cart.Item
	AdditionalCharges []Charge
	DiscountAmount    decimal.Decimal
	CGST              decimal.Decimal
	SGST              decimal.Decimal
}

// Line is one billed row.
type Line struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

// Totals is the canonical bill computation.
type Totals struct {
	Lines             []Line          `json:"lines"`
	ItemDiscountTotal decimal.Decimal `json:"itemDiscountTotal"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	AdditionalCharges []Charge        `json:"additionalCharges"`
	AdditionalTotal   decimal.Decimal `json:"additionalTotal"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	CGST              decimal.Decimal `json:"cgst"`
	SGST              decimal.Decimal `json:"sgst"`
	GrandTotal        decimal.Decimal `json:"grandTotal"`
}

// ItemFinalAmount is price × quantity − discount, floored at zero.
func ItemFinalAmount(it cart.Item) decimal.Decimal { return it.FinalAmount() }

// Calculate computes Totals. Lines with quantity ≤ 0 are excluded.
func Calculate(in Input) Totals {
	t := Totals{
		Lines:             make([]Line, 0, len(in.Items)),
		ItemDiscountTotal: decimal.Zero,
		Subtotal:          decimal.Zero,
		AdditionalCharges: make([]Charge, 0, len(in.AdditionalCharges)),
		AdditionalTotal:   decimal.Zero,
		DiscountAmount:    in.DiscountAmount,
		CGST:              in.CGST,
		SGST:              in.SGST,
	}

	for _, it := range in.Items {
		if it.Quantity <= 0 {
			continue
		}
		final := ItemFinalAmount(it)
		t.Lines = append(t.Lines, Line{
			ID:             it.ID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			Price:          it.Price,
			DiscountAmount: it.DiscountAmount,
			FinalAmount:    final,
		})
		t.Subtotal = t.Subtotal.Add(final)
		t.ItemDiscountTotal = t.ItemDiscountTotal.Add(it.LineTotal().Sub(final))
	}

	for _, ch := range in.AdditionalCharges {
		t.AdditionalCharges = append(t.AdditionalCharges, ch)
		t.AdditionalTotal = t.AdditionalTotal.Add(ch.Amount)
	}

	t.GrandTotal = t.Subtotal.
		Add(t.AdditionalTotal).
		Sub(t.DiscountAmount).
		Add(t.CGST).
		Add(t.SGST)
	return t
}

// TaxableBase is the amount configured tax rates apply to.
func (t Totals) TaxableBase() decimal.Decimal {
	return t.Subtotal.Add(t.AdditionalTotal).Sub(t.DiscountAmount)
}

// TotalTax is CGST + SGST.
func (t Totals) TotalTax() decimal.Decimal { return t.CGST.Add(t.SGST) }

// ItemCount is the sum of billed quantities.
func (t Totals) ItemCount() int {
	n := 0
	for _, l := range t.Lines {
		n += l.Quantity
	}
	return n
}

var hundred = decimal.NewFromInt(100)

// TaxFromRates converts percentage rates into CGST/SGST amounts on base,
// rounded half-up to two decimals. A negative base yields zero tax.
func TaxFromRates(base, cgstRate, sgstRate decimal.Decimal) (cgst, sgst decimal.Decimal) {
	if base.IsNegative() {
		return decimal.Zero, decimal.Zero
	}
	cgst = base.Mul(cgstRate).Div(hundred).Round(2)
	sgst = base.Mul(sgstRate).Div(hundred).Round(2)
	return cgst, sgst
}
