package printing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/kot"

	"github.com/shopspring/decimal"
)

// ── Layout model ─────────────────────────────────────────────────────────────

type LineKind int

const (
	LineText LineKind = iota
	// LinePair is a label on the left and a value flush right.
	LinePair
	LineSeparator
	LineFeed
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Line is one logical row of a receipt. Rows longer than the paper are wrapped
// at layout time, never clipped.
type Line struct {
	Kind  LineKind
	Text  string
	Value string
	Align Align
	Bold  bool
	Title bool
}

// Document is the paper-independent description of a receipt or KOT.
type Document struct {
	Title string
	Lines []Line
}

func (d *Document) Heading(s string) *Document {
	d.Lines = append(d.Lines, Line{Kind: LineText, Text: s, Align: AlignCenter, Bold: true, Title: true})
	return d
}

func (d *Document) Centered(s string) *Document {
	if s == "" {
		return d
	}
	d.Lines = append(d.Lines, Line{Kind: LineText, Text: s, Align: AlignCenter})
	return d
}

func (d *Document) Text(s string) *Document {
	d.Lines = append(d.Lines, Line{Kind: LineText, Text: s})
	return d
}

func (d *Document) Bold(s string) *Document {
	d.Lines = append(d.Lines, Line{Kind: LineText, Text: s, Bold: true})
	return d
}

func (d *Document) Pair(label, value string) *Document {
	d.Lines = append(d.Lines, Line{Kind: LinePair, Text: label, Value: value})
	return d
}

func (d *Document) BoldPair(label, value string) *Document {
	d.Lines = append(d.Lines, Line{Kind: LinePair, Text: label, Value: value, Bold: true})
	return d
}

func (d *Document) Separator() *Document {
	d.Lines = append(d.Lines, Line{Kind: LineSeparator})
	return d
}

func (d *Document) Feed() *Document {
	d.Lines = append(d.Lines, Line{Kind: LineFeed})
	return d
}

// MoneyFormat renders an amount for one output surface.
type MoneyFormat func(decimal.Decimal) string

// ── Bill receipt ─────────────────────────────────────────────────────────────

// Header is the restaurant block printed above every receipt.
type Header struct {
	Name    string
	Address string
	Phone   string
	GSTIN   string
	Footer  string
}

// BillView is the data a receipt is drawn from. Totals must come from
// billing.Calculate so the printed numbers equal the saved ones.
type BillView struct {
	Header     Header
	BillNumber string
	TableName  string
	Persons    int
	Staff      string
	Date       time.Time
	Totals     billing.Totals
}

// BuildBillDocument lays out a customer receipt. Every money field is
// formatted with money, so one document never mixes formatting rules.
func BuildBillDocument(v BillView, money MoneyFormat) Document {
	if money == nil {
		money = billing.FormatFixed
	}
	doc := Document{Title: "Bill " + v.BillNumber}
	doc.Heading(v.Header.Name).
		Centered(v.Header.Address).
		Centered(phoneLine(v.Header.Phone)).
		Centered(gstinLine(v.Header.GSTIN)).
		Separator().
		Pair("Bill No", v.BillNumber).
		Pair("Date", v.Date.Format("02/01/2006 15:04"))
	if v.TableName != "" {
		doc.Pair("Table", v.TableName)
	}
	if v.Persons > 0 {
		doc.Pair("Persons", strconv.Itoa(v.Persons))
	}
	if v.Staff != "" {
		doc.Pair("Staff", v.Staff)
	}
	doc.Separator().BoldPair("Item", "Amount").Separator()

	for _, l := range v.Totals.Lines {
		doc.Pair(l.Name, money(l.FinalAmount))
		detail := fmt.Sprintf("  %d x %s", l.Quantity, money(l.Price))
		if l.DiscountAmount.IsPositive() {
			detail += " - " + money(l.DiscountAmount)
		}
		doc.Text(detail)
	}

	t := v.Totals
	doc.Separator().Pair("Subtotal", money(t.Subtotal))
	for _, ch := range t.AdditionalCharges {
		doc.Pair(ch.Name, money(ch.Amount))
	}
	if t.DiscountAmount.IsPositive() {
		doc.Pair("Discount", "-"+money(t.DiscountAmount))
	}
	if t.CGST.IsPositive() {
		doc.Pair("CGST", money(t.CGST))
	}
	if t.SGST.IsPositive() {
		doc.Pair("SGST", money(t.SGST))
	}
	doc.Separator().
		BoldPair("TOTAL", money(t.GrandTotal)).
		Separator()
	if t.ItemDiscountTotal.IsPositive() {
		doc.Centered("You saved " + money(t.ItemDiscountTotal))
	}
	footer := v.Header.Footer
	if footer == "" {
		footer = "Thank you! Visit again"
	}
	doc.Centered(footer).Feed()
	return doc
}

func phoneLine(p string) string {
	if p == "" {
		return ""
	}
	return "Ph: " + p
}

func gstinLine(g string) string {
	if g == "" {
		return ""
	}
	return "GSTIN: " + g
}

// ── Kitchen order ticket ─────────────────────────────────────────────────────

// KOTView is a print run of one or more tickets for a table.
type KOTView struct {
	Restaurant string
	TableName  string
	Staff      string
	Tickets    []kot.Ticket
}

// BuildKOTDocument lays out every ticket of the run in order, separated by a
// cut line. Lines with quantity 0 are not printed.
func BuildKOTDocument(v KOTView) Document {
	doc := Document{Title: "KOT " + v.TableName}
	for i, t := range v.Tickets {
		if i > 0 {
			doc.Feed().Centered(strings.Repeat("- ", 12)).Feed()
		}
		doc.Heading(fmt.Sprintf("KOT #%d", t.Number))
		if v.Restaurant != "" {
			doc.Centered(v.Restaurant)
		}
		doc.Separator().
			Pair("Table", v.TableName).
			Pair("Time", t.CreatedAt.Format("02/01 15:04"))
		if v.Staff != "" {
			doc.Pair("By", v.Staff)
		}
		doc.Separator().BoldPair("Item", "Qty").Separator()
		for _, it := range kot.VisibleItems(t) {
			doc.BoldPair(it.Name, strconv.Itoa(it.Quantity))
			if it.SpicePercent > 0 {
				doc.Text(fmt.Sprintf("  Spice: %d%%", it.SpicePercent))
			}
			if it.IsJain {
				doc.Text("  ** JAIN **")
			}
			if it.Note != "" {
				doc.Text("  Note: " + it.Note)
			}
		}
		doc.Separator()
	}
	return doc
}
