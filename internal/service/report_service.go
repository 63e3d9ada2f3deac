package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetBills = "Bills"
	sheetDaily = "Daily"
	sheetCash  = "Cash"
	topItems   = 5
	reportPage = 500
)

// ReportService exports saved bills and cash entries as a spreadsheet and
// summarises a date range for the dashboard.
type ReportService interface {
	BillsXLSX(ctx context.Context, sess Session, filter dto.BillFilter) ([]byte, error)
	Summary(ctx context.Context, sess Session, filter dto.SummaryFilter) (*dto.SummaryResponse, error)
}

type reportService struct {
	bills repository.BillRepository
	cash  repository.CashEntryRepository
	now   func() time.Time
}

func NewReportService(bills repository.BillRepository, cash repository.CashEntryRepository, now func() time.Time) ReportService {
	if now == nil {
		now = time.Now
	}
	return &reportService{bills: bills, cash: cash, now: now}
}

var billColumns = []interface{}{
	"Bill No", "Saved", "Table", "Persons", "Staff", "Items",
	"Subtotal", "Charges", "Discount", "CGST", "SGST", "Total", "Original Bill",
}

var dailyColumns = []interface{}{
	"Date", "Bills", "Subtotal", "Charges", "Discount", "CGST", "SGST", "Total", "Income", "Expense", "Net",
}

var cashColumns = []interface{}{"Date", "Kind", "Category", "Amount", "Note", "Staff"}

type dayTotals struct {
	bills int

	subtotal, charges, discount, cgst, sgst, total decimal.Decimal
	income, expense                                decimal.Decimal
}

func (d *dayTotals) net() decimal.Decimal { return d.total.Add(d.income).Sub(d.expense) }

func (s *reportService) collect(ctx context.Context, sess Session, filter dto.BillFilter) ([]model.Bill, error) {
	if filter.Status == "" {
		filter.Status = model.BillSaved
	}
	filter.Limit = reportPage
	var out []model.Bill
	for page := 1; ; page++ {
		filter.Page = page
		rows, total, err := s.bills.List(ctx, sess.RestaurantID, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < reportPage || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

// BillsXLSX writes one row per bill on "Bills", the cash entries of the same
// date range on "Cash", and a per-day summary on "Daily". Amounts are the
// stored bill totals.
func (s *reportService) BillsXLSX(ctx context.Context, sess Session, filter dto.BillFilter) ([]byte, error) {
	bills, err := s.collect(ctx, sess, filter)
	if err != nil {
		return nil, err
	}
	entries, err := cashEntries(ctx, s.cash, sess.RestaurantID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetBills); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetCash, sheetDaily} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetBills, "A1", &billColumns); err != nil {
		return nil, err
	}
	days := map[string]*dayTotals{}
	for i := range bills {
		b := &bills[i]
		items, err := b.CartItems()
		if err != nil {
			return nil, fmt.Errorf("bill %s: %w", b.ID, err)
		}
		day, saved := "", ""
		if b.SavedAt != nil {
			day = b.SavedAt.Format("2006-01-02")
			saved = b.SavedAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			deref(b.BillNumber), saved, b.TableLabel, b.Persons, b.StaffName, len(items),
			money(b.Subtotal), money(b.AdditionalTotal), money(b.DiscountAmount),
			money(b.CGST), money(b.SGST), money(b.GrandTotal), deref(b.OriginalBillNumber),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetBills, cell, &row); err != nil {
			return nil, err
		}

		d := dayOf(days, day)
		d.bills++
		d.subtotal = d.subtotal.Add(b.Subtotal)
		d.charges = d.charges.Add(b.AdditionalTotal)
		d.discount = d.discount.Add(b.DiscountAmount)
		d.cgst = d.cgst.Add(b.CGST)
		d.sgst = d.sgst.Add(b.SGST)
		d.total = d.total.Add(b.GrandTotal)
	}

	if err := f.SetSheetRow(sheetCash, "A1", &cashColumns); err != nil {
		return nil, err
	}
	for i := range entries {
		e := &entries[i]
		day := e.EntryDate.Format(dateLayout)
		row := []interface{}{day, e.Kind, e.Category, money(e.Signed()), e.Note, e.StaffName}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetCash, cell, &row); err != nil {
			return nil, err
		}
		d := dayOf(days, day)
		if e.Kind == model.CashExpense {
			d.expense = d.expense.Add(e.Amount)
		} else {
			d.income = d.income.Add(e.Amount)
		}
	}

	if err := f.SetSheetRow(sheetDaily, "A1", &dailyColumns); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		d := days[k]
		row := []interface{}{
			k, d.bills, money(d.subtotal), money(d.charges), money(d.discount),
			money(d.cgst), money(d.sgst), money(d.total),
			money(d.income), money(d.expense), money(d.net()),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetDaily, cell, &row); err != nil {
			return nil, err
		}
	}

	for sheet, last := range map[string]string{sheetBills: "M1", sheetCash: "F1", sheetDaily: "K1"} {
		if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheetBills, "A", "C", 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dayOf(days map[string]*dayTotals, day string) *dayTotals {
	d := days[day]
	if d == nil {
		d = &dayTotals{}
		days[day] = d
	}
	return d
}

// Summary totals saved bills and cash entries between two dates, counts the
// tables currently seated and ranks the best selling items by quantity.
func (s *reportService) Summary(ctx context.Context, sess Session, filter dto.SummaryFilter) (*dto.SummaryResponse, error) {
	today := s.now().Format(dateLayout)
	if filter.From == "" {
		filter.From = today
	}
	if filter.To == "" {
		filter.To = today
	}
	if filter.From > filter.To {
		return nil, ErrInvalidDateRange
	}

	bills, err := s.collect(ctx, sess, dto.BillFilter{From: filter.From, To: filter.To})
	if err != nil {
		return nil, err
	}
	resp := &dto.SummaryResponse{From: filter.From, To: filter.To, TopItems: []dto.TopItem{}}
	sold := map[string]*dto.TopItem{}
	for i := range bills {
		b := &bills[i]
		resp.Bills++
		resp.Persons += b.Persons
		resp.Sales = resp.Sales.Add(b.GrandTotal)
		resp.Discount = resp.Discount.Add(b.DiscountAmount)
		resp.Tax = resp.Tax.Add(b.CGST).Add(b.SGST)
		items, err := b.CartItems()
		if err != nil {
			return nil, fmt.Errorf("bill %s: %w", b.ID, err)
		}
		for _, it := range items {
			t := sold[it.Name]
			if t == nil {
				t = &dto.TopItem{Name: it.Name}
				sold[it.Name] = t
			}
			t.Quantity += it.Quantity
			t.Amount = t.Amount.Add(it.FinalAmount())
		}
	}
	if resp.Bills > 0 {
		resp.AvgBill = resp.Sales.Div(decimal.NewFromInt(int64(resp.Bills))).Round(2)
	}
	for _, t := range sold {
		resp.TopItems = append(resp.TopItems, *t)
	}
	sort.Slice(resp.TopItems, func(i, j int) bool {
		a, b := resp.TopItems[i], resp.TopItems[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if len(resp.TopItems) > topItems {
		resp.TopItems = resp.TopItems[:topItems]
	}

	resp.Income, resp.Expense, err = cashTotals(ctx, s.cash, sess.RestaurantID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	resp.Net = resp.Sales.Add(resp.Income).Sub(resp.Expense)

	open, err := s.bills.ListOpen(ctx, sess.RestaurantID)
	if err != nil {
		return nil, err
	}
	for _, b := range open {
		if items, _ := b.CartItems(); len(items) > 0 {
			resp.OpenTables++
		}
	}
	return resp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
