package infra

import (
	"bytes"
	"os"
	"testing"
	"time"

	"tablepos/internal/billing"
	"tablepos/internal/cart"
	"tablepos/internal/printing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() printing.Document {
	totals := billing.Calculate(billing.Input{Items: []cart.Item{
		{ID: "1", Name: "Paneer Tikka", Price: decimal.NewFromInt(220), Quantity: 2},
	}})
	return printing.BuildBillDocument(printing.BillView{
		Header:     printing.Header{Name: "Spice Route"},
		BillNumber: "20240101120000000",
		TableName:  "T4",
		Date:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Totals:     totals,
	}, nil)
}

func TestGenerateReceiptPDF_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := GenerateReceiptPDF(sampleReceipt(), printing.SelectProfile(printing.Width2Inch), dir, "bill_1.pdf")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

func TestNewReceiptPDF_UsesPaperWidth(t *testing.T) {
	pdf := newReceiptPDF(sampleReceipt(), printing.SelectProfile(printing.Width3Inch))
	w, _ := pdf.GetPageSize()
	assert.InDelta(t, 80.0, w, 0.01)
	assert.NoError(t, pdf.Error())
}
