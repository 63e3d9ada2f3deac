package printing

import (
	"image/color"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tablepos/internal/billing"
	"tablepos/internal/cart"
	"tablepos/internal/kot"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTotals() billing.Totals {
	return billing.Calculate(billing.Input{
		Items: []cart.Item{
			{ID: "1", Name: "Paneer Butter Masala", Price: decimal.NewFromInt(220), Quantity: 2, DiscountAmount: decimal.NewFromInt(40)},
		},
		AdditionalCharges: []billing.Charge{{Name: "Packing", Amount: decimal.NewFromInt(5)}},
		DiscountAmount:    decimal.NewFromInt(10),
		CGST:              decimal.NewFromInt(10),
		SGST:              decimal.NewFromInt(10),
	})
}

func sampleBill() BillView {
	return BillView{
		Header:     Header{Name: "Spice Route", Address: "12 MG Road, Pune", Phone: "020-5550101"},
		BillNumber: "20260314193000123",
		TableName:  "T4",
		Persons:    3,
		Staff:      "ravi",
		Date:       time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC),
		Totals:     sampleTotals(),
	}
}

func pairValue(doc Document, label string) (string, bool) {
	for _, l := range doc.Lines {
		if l.Kind == LinePair && l.Text == label {
			return l.Value, true
		}
	}
	return "", false
}

func TestBuildBillDocument_UsesOneMoneyFormat(t *testing.T) {
	fixed := BuildBillDocument(sampleBill(), billing.FormatFixed)
	v, ok := pairValue(fixed, "TOTAL")
	require.True(t, ok)
	assert.Equal(t, "415.00", v)
	v, _ = pairValue(fixed, "Subtotal")
	assert.Equal(t, "400.00", v)

	compact := BuildBillDocument(sampleBill(), billing.FormatCompact)
	v, _ = pairValue(compact, "TOTAL")
	assert.Equal(t, "415", v)
}

func TestBuildKOTDocument_SkipsZeroQuantityLines(t *testing.T) {
	tk := kot.Ticket{
		ID: uuid.New(), Number: 3, CreatedAt: time.Now(),
		Items: []cart.Item{
			{ID: "1", Name: "Raita", Quantity: 0},
			{ID: "2", Name: "Roti", Quantity: 2, IsJain: true, Note: "no butter"},
		},
	}
	doc := BuildKOTDocument(KOTView{TableName: "T1", Tickets: []kot.Ticket{tk}})

	_, hasRaita := pairValue(doc, "Raita")
	assert.False(t, hasRaita)
	q, ok := pairValue(doc, "Roti")
	require.True(t, ok)
	assert.Equal(t, "2", q)

	var texts []string
	for _, l := range doc.Lines {
		texts = append(texts, l.Text)
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "KOT #3")
	assert.Contains(t, joined, "JAIN")
	assert.Contains(t, joined, "no butter")
}

func TestRender_WidthFollowsProfile(t *testing.T) {
	doc := BuildBillDocument(sampleBill(), nil)
	for _, tc := range []struct {
		width string
		want  int
	}{
		{Width2Inch, 380},
		{Width3Inch, 570},
		{"", 570},
	} {
		img := Render(doc, SelectProfile(tc.width), DefaultRasterScale)
		assert.Equal(t, tc.want, img.Bounds().Dx(), tc.width)
		assert.Greater(t, img.Bounds().Dy(), 0)
	}
}

func TestRender_ZeroScaleUsesDefault(t *testing.T) {
	p := SelectProfile(Width2Inch)
	img := Render(Document{Lines: []Line{{Kind: LineText, Text: "x"}}}, p, 0)
	assert.Equal(t, 380, img.Bounds().Dx())
}

func TestRender_WhiteBackgroundWithInk(t *testing.T) {
	img := Render(BuildBillDocument(sampleBill(), nil), SelectProfile(Width3Inch), 1)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r&g&b)

	dark := false
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !dark; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 64 {
				dark = true
				break
			}
		}
	}
	assert.True(t, dark)
}

func TestLayout_LongLinesWrapInsideWidth(t *testing.T) {
	p := SelectProfile(Width2Inch)
	long := strings.Repeat("Hyderabadi Dum Biryani Special ", 3)
	doc := Document{}
	doc.Pair(long, "1234.00").Text("  " + long).Heading(long).Text(strings.Repeat("X", 80))

	rows := layout(doc, p)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		if r.sep || r.feed {
			continue
		}
		used := utf8.RuneCountInString(r.left)
		if r.right != "" {
			used += 1 + utf8.RuneCountInString(r.right)
		}
		assert.LessOrEqual(t, used, p.maxChars(r.scale), "%q", r.left)
	}
	assert.Greater(t, len(rows), 6)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"ab cd", "ef"}, wrap("ab cd ef", 5))
	assert.Equal(t, []string{"abcde", "fgh"}, wrap("abcdefgh", 5))
	assert.Equal(t, []string{"  ab", "  cd"}, wrap("  ab cd", 4))
	assert.Equal(t, []string{""}, wrap("   ", 4))
}

func TestEncodeBase64_PNGHeader(t *testing.T) {
	img := Render(Document{Lines: []Line{{Kind: LineText, Text: "ok"}}}, SelectProfile(Width2Inch), 1)
	b64, err := EncodeBase64(img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b64, "iVBORw0KGgo"))

	uri, err := DataURI(img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
