package infra

// pdf.go: archived receipt generation using go-pdf/fpdf.
// The PDF is laid out from the same printing.Document as the thermal print,
// at the paper width of the restaurant's printer profile, so the archived
// copy matches what the customer received.

import (
	"fmt"
	"os"
	"path/filepath"

	"tablepos/internal/printing"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 3.0 // mm
	pdfLineHeight = 4.2 // mm at body size
	pdfBodyPt     = 8.0
	pdfTitlePt    = 12.0
)

// GenerateReceiptPDF writes doc to storagePath/fileName and returns the full
// path. storagePath is created if needed.
func GenerateReceiptPDF(doc printing.Document, p printing.Profile, storagePath, fileName string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fileName)

	pdf := newReceiptPDF(doc, p)
	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func newReceiptPDF(doc printing.Document, p printing.Profile) *fpdf.Fpdf {
	width := p.PaperWidthMM
	if width <= 0 {
		width = 80
	}
	// page height grows with the document; wrapped rows get extra slack
	height := 2*pdfMargin + float64(len(doc.Lines)+4)*pdfLineHeight*1.3

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Title, false)
	pdf.AddPage()

	contentW := width - 2*pdfMargin
	for _, ln := range doc.Lines {
		style := ""
		if ln.Bold {
			style = "B"
		}
		size := pdfBodyPt
		if ln.Title {
			size = pdfTitlePt
		}
		pdf.SetFont("Helvetica", style, size)
		h := pdfLineHeight * size / pdfBodyPt

		switch ln.Kind {
		case printing.LineSeparator:
			y := pdf.GetY() + pdfLineHeight/2
			pdf.SetDashPattern([]float64{0.8, 0.6}, 0)
			pdf.Line(pdfMargin, y, width-pdfMargin, y)
			pdf.SetDashPattern([]float64{}, 0)
			pdf.Ln(pdfLineHeight)
		case printing.LineFeed:
			pdf.Ln(pdfLineHeight)
		case printing.LinePair:
			valueW := pdf.GetStringWidth(ln.Value) + 1
			if valueW > contentW/2 {
				valueW = contentW / 2
			}
			x, y := pdf.GetXY()
			pdf.MultiCell(contentW-valueW, h, ln.Text, "", "L", false)
			after := pdf.GetY()
			pdf.SetXY(x+contentW-valueW, y)
			pdf.CellFormat(valueW, h, ln.Value, "", 0, "R", false, 0, "")
			pdf.SetXY(x, after)
		default:
			pdf.MultiCell(contentW, h, ln.Text, "", alignStr(ln.Align), false)
		}
	}
	return pdf
}

func alignStr(a printing.Align) string {
	switch a {
	case printing.AlignCenter:
		return "C"
	case printing.AlignRight:
		return "R"
	default:
		return "L"
	}
}
