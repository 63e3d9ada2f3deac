package printing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultRasterScale is the pixel density multiplier applied to the logical
// layout before the image leaves the renderer.
const DefaultRasterScale = 1.9

const (
	glyphW      = 7
	glyphH      = 13
	glyphAscent = 11
	rowGap      = 3
	sepHeight   = 7
)

var face = basicfont.Face7x13

// row is one physical line after wrapping.
type row struct {
	left  string
	right string
	align Align
	bold  bool
	scale int
	sep   bool
	feed  bool
}

func (r row) height() int {
	switch {
	case r.sep:
		return sepHeight
	case r.feed:
		return glyphH
	}
	return glyphH*r.scale + rowGap
}

// maxChars is how many glyphs of the given scale fit between the paddings.
// One extra pixel is reserved for the bold offset.
func (p Profile) maxChars(scale int) int {
	inner := p.ContentWidth - 2*p.Padding - scale
	n := inner / (glyphW * scale)
	if n < 1 {
		return 1
	}
	return n
}

// layout wraps every document line to the profile width.
func layout(doc Document, p Profile) []row {
	var rows []row
	for _, ln := range doc.Lines {
		scale := p.BodyScale
		if ln.Title {
			scale = p.TitleScale
		}
		limit := p.maxChars(scale)

		switch ln.Kind {
		case LineSeparator:
			rows = append(rows, row{sep: true})
		case LineFeed:
			rows = append(rows, row{feed: true})
		case LineText:
			for _, s := range wrap(ln.Text, limit) {
				rows = append(rows, row{left: s, align: ln.Align, bold: ln.Bold, scale: scale})
			}
		case LinePair:
			rows = append(rows, layoutPair(ln, scale, limit)...)
		}
	}
	return rows
}

func layoutPair(ln Line, scale, limit int) []row {
	vlen := utf8.RuneCountInString(ln.Value)
	if utf8.RuneCountInString(ln.Text)+1+vlen <= limit {
		return []row{{left: ln.Text, right: ln.Value, bold: ln.Bold, scale: scale}}
	}

	var rows []row
	labels := wrap(ln.Text, limit)
	last := labels[len(labels)-1]
	for _, s := range labels[:len(labels)-1] {
		rows = append(rows, row{left: s, bold: ln.Bold, scale: scale})
	}
	if utf8.RuneCountInString(last)+1+vlen <= limit {
		return append(rows, row{left: last, right: ln.Value, bold: ln.Bold, scale: scale})
	}
	rows = append(rows, row{left: last, bold: ln.Bold, scale: scale})
	for _, s := range wrap(ln.Value, limit) {
		rows = append(rows, row{left: s, align: AlignRight, bold: ln.Bold, scale: scale})
	}
	return rows
}

// wrap breaks s into rows of at most limit runes, on spaces where possible.
// Leading indentation is repeated on continuation rows.
func wrap(s string, limit int) []string {
	trimmed := strings.TrimLeft(s, " ")
	indent := s[:len(s)-len(trimmed)]
	if utf8.RuneCountInString(indent) >= limit {
		indent = ""
	}
	width := limit - utf8.RuneCountInString(indent)

	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return []string{""}
	}

	var out []string
	cur := ""
	flush := func() {
		out = append(out, indent+cur)
		cur = ""
	}
	for _, w := range words {
		for utf8.RuneCountInString(w) > width {
			if cur != "" {
				flush()
			}
			r := []rune(w)
			out = append(out, indent+string(r[:width]))
			w = string(r[width:])
		}
		switch {
		case cur == "":
			cur = w
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(w) <= width:
			cur += " " + w
		default:
			flush()
			cur = w
		}
	}
	if cur != "" {
		flush()
	}
	return out
}

// Render draws doc on a white canvas the width of the profile and scales it
// by scale (DefaultRasterScale when ≤ 0). Output width is always
// round(ContentWidth × scale).
func Render(doc Document, p Profile, scale float64) *image.RGBA {
	if scale <= 0 {
		scale = DefaultRasterScale
	}
	rows := layout(doc, p)

	h := 2 * p.Padding
	for _, r := range rows {
		h += r.height()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, p.ContentWidth, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)

	y := p.Padding
	for _, r := range rows {
		switch {
		case r.sep:
			mid := y + sepHeight/2
			for x := p.Padding; x < p.ContentWidth-p.Padding; x++ {
				if x%4 != 3 {
					canvas.Set(x, mid, color.Black)
				}
			}
		case r.feed:
		default:
			drawRow(canvas, p, r, y)
		}
		y += r.height()
	}

	out := image.NewRGBA(image.Rect(0, 0,
		int(math.Round(float64(p.ContentWidth)*scale)),
		int(math.Round(float64(h)*scale))))
	xdraw.Draw(out, out.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), canvas, canvas.Bounds(), xdraw.Over, nil)
	return out
}

func textWidth(s string, scale int) int {
	return (utf8.RuneCountInString(s)*glyphW + 1) * scale
}

func drawRow(dst *image.RGBA, p Profile, r row, y int) {
	w := textWidth(r.left, r.scale)
	x := p.Padding
	switch r.align {
	case AlignCenter:
		x = (p.ContentWidth - w) / 2
	case AlignRight:
		x = p.ContentWidth - p.Padding - w
	}
	if x < p.Padding {
		x = p.Padding
	}
	drawText(dst, x, y, r.left, r.scale, r.bold)
	if r.right != "" {
		drawText(dst, p.ContentWidth-p.Padding-textWidth(r.right, r.scale), y, r.right, r.scale, r.bold)
	}
}

func drawText(dst *image.RGBA, x, y int, s string, scale int, bold bool) {
	if s == "" {
		return
	}
	w := utf8.RuneCountInString(s)*glyphW + 1
	glyphs := image.NewRGBA(image.Rect(0, 0, w, glyphH))
	d := &font.Drawer{Dst: glyphs, Src: image.Black, Face: face, Dot: fixed.P(0, glyphAscent)}
	d.DrawString(s)
	if bold {
		d.Dot = fixed.P(1, glyphAscent)
		d.DrawString(s)
	}
	target := image.Rect(x, y, x+w*scale, y+glyphH*scale)
	xdraw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

// EncodePNG serialises img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("printing: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 is the PNG of img in standard base64, without a data: prefix.
func EncodeBase64(img image.Image) (string, error) {
	raw, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DataURI is EncodeBase64 with the image/png data: prefix.
func DataURI(img image.Image) (string, error) {
	b64, err := EncodeBase64(img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + b64, nil
}
