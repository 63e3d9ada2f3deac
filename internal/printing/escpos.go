package printing

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"
)

// ESC/POS command bytes
const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

const (
	fontNormal = 0x00
	fontDouble = 0x11
)

// rasterBand is the number of dot rows sent per GS v 0 command; several
// printers reject taller bands.
const rasterBand = 256

// Stream builds an ESC/POS byte stream for a thermal printer.
type Stream struct {
	buf   bytes.Buffer
	width int
}

// NewStream starts a stream with ESC @ for a printer of chars columns
// (32 for 58mm paper, 48 for 80mm).
func NewStream(chars int) *Stream {
	if chars <= 0 {
		chars = 32
	}
	s := &Stream{width: chars}
	s.buf.Write([]byte{esc, '@'})
	return s
}

func (s *Stream) Align(a Align) *Stream {
	s.buf.Write([]byte{esc, 'a', byte(a)})
	return s
}

func (s *Stream) Bold(on bool) *Stream {
	b := byte(0)
	if on {
		b = 1
	}
	s.buf.Write([]byte{esc, 'E', b})
	return s
}

func (s *Stream) Double(on bool) *Stream {
	size := byte(fontNormal)
	if on {
		size = fontDouble
	}
	s.buf.Write([]byte{gs, '!', size})
	return s
}

func (s *Stream) Text(line string) *Stream {
	s.buf.WriteString(line)
	s.buf.WriteByte(lf)
	return s
}

func (s *Stream) Feed(n int) *Stream {
	for i := 0; i < n; i++ {
		s.buf.WriteByte(lf)
	}
	return s
}

func (s *Stream) Separator(char byte) *Stream {
	return s.Text(strings.Repeat(string(char), s.width))
}

// KeyValue prints key on the left and value flush right, wrapping the key
// when both do not fit on one line.
func (s *Stream) KeyValue(key, value string) *Stream {
	vlen := utf8.RuneCountInString(value)
	lines := wrap(key, s.width)
	for _, l := range lines[:len(lines)-1] {
		s.Text(l)
	}
	last := lines[len(lines)-1]
	spaces := s.width - utf8.RuneCountInString(last) - vlen
	if spaces < 1 {
		s.Text(last)
		last = ""
		spaces = s.width - vlen
		if spaces < 0 {
			spaces = 0
		}
	}
	return s.Text(last + strings.Repeat(" ", spaces) + value)
}

// Cut feeds past the tear bar and performs a partial cut.
func (s *Stream) Cut() *Stream {
	s.buf.Write([]byte{gs, 'V', 0x42, 0x00})
	return s
}

// Raster appends img as GS v 0 bit images, one band at a time. Pixels darker
// than mid-grey print.
func (s *Stream) Raster(img image.Image) *Stream {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := (w + 7) / 8

	for top := 0; top < h; top += rasterBand {
		band := rasterBand
		if top+band > h {
			band = h - top
		}
		s.buf.Write([]byte{gs, 'v', '0', 0,
			byte(rowBytes), byte(rowBytes >> 8),
			byte(band), byte(band >> 8)})
		for y := top; y < top+band; y++ {
			row := make([]byte, rowBytes)
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				if g.Y < 128 {
					row[x/8] |= 0x80 >> uint(x%8)
				}
			}
			s.buf.Write(row)
		}
	}
	return s
}

func (s *Stream) Bytes() []byte { return s.buf.Bytes() }

// EncodeText converts doc into ESC/POS text commands for printers without
// raster support. Build doc with billing.FormatCompact for this surface.
func EncodeText(doc Document, p Profile) []byte {
	s := NewStream(p.CharsPerLine)
	for _, ln := range doc.Lines {
		switch ln.Kind {
		case LineSeparator:
			s.Separator('-')
		case LineFeed:
			s.Feed(1)
		case LinePair:
			s.Bold(ln.Bold).KeyValue(ln.Text, ln.Value).Bold(false)
		case LineText:
			s.Align(ln.Align).Bold(ln.Bold).Double(ln.Title)
			limit := p.CharsPerLine
			if ln.Title {
				limit /= 2
			}
			for _, l := range wrap(ln.Text, limit) {
				s.Text(l)
			}
			s.Double(false).Bold(false).Align(AlignLeft)
		}
	}
	return s.Feed(3).Cut().Bytes()
}

// EncodeRaster wraps a rendered image in an ESC/POS job.
func EncodeRaster(img image.Image) []byte {
	return NewStream(0).Align(AlignCenter).Raster(img).Feed(3).Cut().Bytes()
}
