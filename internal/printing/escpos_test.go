package printing

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_KeyValuePadsToWidth(t *testing.T) {
	s := NewStream(20)
	s.KeyValue("Subtotal", "400")
	out := s.Bytes()[2:] // skip ESC @
	assert.Equal(t, "Subtotal         400\n", string(out))
}

func TestStream_KeyValueWrapsLongKey(t *testing.T) {
	s := NewStream(16)
	s.KeyValue("Paneer Butter Masala Full", "440")
	lines := bytes.Split(bytes.TrimSuffix(s.Bytes()[2:], []byte{lf}), []byte{lf})
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 16)
	}
	assert.True(t, bytes.HasSuffix(lines[1], []byte("440")))
}

func TestStream_RasterHeader(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 12, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(0, 0, color.Black)
	img.Set(9, 1, color.Black)

	out := NewStream(0).Raster(img).Bytes()[2:]
	require.Len(t, out, 8+2*2)
	assert.Equal(t, []byte{gs, 'v', '0', 0, 2, 0, 2, 0}, out[:8])
	assert.Equal(t, []byte{0x80, 0x00}, out[8:10])
	assert.Equal(t, []byte{0x00, 0x40}, out[10:12])
}

func TestEncodeText_EndsWithCut(t *testing.T) {
	doc := Document{}
	doc.Heading("KOT #1").Separator().Pair("Roti", "2")
	out := EncodeText(doc, SelectProfile(Width2Inch))
	assert.True(t, bytes.HasPrefix(out, []byte{esc, '@'}))
	assert.True(t, bytes.HasSuffix(out, []byte{gs, 'V', 0x42, 0x00}))
	assert.Contains(t, string(out), "KOT #1")
	assert.Contains(t, string(out), "--------------------------------")
}

func TestEncodeRaster_WrapsImage(t *testing.T) {
	img := Render(Document{Lines: []Line{{Kind: LineText, Text: "hi"}}}, SelectProfile(Width2Inch), DefaultRasterScale)
	out := EncodeRaster(img)
	assert.True(t, bytes.HasPrefix(out, []byte{esc, '@', esc, 'a', byte(AlignCenter), gs, 'v', '0'}))
}
