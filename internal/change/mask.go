package change

import (
	"image"
	"image/color"
	"math/bits"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
)

// ChangeMask is the boolean result of one rule over one tile.
type ChangeMask struct {
	Rule   landcover.TransitionRule
	Width  int
	Height int
	Bits   []bool
	count  int64
}

func (m ChangeMask) At(row, col int) bool {
	return m.Bits[row*m.Width+col]
}

// Count returns the number of true pixels.
func (m ChangeMask) Count() int64 {
	if m.count != 0 {
		return m.count
	}
	var n int64
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

func (m ChangeMask) Shape() landcover.Shape {
	return landcover.Shape{Height: m.Height, Width: m.Width}
}

// Overlay paints every mask with its rule colour. Later rules paint over
// earlier ones where they overlap.
func Overlay(masks []ChangeMask, background color.Color) *image.RGBA {
	if len(masks) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	w, h := masks[0].Width, masks[0].Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBAModel.Convert(background).(color.RGBA)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}
	for _, m := range masks {
		c := m.Rule.Color
		for p, set := range m.Bits {
			if !set {
				continue
			}
			off := p * 4
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c[0], c[1], c[2], 255
		}
	}
	return img
}

func trailingZeros(x uint64) int {
	return bits.TrailingZeros64(x)
}
