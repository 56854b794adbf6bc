package landcover

import "fmt"

// Shape is the (height, width) of a raster grid.
type Shape struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// Mask is a row-major grid of class codes for one tile at one point in time.
type Mask struct {
	Width  int
	Height int
	Pix    []ClassCode
}

func NewMask(width, height int) Mask {
	return Mask{Width: width, Height: height, Pix: make([]ClassCode, width*height)}
}

// MaskFromRows builds a mask from a slice of equally long rows.
func MaskFromRows(rows [][]ClassCode) (Mask, error) {
	if len(rows) == 0 {
		return Mask{}, nil
	}
	width := len(rows[0])
	mask := NewMask(width, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return Mask{}, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
		copy(mask.Pix[i*width:], row)
	}
	return mask, nil
}

func (m Mask) Shape() Shape {
	return Shape{Height: m.Height, Width: m.Width}
}

func (m Mask) SameShape(other Mask) bool {
	return m.Width == other.Width && m.Height == other.Height
}

func (m Mask) At(row, col int) ClassCode {
	return m.Pix[row*m.Width+col]
}

func (m Mask) Set(row, col int, code ClassCode) {
	m.Pix[row*m.Width+col] = code
}

func (m Mask) Len() int {
	return m.Width * m.Height
}

// Valid reports whether the pixel buffer matches the declared dimensions.
func (m Mask) Valid() bool {
	return m.Width >= 0 && m.Height >= 0 && len(m.Pix) == m.Width*m.Height
}
