package landcover

import (
	"fmt"
	"sort"
)

// ClassCode is a land-cover class label emitted by the classifier for one pixel.
type ClassCode uint8

const (
	Background ClassCode = 0
	Urban      ClassCode = 1
	Vegetation ClassCode = 2
	Water      ClassCode = 3
	Soil       ClassCode = 4
	Road       ClassCode = 5
)

// Taxonomy maps every known class code to its name.
type Taxonomy map[ClassCode]string

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Background: "background",
		Urban:      "urban_built",
		Vegetation: "vegetation",
		Water:      "water",
		Soil:       "bare_soil",
		Road:       "road",
	}
}

func (t Taxonomy) Contains(code ClassCode) bool {
	_, ok := t[code]
	return ok
}

// Codes returns the taxonomy codes in ascending order.
func (t Taxonomy) Codes() []ClassCode {
	codes := make([]ClassCode, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

func (t Taxonomy) Name(code ClassCode) string {
	if name, ok := t[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", code)
}

func (t Taxonomy) Validate(noData ClassCode) error {
	if len(t) == 0 {
		return configErrorf("class taxonomy is empty")
	}
	if !t.Contains(noData) {
		return configErrorf("no-data class %d is not part of the taxonomy", noData)
	}
	return nil
}

// Sanitize returns a copy of mask where every code outside the taxonomy is
// replaced by noData, plus the number of replaced pixels.
func Sanitize(mask Mask, taxonomy Taxonomy, noData ClassCode) (Mask, int) {
	var known [256]bool
	for code := range taxonomy {
		known[code] = true
	}
	out := Mask{Width: mask.Width, Height: mask.Height, Pix: make([]ClassCode, len(mask.Pix))}
	replaced := 0
	for i, code := range mask.Pix {
		if !known[code] {
			code = noData
			replaced++
		}
		out.Pix[i] = code
	}
	return out, replaced
}
