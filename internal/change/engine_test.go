package change

import (
	"image/color"
	"testing"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(Options{
		Taxonomy: landcover.DefaultTaxonomy(),
		Rules:    landcover.DefaultRules(),
		NoData:   landcover.Background,
	})
	require.NoError(t, err)
	return engine
}

func mustMask(t *testing.T, rows [][]landcover.ClassCode) landcover.Mask {
	t.Helper()
	mask, err := landcover.MaskFromRows(rows)
	require.NoError(t, err)
	return mask
}

func counts(det Detection) map[string]int64 {
	out := make(map[string]int64, len(det.Masks))
	for _, m := range det.Masks {
		out[m.Rule.Identifier()] = m.Count()
	}
	return out
}

func TestDetectTwoByTwo(t *testing.T) {
	engine := newDefaultEngine(t)
	before := mustMask(t, [][]landcover.ClassCode{{2, 2}, {4, 3}})
	after := mustMask(t, [][]landcover.ClassCode{{1, 2}, {1, 3}})

	det, err := engine.Detect(before, after)
	require.NoError(t, err)
	require.Len(t, det.Masks, 5)

	got := counts(det)
	assert.Equal(t, int64(1), got["deforestation"])
	// (0,0) vegetation to urban is also new construction
	assert.Equal(t, int64(2), got["construction"])
	assert.Equal(t, int64(0), got["new_roads"])
	assert.Equal(t, int64(0), got["water_loss"])
	assert.Equal(t, int64(0), got["vegetation_gain"])

	assert.True(t, det.Masks[0].At(0, 0))
	assert.False(t, det.Masks[0].At(1, 0))
	assert.True(t, det.Masks[1].At(0, 0))
	assert.True(t, det.Masks[1].At(1, 0))
	assert.NoError(t, det.Unknown())
}

func TestDetectPreservesShape(t *testing.T) {
	engine := newDefaultEngine(t)
	before := landcover.NewMask(7, 3)
	after := landcover.NewMask(7, 3)
	after.Set(2, 6, landcover.Urban)

	det, err := engine.Detect(before, after)
	require.NoError(t, err)
	for _, m := range det.Masks {
		assert.Equal(t, before.Shape(), m.Shape())
		assert.Len(t, m.Bits, 21)
	}
}

func TestUnchangedPixelsNeverMatch(t *testing.T) {
	engine := newDefaultEngine(t)
	codes := landcover.DefaultTaxonomy().Codes()
	mask := landcover.NewMask(len(codes), 1)
	for i, code := range codes {
		mask.Set(0, i, code)
	}

	det, err := engine.Detect(mask, mask)
	require.NoError(t, err)
	for _, m := range det.Masks {
		assert.Zero(t, m.Count(), m.Rule.Name)
	}
}

func TestAllBackgroundIsZero(t *testing.T) {
	engine := newDefaultEngine(t)
	before := landcover.NewMask(64, 64)
	after := landcover.NewMask(64, 64)

	det, err := engine.Detect(before, after)
	require.NoError(t, err)
	for _, m := range det.Masks {
		assert.Zero(t, m.Count())
	}
}

func TestShapeMismatch(t *testing.T) {
	engine := newDefaultEngine(t)
	_, err := engine.Detect(landcover.NewMask(4, 4), landcover.NewMask(4, 5))

	var mismatch *landcover.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, landcover.Shape{Height: 4, Width: 4}, mismatch.Before)
	assert.Equal(t, landcover.Shape{Height: 5, Width: 4}, mismatch.After)
}

func TestMalformedMask(t *testing.T) {
	engine := newDefaultEngine(t)
	broken := landcover.Mask{Width: 2, Height: 2, Pix: make([]landcover.ClassCode, 3)}
	_, err := engine.Detect(broken, landcover.NewMask(2, 2))
	assert.Error(t, err)
}

func TestUnknownCodesMatchNoRule(t *testing.T) {
	engine := newDefaultEngine(t)
	// 9 is outside the taxonomy, so water -> 9 must not count as water loss
	before := mustMask(t, [][]landcover.ClassCode{{3, 9, 2}})
	after := mustMask(t, [][]landcover.ClassCode{{9, 9, 1}})

	det, err := engine.Detect(before, after)
	require.NoError(t, err)

	got := counts(det)
	assert.Zero(t, got["water_loss"])
	assert.Equal(t, int64(1), got["deforestation"])
	assert.Equal(t, int64(1), got["construction"])
	for _, m := range det.Masks {
		assert.False(t, m.At(0, 0), m.Rule.Name)
		assert.False(t, m.At(0, 1), m.Rule.Name)
	}
	// pixel (0,1) is unknown on both sides but counts once
	assert.Equal(t, 2, det.UnknownPixels)
	assert.Equal(t, []landcover.ClassCode{9}, det.UnknownCodes)
	assert.ErrorIs(t, det.Unknown(), landcover.ErrUnknownClassCode)
}

func TestNoDataIsPlainClassCode(t *testing.T) {
	engine, err := NewEngine(Options{
		Taxonomy: landcover.DefaultTaxonomy(),
		Rules: []landcover.TransitionRule{
			{Key: "cleared", Name: "Cleared", From: []landcover.ClassCode{landcover.Vegetation}, To: []landcover.ClassCode{landcover.Background}},
		},
	})
	require.NoError(t, err)

	det, err := engine.Detect(
		mustMask(t, [][]landcover.ClassCode{{2, 0}}),
		mustMask(t, [][]landcover.ClassCode{{0, 2}}),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), det.Masks[0].Count())
	assert.True(t, det.Masks[0].At(0, 0))
}

func TestNewEngineConfigurationErrors(t *testing.T) {
	taxonomy := landcover.DefaultTaxonomy()
	tests := []struct {
		name string
		opts Options
	}{
		{"no rules", Options{Taxonomy: taxonomy}},
		{"empty taxonomy", Options{Rules: landcover.DefaultRules()}},
		{"empty from", Options{Taxonomy: taxonomy, Rules: []landcover.TransitionRule{{Name: "x", To: []landcover.ClassCode{1}}}}},
		{"empty to", Options{Taxonomy: taxonomy, Rules: []landcover.TransitionRule{{Name: "x", From: []landcover.ClassCode{1}}}}},
		{"code outside taxonomy", Options{Taxonomy: taxonomy, Rules: []landcover.TransitionRule{{Name: "x", From: []landcover.ClassCode{1}, To: []landcover.ClassCode{42}}}}},
		{"duplicate", Options{Taxonomy: taxonomy, Rules: append(landcover.DefaultRules(), landcover.DefaultRules()[0])}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.opts)
			assert.ErrorIs(t, err, landcover.ErrConfiguration)
		})
	}
}

func TestOverlayLaterRulesWin(t *testing.T) {
	engine := newDefaultEngine(t)
	det, err := engine.Detect(
		mustMask(t, [][]landcover.ClassCode{{2, 3}}),
		mustMask(t, [][]landcover.ClassCode{{1, 3}}),
	)
	require.NoError(t, err)

	img := Overlay(det.Masks, color.Black)
	// deforestation (red) then construction (blue) on the same pixel
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(1, 0))
}
