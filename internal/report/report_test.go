package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tileResult(t *testing.T, tile TileIndex, pixels int64, counts map[string]int64) TileResult {
	t.Helper()
	accountant, err := area.NewAccountant(10)
	require.NoError(t, err)
	res := TileResult{Tile: tile, Pixels: pixels}
	for _, rule := range landcover.DefaultRules() {
		res.Rules = append(res.Rules, RuleStats{
			Key:   rule.Identifier(),
			Name:  rule.Name,
			Color: rule.Color,
			Stats: accountant.Measure(counts[rule.Identifier()]),
		})
	}
	return res
}

func meta() Meta {
	return Meta{
		RunID:     "run-1",
		Region:    "bangalore",
		GSD:       10,
		Rules:     landcover.DefaultRules(),
		CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCombineIsAssociative(t *testing.T) {
	a := FromTile(tileResult(t, TileIndex{0, 0}, 100, map[string]int64{"deforestation": 3}))
	b := FromTile(tileResult(t, TileIndex{0, 1}, 100, map[string]int64{"deforestation": 5, "water_loss": 1}))
	c := Skip(TileIndex{1, 0}, ReasonMissingAfter, nil)

	left := a.Combine(b).Combine(c).Finalize(meta())
	right := a.Combine(b.Combine(c)).Finalize(meta())
	swapped := c.Combine(b).Combine(a).Finalize(meta())

	assert.Equal(t, left, right)
	assert.Equal(t, left, swapped)

	d, ok := left.Change("deforestation")
	require.True(t, ok)
	assert.Equal(t, int64(8), d.Pixels)
	assert.Equal(t, 2, left.TilesProcessed)
	assert.Equal(t, 1, left.TilesSkipped)
}

func TestZeroAggregateIsIdentity(t *testing.T) {
	a := FromTile(tileResult(t, TileIndex{2, 3}, 50, map[string]int64{"new_roads": 4}))
	assert.Equal(t, a.Finalize(meta()), Aggregate{}.Combine(a).Finalize(meta()))
	assert.Equal(t, a.Finalize(meta()), a.Combine(Aggregate{}).Finalize(meta()))
}

func TestTotalIsSumOverRules(t *testing.T) {
	// disjoint: 3 deforestation pixels and 2 water loss pixels elsewhere
	disjoint := FromTile(tileResult(t, TileIndex{0, 0}, 100, map[string]int64{"deforestation": 3, "water_loss": 2})).Finalize(meta())
	assert.InDelta(t, 0.05, disjoint.TotalChangeHectares, 1e-12)
	assert.InDelta(t, 500, disjoint.TotalChangeSqm, 1e-9)

	// the same 2 vegetation->urban pixels count under deforestation and construction
	overlapping := FromTile(tileResult(t, TileIndex{0, 0}, 100, map[string]int64{"deforestation": 2, "construction": 2})).Finalize(meta())
	unionHectares := 2 * 100 * area.SqmToHectares
	assert.InDelta(t, 0.04, overlapping.TotalChangeHectares, 1e-12)
	assert.Greater(t, overlapping.TotalChangeHectares, unionHectares)
}

func TestFinalizeEmptyRun(t *testing.T) {
	r := Aggregate{}.Finalize(meta())

	require.Len(t, r.Changes, len(landcover.DefaultRules()))
	for _, c := range r.Changes {
		assert.Zero(t, c.Pixels)
		assert.Zero(t, c.AreaHectares)
	}
	assert.Zero(t, r.TotalChangeHectares)
	assert.Zero(t, r.TilesProcessed)
	assert.NotNil(t, r.Skipped)
}

func TestFinalizeAssignsRunID(t *testing.T) {
	m := meta()
	m.RunID = ""
	m.CreatedAt = time.Time{}
	r := Aggregate{}.Finalize(m)
	assert.Len(t, r.RunID, 36)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestSkipCarriesDetail(t *testing.T) {
	err := &landcover.ShapeMismatchError{Before: landcover.Shape{Height: 2, Width: 2}, After: landcover.Shape{Height: 3, Width: 2}}
	r := Skip(TileIndex{4, 1}, ReasonShapeMismatch, err).Finalize(meta())

	require.Len(t, r.Skipped, 1)
	assert.Equal(t, TileIndex{4, 1}, r.Skipped[0].TileIndex)
	assert.Equal(t, ReasonShapeMismatch, r.Skipped[0].Reason)
	assert.Contains(t, r.Skipped[0].Detail, "shape mismatch")
	assert.Equal(t, 1, r.TilesSkipped)
}

func TestTileFractions(t *testing.T) {
	agg := FromTile(tileResult(t, TileIndex{0, 0}, 100, map[string]int64{"deforestation": 10})).
		Combine(FromTile(tileResult(t, TileIndex{0, 1}, 100, map[string]int64{"deforestation": 30})))
	r := agg.Finalize(meta())

	d, _ := r.Change("deforestation")
	assert.InDelta(t, 0.2, d.TileFractionMean, 1e-12)
	// sample standard deviation of {0.1, 0.3}
	assert.InDelta(t, 0.1414213562, d.TileFractionStdDev, 1e-9)

	single := FromTile(tileResult(t, TileIndex{0, 0}, 100, map[string]int64{"deforestation": 10})).Finalize(meta())
	d, _ = single.Change("deforestation")
	assert.InDelta(t, 0.1, d.TileFractionMean, 1e-12)
	assert.Zero(t, d.TileFractionStdDev)
}

func TestWriteJSONFieldNames(t *testing.T) {
	r := FromTile(tileResult(t, TileIndex{0, 0}, 4, map[string]int64{"deforestation": 1})).Finalize(meta())
	path := filepath.Join(t.TempDir(), "out", "change_detection_results.json")
	require.NoError(t, WriteJSON(r, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	for _, field := range []string{"total_change_hectares", "tiles_processed", "tiles_skipped", "changes"} {
		assert.Contains(t, doc, field)
	}
	changes := doc["changes"].([]interface{})
	first := changes[0].(map[string]interface{})
	for _, field := range []string{"name", "color", "pixels", "area_sqm", "area_hectares", "area_acres", "area_sqkm"} {
		assert.Contains(t, first, field)
	}
	assert.Equal(t, []interface{}{255.0, 0.0, 0.0}, first["color"])
	assert.Equal(t, "Deforestation", first["name"])

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, r.TotalChangeHectares, back.TotalChangeHectares)
	assert.Equal(t, r.Changes, back.Changes)
}

func TestReadJSONMissing(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPrintSummaryShowsSkips(t *testing.T) {
	r := FromTile(tileResult(t, TileIndex{0, 0}, 4, map[string]int64{"deforestation": 1})).
		Combine(Skip(TileIndex{1, 1}, ReasonMissingBefore, nil)).
		Finalize(meta())
	var buf bytes.Buffer
	PrintSummary(&buf, r)

	out := buf.String()
	assert.Contains(t, out, "Deforestation")
	assert.NotContains(t, out, "Water Loss")
	assert.Contains(t, out, "tile_1_1")
	assert.Contains(t, out, ReasonMissingBefore)
}
