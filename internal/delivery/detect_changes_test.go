package delivery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/raster"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *properties.Config {
	t.Helper()
	cfg := properties.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Workers = 3
	cfg.Output.Chart = false
	return cfg
}

func mask(t *testing.T, rows [][]landcover.ClassCode) landcover.Mask {
	t.Helper()
	m, err := landcover.MaskFromRows(rows)
	require.NoError(t, err)
	return m
}

func scenarioSources(t *testing.T) (*raster.MemorySource, *raster.MemorySource) {
	before, after := raster.NewMemorySource(), raster.NewMemorySource()
	before.Put(report.TileIndex{Row: 0, Col: 0}, mask(t, [][]landcover.ClassCode{{2, 2}, {4, 3}}), 10)
	after.Put(report.TileIndex{Row: 0, Col: 0}, mask(t, [][]landcover.ClassCode{{1, 2}, {1, 3}}), 10)
	return before, after
}

func TestDetectChangesScenario(t *testing.T) {
	before, after := scenarioSources(t)

	r, err := DetectChanges(context.Background(), testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)

	d, ok := r.Change("deforestation")
	require.True(t, ok)
	assert.Equal(t, int64(1), d.Pixels)
	assert.InDelta(t, 0.01, d.AreaHectares, 1e-12)

	c, _ := r.Change("construction")
	assert.Equal(t, int64(2), c.Pixels)
	assert.InDelta(t, 0.02, c.AreaHectares, 1e-12)

	for _, key := range []string{"new_roads", "water_loss", "vegetation_gain"} {
		s, _ := r.Change(key)
		assert.Zero(t, s.Pixels, key)
	}
	// sum over rules: (0,0) is counted under two rules
	assert.InDelta(t, 0.03, r.TotalChangeHectares, 1e-12)
	assert.Equal(t, 1, r.TilesProcessed)
	assert.Zero(t, r.TilesSkipped)
}

func TestDetectChangesSkipsMismatchAndContinues(t *testing.T) {
	before, after := scenarioSources(t)
	bad := report.TileIndex{Row: 0, Col: 1}
	before.Put(bad, landcover.NewMask(2, 2), 10)
	after.Put(bad, landcover.NewMask(3, 2), 10)
	onlyBefore := report.TileIndex{Row: 1, Col: 0}
	before.Put(onlyBefore, landcover.NewMask(2, 2), 10)
	onlyAfter := report.TileIndex{Row: 1, Col: 1}
	after.Put(onlyAfter, landcover.NewMask(2, 2), 10)

	r, err := DetectChanges(context.Background(), testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)

	assert.Equal(t, 1, r.TilesProcessed)
	assert.Equal(t, 3, r.TilesSkipped)
	reasons := map[report.TileIndex]string{}
	for _, s := range r.Skipped {
		reasons[s.TileIndex] = s.Reason
	}
	assert.Equal(t, report.ReasonShapeMismatch, reasons[bad])
	assert.Equal(t, report.ReasonMissingAfter, reasons[onlyBefore])
	assert.Equal(t, report.ReasonMissingBefore, reasons[onlyAfter])

	d, _ := r.Change("deforestation")
	assert.Equal(t, int64(1), d.Pixels)
}

func TestDetectChangesGSDMismatchIsSkipped(t *testing.T) {
	before, after := scenarioSources(t)
	tile := report.TileIndex{Row: 2, Col: 2}
	before.Put(tile, landcover.NewMask(2, 2), 10)
	after.Put(tile, landcover.NewMask(2, 2), 20)

	r, err := DetectChanges(context.Background(), testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, report.ReasonShapeMismatch, r.Skipped[0].Reason)
	assert.Contains(t, r.Skipped[0].Detail, "ground sampling distance")
}

func TestDetectChangesZeroGSD(t *testing.T) {
	before, after := scenarioSources(t)
	cfg := testConfig(t)
	cfg.GroundSamplingDistanceM = 0

	_, err := DetectChanges(context.Background(), cfg, before, after, DetectOptions{Quiet: true})
	assert.ErrorIs(t, err, landcover.ErrConfiguration)
}

func TestDetectChangesAllBackground(t *testing.T) {
	before, after := raster.NewMemorySource(), raster.NewMemorySource()
	for col := 0; col < 4; col++ {
		tile := report.TileIndex{Row: 0, Col: col}
		before.Put(tile, landcover.NewMask(16, 16), 10)
		after.Put(tile, landcover.NewMask(16, 16), 10)
	}

	r, err := DetectChanges(context.Background(), testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, 4, r.TilesProcessed)
	assert.Zero(t, r.TotalChangeHectares)
	for _, c := range r.Changes {
		assert.Zero(t, c.Pixels)
	}
}

func TestDetectChangesCancelled(t *testing.T) {
	before, after := scenarioSources(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := DetectChanges(ctx, testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)
	assert.Zero(t, r.TilesProcessed)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, report.ReasonCancelled, r.Skipped[0].Reason)
}

func TestDetectChangesUnknownCodes(t *testing.T) {
	before, after := raster.NewMemorySource(), raster.NewMemorySource()
	tile := report.TileIndex{}
	before.Put(tile, mask(t, [][]landcover.ClassCode{{3, 17}}), 10)
	after.Put(tile, mask(t, [][]landcover.ClassCode{{17, 2}}), 10)

	r, err := DetectChanges(context.Background(), testConfig(t), before, after, DetectOptions{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.UnknownPixels)
	w, ok := r.Change("water_loss")
	require.True(t, ok)
	assert.Zero(t, w.Pixels)
	assert.Zero(t, r.TotalChangeHectares)
}

func TestMatchTiles(t *testing.T) {
	before := []report.TileIndex{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 1}}
	after := []report.TileIndex{{Row: 0, Col: 1}, {Row: 3, Col: 3}}

	matched, skipped := MatchTiles(before, after)
	assert.Equal(t, []report.TileIndex{{Row: 0, Col: 1}}, matched)
	assert.Equal(t, 2, skipped.TilesSkipped())
}

func TestRunRegionWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	root := t.TempDir()
	beforeDir := filepath.Join(root, "2020-01-15", "masks")
	afterDir := filepath.Join(root, "2024-01-15", "masks")
	for dir, rows := range map[string][][]landcover.ClassCode{
		beforeDir: {{2, 2}, {4, 3}},
		afterDir:  {{1, 2}, {1, 3}},
	} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, raster.MaskFileName(report.TileIndex{}, "png"))
		require.NoError(t, raster.WriteMaskPNG(path, mask(t, rows)))
	}

	result, err := RunRegion(context.Background(), cfg, RunRequest{
		Region:    "bangalore",
		BeforeDir: beforeDir,
		AfterDir:  afterDir,
		Quiet:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "2020-01-15", result.Report.BeforeLabel)
	assert.Equal(t, "2024-01-15", result.Report.AfterLabel)
	assert.FileExists(t, result.ReportPath)
	assert.FileExists(t, filepath.Join(result.OutputDir, "tiles.csv"))
	assert.FileExists(t, filepath.Join(result.OutputDir, "changes.geojson"))
	assert.NoFileExists(t, filepath.Join(result.OutputDir, "visualizations", "tile_0_0_changes.png"))

	back, err := report.ReadJSON(result.ReportPath)
	require.NoError(t, err)
	assert.InDelta(t, 0.03, back.TotalChangeHectares, 1e-12)

	summary, ok := RunHistory(cfg).Get(result.Report.RunID)
	require.True(t, ok)
	assert.Equal(t, result.ReportPath, summary.ReportPath)
}

func TestRunRegionTileRenderings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.TileImages = true
	cfg.Output.TileAnimations = true
	root := t.TempDir()
	beforeDir := filepath.Join(root, "before")
	afterDir := filepath.Join(root, "after")
	for dir, rows := range map[string][][]landcover.ClassCode{
		beforeDir: {{2, 2}, {4, 3}},
		afterDir:  {{1, 2}, {1, 3}},
	} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		path := filepath.Join(dir, raster.MaskFileName(report.TileIndex{}, "png"))
		require.NoError(t, raster.WriteMaskPNG(path, mask(t, rows)))
	}

	result, err := RunRegion(context.Background(), cfg, RunRequest{BeforeDir: beforeDir, AfterDir: afterDir, Quiet: true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.DataDir, "results", "adhoc", "before_vs_after"), result.OutputDir)
	assert.FileExists(t, filepath.Join(result.OutputDir, "visualizations", "tile_0_0_changes.png"))
	assert.FileExists(t, filepath.Join(result.OutputDir, "animations", "tile_0_0_changes.avi"))
}

func TestProcessTileKeepsInputs(t *testing.T) {
	cfg := testConfig(t)
	engine, accountant, err := NewEngine(cfg)
	require.NoError(t, err)
	before, after := scenarioSources(t)

	partial, detection := ProcessTile(context.Background(), engine, accountant, report.TileIndex{}, before, after)
	require.NotNil(t, detection)
	assert.Equal(t, 1, partial.TilesProcessed())
	assert.Equal(t, landcover.Vegetation, detection.Before.Pix[0])
	assert.Equal(t, landcover.Urban, detection.After.Pix[0])
	assert.Len(t, detection.Masks, len(cfg.Rules))

	_, detection = ProcessTile(context.Background(), engine, accountant, report.TileIndex{Row: 9, Col: 9}, before, after)
	assert.Nil(t, detection)
}
