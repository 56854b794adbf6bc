package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/change"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/raster"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/Pranavrh53/Geo-Watch/output"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
)

type DetectOptions struct {
	Meta report.Meta
	// TileImageDir receives one overlay PNG per processed tile when set.
	TileImageDir string
	// TileVideoDir receives one before/after/changes clip per processed tile.
	TileVideoDir string
	Quiet        bool
}

// NewEngine builds the rule engine and the area accountant for a run.
// Any error here is a configuration error and must stop the run.
func NewEngine(cfg *properties.Config) (*change.Engine, *area.Accountant, error) {
	engine, err := change.NewEngine(change.Options{
		Taxonomy: cfg.ClassTaxonomy,
		Rules:    cfg.Rules,
		NoData:   cfg.NoDataClass,
	})
	if err != nil {
		return nil, nil, err
	}
	accountant, err := area.NewAccountant(cfg.GroundSamplingDistanceM)
	if err != nil {
		return nil, nil, err
	}
	return engine, accountant, nil
}

// MatchTiles pairs tiles by grid index. Tiles present on one side only are
// returned as skips.
func MatchTiles(before, after []report.TileIndex) ([]report.TileIndex, report.Aggregate) {
	afterSet := make(map[report.TileIndex]bool, len(after))
	for _, t := range after {
		afterSet[t] = true
	}
	beforeSet := make(map[report.TileIndex]bool, len(before))
	var matched []report.TileIndex
	var skipped report.Aggregate
	for _, t := range before {
		if beforeSet[t] {
			continue
		}
		beforeSet[t] = true
		if afterSet[t] {
			matched = append(matched, t)
		} else {
			skipped = skipped.Combine(report.Skip(t, report.ReasonMissingAfter, nil))
		}
	}
	for t := range afterSet {
		if !beforeSet[t] {
			skipped = skipped.Combine(report.Skip(t, report.ReasonMissingBefore, nil))
		}
	}
	return matched, skipped
}

// TileDetection keeps the inputs and rule masks of a processed tile for
// rendering.
type TileDetection struct {
	Before landcover.Mask
	After  landcover.Mask
	change.Detection
}

// ProcessTile compares one before/after pair. It never fails: every problem
// becomes a skip in the returned aggregate.
func ProcessTile(ctx context.Context, engine *change.Engine, accountant *area.Accountant, tile report.TileIndex, before, after raster.MaskSource) (report.Aggregate, *TileDetection) {
	if err := ctx.Err(); err != nil {
		return report.Skip(tile, report.ReasonCancelled, err), nil
	}

	beforeMask, beforeGSD, err := before.Load(ctx, tile)
	if err != nil {
		return report.Skip(tile, report.ReasonLoadError, fmt.Errorf("before: %w", err)), nil
	}
	afterMask, afterGSD, err := after.Load(ctx, tile)
	if err != nil {
		return report.Skip(tile, report.ReasonLoadError, fmt.Errorf("after: %w", err)), nil
	}

	if beforeGSD != afterGSD {
		err := &landcover.ShapeMismatchError{
			Before: beforeMask.Shape(),
			After:  afterMask.Shape(),
			Detail: fmt.Sprintf("ground sampling distance %gm vs %gm", beforeGSD, afterGSD),
		}
		return report.Skip(tile, report.ReasonShapeMismatch, err), nil
	}
	if beforeGSD != accountant.GSD() {
		log.Printf("%s: measured with the raster's own %gm pixels instead of %gm", tile, beforeGSD, accountant.GSD())
		tileAccountant, err := area.NewAccountant(beforeGSD)
		if err != nil {
			return report.Skip(tile, report.ReasonLoadError, err), nil
		}
		accountant = tileAccountant
	}

	detection, err := engine.Detect(beforeMask, afterMask)
	if err != nil {
		if errors.Is(err, landcover.ErrShapeMismatch) {
			log.Printf("%s: %v", tile, err)
			return report.Skip(tile, report.ReasonShapeMismatch, err), nil
		}
		return report.Skip(tile, report.ReasonDetectError, err), nil
	}
	if unknown := detection.Unknown(); unknown != nil {
		log.Printf("%s: %v, excluded from all rules", tile, unknown)
	}

	result := report.TileResult{
		Tile:          tile,
		Pixels:        int64(beforeMask.Len()),
		UnknownPixels: int64(detection.UnknownPixels),
		Rules:         make([]report.RuleStats, 0, len(detection.Masks)),
	}
	for _, m := range detection.Masks {
		result.Rules = append(result.Rules, report.RuleStats{
			Key:   m.Rule.Identifier(),
			Name:  m.Rule.Name,
			Color: m.Rule.Color,
			Stats: accountant.Measure(m.Count()),
		})
	}
	return report.FromTile(result), &TileDetection{Before: beforeMask, After: afterMask, Detection: detection}
}

// DetectChanges runs every matched tile pair through the engine on a worker
// pool and folds the partial results into a report.
func DetectChanges(ctx context.Context, cfg *properties.Config, before, after raster.MaskSource, opts DetectOptions) (report.Report, error) {
	engine, accountant, err := NewEngine(cfg)
	if err != nil {
		return report.Report{}, err
	}

	beforeTiles, err := before.Tiles(ctx)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to list before tiles: %w", err)
	}
	afterTiles, err := after.Tiles(ctx)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to list after tiles: %w", err)
	}

	matched, unmatched := MatchTiles(beforeTiles, afterTiles)
	if unmatched.TilesSkipped() > 0 {
		log.Printf("%d tiles have no counterpart in the other time point", unmatched.TilesSkipped())
	}

	var progressBar *progressbar.ProgressBar
	if opts.Quiet {
		progressBar = progressbar.DefaultSilent(int64(len(matched)), "Detecting changes")
	} else {
		progressBar = progressbar.Default(int64(len(matched)), "Detecting changes")
	}

	results := make(chan report.Aggregate, cfg.Workers)
	done := make(chan report.Aggregate)
	go func() {
		total := unmatched
		for partial := range results {
			total = total.Combine(partial)
			progressBar.Add(1)
		}
		done <- total
	}()

	wp := workerpool.New(cfg.Workers)
	for _, tile := range matched {
		tile := tile
		if ctx.Err() != nil {
			results <- report.Skip(tile, report.ReasonCancelled, ctx.Err())
			continue
		}
		wp.Submit(func() {
			results <- runTile(ctx, engine, accountant, tile, before, after, opts)
		})
	}
	wp.StopWait()
	close(results)
	total := <-done

	meta := opts.Meta
	meta.GSD = cfg.GroundSamplingDistanceM
	meta.Rules = cfg.Rules
	return total.Finalize(meta), nil
}

func runTile(ctx context.Context, engine *change.Engine, accountant *area.Accountant, tile report.TileIndex, before, after raster.MaskSource, opts DetectOptions) (partial report.Aggregate) {
	defer func() {
		if r := recover(); r != nil {
			partial = report.Skip(tile, report.ReasonDetectError, fmt.Errorf("panic: %v", r))
		}
	}()

	partial, detection := ProcessTile(ctx, engine, accountant, tile, before, after)
	if detection == nil {
		return partial
	}
	if opts.TileImageDir != "" {
		path := filepath.Join(opts.TileImageDir, fmt.Sprintf("%s_changes.png", tile))
		if err := output.CreateChangeImage(detection.Masks, path); err != nil {
			log.Printf("%s: failed to write change image: %v", tile, err)
		}
	}
	if opts.TileVideoDir != "" {
		path := filepath.Join(opts.TileVideoDir, fmt.Sprintf("%s_changes.avi", tile))
		if err := output.CreateChangeVideo(detection.Before, detection.After, detection.Masks, path); err != nil {
			log.Printf("%s: failed to write change clip: %v", tile, err)
		}
	}
	return partial
}
