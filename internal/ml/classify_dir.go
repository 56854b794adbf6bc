package ml

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Pranavrh53/Geo-Watch/internal/raster"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

type ClassifyResult struct {
	Classified []report.TileIndex
	Failed     map[report.TileIndex]error
}

// ClassifyDir segments every tile_<r>_<c>.tif in inDir and writes the
// matching tile_<r>_<c>_mask.tif into outDir with the source georeferencing.
// A tile that fails is recorded and the rest continue.
func ClassifyDir(ctx context.Context, classifier Classifier, inDir, outDir string, workers int, quiet bool) (ClassifyResult, error) {
	result := ClassifyResult{Failed: map[report.TileIndex]error{}}

	tiles, err := listImageTiles(inDir)
	if err != nil {
		return result, err
	}
	if len(tiles) == 0 {
		return result, fmt.Errorf("no image tiles found in %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	if workers < 1 {
		workers = 1
	}

	var bar *progressbar.ProgressBar
	if quiet {
		bar = progressbar.DefaultSilent(int64(len(tiles)))
	} else {
		bar = progressbar.Default(int64(len(tiles)), "Classifying tiles")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, tile := range tiles {
		g.Go(func() error {
			defer bar.Add(1)
			err := classifyTile(gctx, classifier, inDir, outDir, tile)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Failed to classify %s: %v\n", tile, err)
				result.Failed[tile] = err
				return nil
			}
			result.Classified = append(result.Classified, tile)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Classified, func(i, j int) bool {
		return result.Classified[i].Less(result.Classified[j])
	})
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Classified) == 0 {
		errs := make([]error, 0, len(result.Failed))
		for _, err := range result.Failed {
			errs = append(errs, err)
		}
		return result, fmt.Errorf("all %d tiles failed to classify: %w", len(tiles), errors.Join(errs...))
	}
	return result, nil
}

func classifyTile(ctx context.Context, classifier Classifier, inDir, outDir string, index report.TileIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := filepath.Join(inDir, raster.TileFileName(index))
	data, width, height, bands, err := raster.ReadBands(src)
	if err != nil {
		return err
	}
	mask, err := classifier.Segment(ctx, Tile{
		Index:  index,
		Width:  width,
		Height: height,
		Bands:  bands,
		Data:   data,
	})
	if err != nil {
		return err
	}
	ref, err := raster.ReadGeoRef(src)
	if err != nil {
		return err
	}
	return raster.WriteMaskTIFF(filepath.Join(outDir, raster.MaskFileName(index, "tif")), mask, &ref)
}

func listImageTiles(dir string) ([]report.TileIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var tiles []report.TileIndex
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.Contains(entry.Name(), "_mask.") {
			continue
		}
		index, ok := raster.ParseTileName(entry.Name())
		if !ok {
			continue
		}
		tiles = append(tiles, index)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	return tiles, nil
}
