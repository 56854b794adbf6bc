package sentinel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/raster"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

type PairRequest struct {
	Bound      orb.Bound
	Before     time.Time
	After      time.Time
	WindowDays int
	OutDir     string
	TileSize   int
}

type Scene struct {
	Label    string
	Path     string
	TilesDir string
	Tiles    []report.TileIndex
}

type PairResult struct {
	Before Scene
	After  Scene
}

// SceneWindow is the search window ending on date.
func SceneWindow(date time.Time, windowDays int) (time.Time, time.Time) {
	if windowDays < 1 {
		windowDays = 1
	}
	end := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, time.UTC)
	return end.AddDate(0, 0, -windowDays), end
}

// FetchPair downloads both scenes concurrently and cuts each into tiles
// under OutDir/<label>/tiles.
func FetchPair(ctx context.Context, client *Client, req PairRequest) (PairResult, error) {
	var result PairResult
	if !req.After.After(req.Before) {
		return result, fmt.Errorf("after date %s must be later than before date %s", req.After.Format(time.DateOnly), req.Before.Format(time.DateOnly))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scene, err := fetchScene(gctx, client, req, req.Before)
		result.Before = scene
		return err
	})
	g.Go(func() error {
		scene, err := fetchScene(gctx, client, req, req.After)
		result.After = scene
		return err
	})
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func fetchScene(ctx context.Context, client *Client, req PairRequest, date time.Time) (Scene, error) {
	label := date.Format(time.DateOnly)
	dir := filepath.Join(req.OutDir, label)
	scene := Scene{
		Label:    label,
		Path:     filepath.Join(dir, "scene.tif"),
		TilesDir: filepath.Join(dir, "tiles"),
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return scene, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	start, end := SceneWindow(date, req.WindowDays)
	content, err := client.RequestScene(ctx, req.Bound, start, end)
	if err != nil {
		return scene, fmt.Errorf("failed to fetch scene for %s: %w", label, err)
	}
	if err := os.WriteFile(scene.Path, content, 0o644); err != nil {
		return scene, fmt.Errorf("failed to write %s: %w", scene.Path, err)
	}

	tiles, err := raster.TileScene(scene.Path, scene.TilesDir, req.TileSize)
	if err != nil {
		return scene, err
	}
	scene.Tiles = tiles
	return scene, nil
}
