// Package raster loads class-label masks and imagery tiles from disk.
package raster

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
)

// MaskSource provides the class-label masks of one time point.
type MaskSource interface {
	Tiles(ctx context.Context) ([]report.TileIndex, error)
	Load(ctx context.Context, tile report.TileIndex) (landcover.Mask, float64, error)
}

var tileNamePattern = regexp.MustCompile(`^tile_(\d+)_(\d+)(?:_mask)?\.(tif|tiff|png)$`)

// ParseTileName extracts the grid index from names like tile_3_7_mask.tif.
func ParseTileName(name string) (report.TileIndex, bool) {
	m := tileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return report.TileIndex{}, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return report.TileIndex{}, false
	}
	col, err := strconv.Atoi(m[2])
	if err != nil {
		return report.TileIndex{}, false
	}
	return report.TileIndex{Row: row, Col: col}, true
}

func MaskFileName(tile report.TileIndex, ext string) string {
	return fmt.Sprintf("tile_%d_%d_mask.%s", tile.Row, tile.Col, ext)
}

func TileFileName(tile report.TileIndex) string {
	return fmt.Sprintf("tile_%d_%d.tif", tile.Row, tile.Col)
}

type memoryTile struct {
	mask landcover.Mask
	gsd  float64
}

// MemorySource keeps masks in memory, as produced by a streaming classifier.
type MemorySource struct {
	mu    sync.RWMutex
	tiles map[report.TileIndex]memoryTile
}

func NewMemorySource() *MemorySource {
	return &MemorySource{tiles: make(map[report.TileIndex]memoryTile)}
}

func (s *MemorySource) Put(tile report.TileIndex, mask landcover.Mask, gsd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles[tile] = memoryTile{mask: mask, gsd: gsd}
}

func (s *MemorySource) Tiles(ctx context.Context) ([]report.TileIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]report.TileIndex, 0, len(s.tiles))
	for tile := range s.tiles {
		out = append(out, tile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (s *MemorySource) Load(ctx context.Context, tile report.TileIndex) (landcover.Mask, float64, error) {
	if err := ctx.Err(); err != nil {
		return landcover.Mask{}, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiles[tile]
	if !ok {
		return landcover.Mask{}, 0, fmt.Errorf("tile %s not found", tile)
	}
	return t.mask, t.gsd, nil
}
