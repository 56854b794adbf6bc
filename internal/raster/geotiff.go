package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/airbusgeo/godal"
	"github.com/schollz/progressbar/v3"
)

// GeoRef is the georeferencing copied from a source tile onto its mask.
type GeoRef struct {
	GeoTransform [6]float64
	Projection   string
}

// ReadGeoRef returns the georeferencing of a raster, if any.
func ReadGeoRef(path string) (GeoRef, error) {
	ds, err := openDataset(path)
	if err != nil {
		return GeoRef{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()
	gt, err := ds.GeoTransform()
	if err != nil {
		return GeoRef{}, err
	}
	return GeoRef{GeoTransform: gt, Projection: ds.Projection()}, nil
}

// WriteMaskTIFF stores a classifier mask as a single band byte GeoTIFF.
func WriteMaskTIFF(path string, mask landcover.Mask, ref *GeoRef) error {
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, mask.Width, mask.Height)
	if err != nil {
		return fmt.Errorf("failed to create mask %s: %w", path, err)
	}

	buf := make([]uint8, len(mask.Pix))
	for i, code := range mask.Pix {
		buf[i] = uint8(code)
	}
	if err := ds.Bands()[0].Write(0, 0, buf, mask.Width, mask.Height); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write mask %s: %w", path, err)
	}
	if ref != nil {
		if err := ds.SetGeoTransform(ref.GeoTransform); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set geotransform on %s: %w", path, err)
		}
		if ref.Projection != "" {
			if err := ds.SetProjection(ref.Projection); err != nil {
				ds.Close()
				return fmt.Errorf("failed to set projection on %s: %w", path, err)
			}
		}
	}
	return ds.Close()
}

// ReadBands loads every band of an imagery tile as float32, band-major.
func ReadBands(path string) ([]float32, int, int, int, error) {
	ds, err := openDataset(path)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("failed to open tile %s: %w", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	width, height, nBands := structure.SizeX, structure.SizeY, structure.NBands
	data := make([]float32, width*height*nBands)
	for i, band := range ds.Bands() {
		if err := band.Read(0, 0, data[i*width*height:(i+1)*width*height], width, height); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("failed to read band %d of %s: %w", i+1, path, err)
		}
	}
	return data, width, height, nBands, nil
}

// TileScene cuts a scene into tileSize x tileSize GeoTIFF tiles named by
// grid index. Partial tiles at the right and bottom edges are dropped.
func TileScene(scenePath, outDir string, tileSize int) ([]report.TileIndex, error) {
	if tileSize <= 0 {
		return nil, landcover.NewConfigurationError("tile size must be positive, got %d", tileSize)
	}
	ds, err := openDataset(scenePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene %s: %w", scenePath, err)
	}
	defer ds.Close()

	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create tile folder: %w", err)
	}

	structure := ds.Structure()
	rows, cols := structure.SizeY/tileSize, structure.SizeX/tileSize
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("scene %s (%dx%d) is smaller than one %d px tile", scenePath, structure.SizeX, structure.SizeY, tileSize)
	}

	progressBar := progressbar.Default(int64(rows*cols), "Tiling scene")
	var tiles []report.TileIndex
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			tile := report.TileIndex{Row: row, Col: col}
			dst := filepath.Join(outDir, TileFileName(tile))
			out, err := ds.Translate(dst, []string{
				"-of", "GTiff",
				"-srcwin",
				strconv.Itoa(col * tileSize), strconv.Itoa(row * tileSize),
				strconv.Itoa(tileSize), strconv.Itoa(tileSize),
			})
			if err != nil {
				return tiles, fmt.Errorf("failed to cut %s: %w", tile, err)
			}
			if err := out.Close(); err != nil {
				return tiles, fmt.Errorf("failed to close %s: %w", tile, err)
			}
			tiles = append(tiles, tile)
			progressBar.Add(1)
		}
	}
	return tiles, nil
}
