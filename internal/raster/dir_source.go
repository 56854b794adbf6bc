package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/airbusgeo/godal"
)

// DirSource reads tile_{row}_{col}_mask.{tif,png} files from a directory.
// GeoTIFF masks carry their own pixel size; PNG masks use DefaultGSD.
type DirSource struct {
	Dir        string
	DefaultGSD float64
}

func NewDirSource(dir string, defaultGSD float64) *DirSource {
	return &DirSource{Dir: dir, DefaultGSD: defaultGSD}
}

func (s *DirSource) Tiles(ctx context.Context) ([]report.TileIndex, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("error reading mask folder: %w", err)
	}
	seen := make(map[report.TileIndex]bool)
	var tiles []report.TileIndex
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), "_mask.") {
			continue
		}
		tile, ok := ParseTileName(entry.Name())
		if !ok || seen[tile] {
			continue
		}
		seen[tile] = true
		tiles = append(tiles, tile)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	return tiles, nil
}

func (s *DirSource) Load(ctx context.Context, tile report.TileIndex) (landcover.Mask, float64, error) {
	if err := ctx.Err(); err != nil {
		return landcover.Mask{}, 0, err
	}
	for _, ext := range []string{"tif", "tiff"} {
		path := filepath.Join(s.Dir, MaskFileName(tile, ext))
		if _, err := os.Stat(path); err == nil {
			return ReadMaskTIFF(path, s.DefaultGSD)
		}
	}
	path := filepath.Join(s.Dir, MaskFileName(tile, "png"))
	mask, err := ReadMaskPNG(path)
	if err != nil {
		return landcover.Mask{}, 0, err
	}
	return mask, s.DefaultGSD, nil
}

func openDataset(path string) (*godal.Dataset, error) {
	return godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
}

// ReadMaskTIFF loads band 1 of a GeoTIFF as class codes. The ground sampling
// distance comes from the geotransform when the file is in a projected CRS.
func ReadMaskTIFF(path string, defaultGSD float64) (landcover.Mask, float64, error) {
	ds, err := openDataset(path)
	if err != nil {
		return landcover.Mask{}, 0, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.NBands < 1 {
		return landcover.Mask{}, 0, fmt.Errorf("mask %s has no bands", path)
	}
	width, height := structure.SizeX, structure.SizeY
	buf := make([]uint8, width*height)
	if err := ds.Bands()[0].Read(0, 0, buf, width, height); err != nil {
		return landcover.Mask{}, 0, fmt.Errorf("failed to read mask %s: %w", path, err)
	}

	mask := landcover.NewMask(width, height)
	for i, v := range buf {
		mask.Pix[i] = landcover.ClassCode(v)
	}

	gsd := defaultGSD
	if gt, err := ds.GeoTransform(); err == nil && ds.Projection() != "" {
		gsd = PixelSizeMetres(gt, ds.SpatialRef().Geographic(), defaultGSD)
	}
	return mask, gsd, nil
}

// PixelSizeMetres is the pixel edge from a geotransform. Geographic rasters
// are in degrees, so they keep defaultGSD.
func PixelSizeMetres(gt [6]float64, geographic bool, defaultGSD float64) float64 {
	if geographic || gt[1] == 0 || math.IsNaN(gt[1]) {
		return defaultGSD
	}
	return math.Abs(gt[1])
}

// ReadMaskPNG loads an 8-bit grayscale PNG whose gray level is the class code.
func ReadMaskPNG(path string) (landcover.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return landcover.Mask{}, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return landcover.Mask{}, fmt.Errorf("failed to decode mask %s: %w", path, err)
	}
	return MaskFromImage(img)
}

// MaskFromImage converts a grayscale image into a mask.
func MaskFromImage(img image.Image) (landcover.Mask, error) {
	b := img.Bounds()
	mask := landcover.NewMask(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
			for x, v := range row {
				mask.Pix[y*mask.Width+x] = landcover.ClassCode(v)
			}
		}
		return mask, nil
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				return landcover.Mask{}, fmt.Errorf("mask pixel (%d,%d) is not grayscale", x, y)
			}
			mask.Pix[(y-b.Min.Y)*mask.Width+(x-b.Min.X)] = landcover.ClassCode(r >> 8)
		}
	}
	return mask, nil
}

// MaskToImage is the inverse of MaskFromImage.
func MaskToImage(mask landcover.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for i, code := range mask.Pix {
		img.Pix[i] = uint8(code)
	}
	return img
}

// WriteMaskPNG stores a mask as an 8-bit grayscale PNG.
func WriteMaskPNG(path string, mask landcover.Mask) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mask file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, MaskToImage(mask)); err != nil {
		return fmt.Errorf("failed to encode mask %s: %w", path, err)
	}
	return nil
}
