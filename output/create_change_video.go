package output

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/Pranavrh53/Geo-Watch/internal/change"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/icza/mjpeg"
)

// ClassPalette colours the default land-cover classes. Other codes are gray.
var ClassPalette = map[landcover.ClassCode]color.RGBA{
	landcover.Background: {0, 0, 0, 255},
	landcover.Urban:      {200, 200, 200, 255},
	landcover.Vegetation: {34, 139, 34, 255},
	landcover.Water:      {30, 144, 255, 255},
	landcover.Soil:       {160, 82, 45, 255},
	landcover.Road:       {90, 90, 90, 255},
}

// ClassImage renders a class-label mask with ClassPalette.
func ClassImage(mask landcover.Mask) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	fallback := color.RGBA{128, 128, 128, 255}
	for i, code := range mask.Pix {
		c, ok := ClassPalette[code]
		if !ok {
			c = fallback
		}
		img.Pix[i*4], img.Pix[i*4+1], img.Pix[i*4+2], img.Pix[i*4+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// CreateChangeVideo writes a looping before / after / changes MJPEG clip of
// one tile, each frame shown for one second.
func CreateChangeVideo(before, after landcover.Mask, masks []change.ChangeMask, outputPath string) error {
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath += ".avi"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create video folder: %w", err)
	}

	frames := []image.Image{ClassImage(before), ClassImage(after)}
	if len(masks) > 0 {
		// changes drawn over the after state
		overlay := ClassImage(after)
		changes := change.Overlay(masks, color.Transparent)
		draw.Draw(overlay, overlay.Bounds(), changes, image.Point{}, draw.Over)
		frames = append(frames, overlay)
	}

	writer, err := mjpeg.New(outputPath, int32(before.Width), int32(before.Height), 1)
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}
	for _, frame := range frames {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 100}); err != nil {
			writer.Close()
			return err
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			writer.Close()
			return err
		}
	}
	return writer.Close()
}
