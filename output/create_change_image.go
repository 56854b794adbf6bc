package output

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/Pranavrh53/Geo-Watch/internal/change"
	"github.com/fogleman/gg"
)

// CreateChangeImage renders every rule mask of a tile in its display colour.
func CreateChangeImage(masks []change.ChangeMask, outputImagePath string) error {
	if len(masks) == 0 {
		return fmt.Errorf("no change masks to render")
	}
	if err := os.MkdirAll(filepath.Dir(outputImagePath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create image folder: %w", err)
	}

	overlay := change.Overlay(masks, color.Black)
	dc := gg.NewContextForRGBA(overlay)
	if err := dc.SavePNG(outputImagePath); err != nil {
		return fmt.Errorf("failed to save change image: %w", err)
	}
	return nil
}
