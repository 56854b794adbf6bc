package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/fogleman/gg"
)

const (
	chartWidth     = 900
	chartRowHeight = 48
	chartMargin    = 24
	chartLabelArea = 200
)

// CreateSummaryChart draws a horizontal bar per change type, sized by
// hectares, followed by the run totals.
func CreateSummaryChart(r report.Report, outputImagePath string) error {
	var rows []report.RuleSummary
	maxHectares := 0.0
	for _, c := range r.Changes {
		if c.AreaHectares <= 0 {
			continue
		}
		rows = append(rows, c)
		if c.AreaHectares > maxHectares {
			maxHectares = c.AreaHectares
		}
	}

	height := chartMargin*4 + chartRowHeight*(len(rows)+1)
	dc := gg.NewContext(chartWidth, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	title := "Land Cover Changes"
	if r.Region != "" {
		title = fmt.Sprintf("Land Cover Changes - %s", r.Region)
	}
	dc.DrawStringAnchored(title, chartWidth/2, chartMargin, 0.5, 0.5)

	barArea := float64(chartWidth - chartLabelArea - chartMargin*2 - 120)
	for i, c := range rows {
		y := float64(chartMargin*2 + i*chartRowHeight)
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(c.Name, chartMargin, y+chartRowHeight/2, 0, 0.5)

		w := barArea * c.AreaHectares / maxHectares
		dc.SetRGB255(int(c.Color[0]), int(c.Color[1]), int(c.Color[2]))
		dc.DrawRectangle(chartLabelArea, y+8, w, chartRowHeight-16)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f ha", c.AreaHectares), chartLabelArea+w+8, y+chartRowHeight/2, 0, 0.5)
	}

	footerY := float64(chartMargin*3 + len(rows)*chartRowHeight)
	if len(rows) == 0 {
		dc.DrawStringAnchored("No change detected", chartMargin, footerY, 0, 0.5)
		footerY += chartRowHeight / 2
	}
	dc.DrawStringAnchored(fmt.Sprintf("Total: %.2f ha (sum over change types)   Tiles: %d processed, %d skipped",
		r.TotalChangeHectares, r.TilesProcessed, r.TilesSkipped), chartMargin, footerY, 0, 0.5)

	if err := os.MkdirAll(filepath.Dir(outputImagePath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create chart folder: %w", err)
	}
	if err := dc.SavePNG(outputImagePath); err != nil {
		return fmt.Errorf("failed to save summary chart: %w", err)
	}
	return nil
}
