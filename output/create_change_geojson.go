package output

import (
	"fmt"
	"os"

	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TileBound returns the geographic bounds of a tile when the region is
// partitioned into a rows x cols grid, row 0 being the northern edge.
func TileBound(region orb.Bound, rows, cols int, tile report.TileIndex) orb.Bound {
	dLon := (region.Max[0] - region.Min[0]) / float64(cols)
	dLat := (region.Max[1] - region.Min[1]) / float64(rows)
	west := region.Min[0] + float64(tile.Col)*dLon
	north := region.Max[1] - float64(tile.Row)*dLat
	return orb.Bound{
		Min: orb.Point{west, north - dLat},
		Max: orb.Point{west + dLon, north},
	}
}

// GridSize infers the grid partition from the highest tile index seen.
func GridSize(r report.Report) (int, int) {
	rows, cols := 0, 0
	track := func(t report.TileIndex) {
		if t.Row+1 > rows {
			rows = t.Row + 1
		}
		if t.Col+1 > cols {
			cols = t.Col + 1
		}
	}
	for _, t := range r.Tiles {
		track(t.TileIndex)
	}
	for _, s := range r.Skipped {
		track(s.TileIndex)
	}
	return rows, cols
}

// ChangeFeatureCollection builds one polygon feature per processed tile with
// its per-rule pixel counts and areas, and one per skipped tile.
func ChangeFeatureCollection(r report.Report, region orb.Bound) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	rows, cols := GridSize(r)
	if rows == 0 || cols == 0 {
		return fc
	}

	for _, t := range r.Tiles {
		f := geojson.NewFeature(TileBound(region, rows, cols, t.TileIndex).ToPolygon())
		f.Properties["row"] = t.Row
		f.Properties["col"] = t.Col
		f.Properties["status"] = "processed"
		total := 0.0
		for key, c := range t.Changes {
			f.Properties[key+"_pixels"] = c.Pixels
			f.Properties[key+"_area_sqm"] = c.AreaSqm
			total += c.AreaSqm
		}
		f.Properties["total_change_sqm"] = total
		fc.Append(f)
	}
	for _, s := range r.Skipped {
		f := geojson.NewFeature(TileBound(region, rows, cols, s.TileIndex).ToPolygon())
		f.Properties["row"] = s.Row
		f.Properties["col"] = s.Col
		f.Properties["status"] = "skipped"
		f.Properties["reason"] = s.Reason
		fc.Append(f)
	}
	return fc
}

func CreateChangeGeoJson(r report.Report, region orb.Bound, outputGeojsonPath string) error {
	data, err := ChangeFeatureCollection(r, region).MarshalJSON()
	if err != nil {
		return fmt.Errorf("error encoding GeoJSON: %w", err)
	}
	if err := os.WriteFile(outputGeojsonPath, data, 0644); err != nil {
		return fmt.Errorf("error creating GeoJSON file: %w", err)
	}
	return nil
}
