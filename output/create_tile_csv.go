package output

import (
	"fmt"
	"os"
	"sort"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/gocarina/gocsv"
)

// TileRow is one line of the per-tile CSV export.
type TileRow struct {
	Row          int     `csv:"row"`
	Col          int     `csv:"col"`
	Change       string  `csv:"change"`
	Pixels       int64   `csv:"pixels"`
	AreaSqm      float64 `csv:"area_sqm"`
	AreaHectares float64 `csv:"area_hectares"`
	AreaAcres    float64 `csv:"area_acres"`
	AreaSqkm     float64 `csv:"area_sqkm"`
}

func TileRows(r report.Report) []*TileRow {
	var rows []*TileRow
	for _, t := range r.Tiles {
		keys := make([]string, 0, len(t.Changes))
		for key := range t.Changes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			c := t.Changes[key]
			rows = append(rows, &TileRow{
				Row:          t.Row,
				Col:          t.Col,
				Change:       key,
				Pixels:       c.Pixels,
				AreaSqm:      c.AreaSqm,
				AreaHectares: c.AreaSqm * area.SqmToHectares,
				AreaAcres:    c.AreaSqm * area.SqmToAcres,
				AreaSqkm:     c.AreaSqm * area.SqmToSqkm,
			})
		}
	}
	return rows
}

func CreateTileCSV(r report.Report, outputCSVPath string) error {
	file, err := os.Create(outputCSVPath)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	rows := TileRows(r)
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("error writing CSV file: %w", err)
	}
	return nil
}
