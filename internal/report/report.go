package report

import (
	"math"
	"sort"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Meta describes the run a report belongs to.
type Meta struct {
	RunID       string
	Region      string
	BeforeLabel string
	AfterLabel  string
	GSD         float64
	Rules       []landcover.TransitionRule
	CreatedAt   time.Time
}

// RuleSummary is one entry of the changes list. Its field names are a stable
// contract with the reporting layer.
type RuleSummary struct {
	Key   string        `json:"key"`
	Name  string        `json:"name"`
	Color landcover.RGB `json:"color"`
	area.Stats
	TileFractionMean   float64 `json:"tile_fraction_mean"`
	TileFractionStdDev float64 `json:"tile_fraction_stddev"`
}

type TileChange struct {
	Pixels  int64   `json:"pixels"`
	AreaSqm float64 `json:"area_sqm"`
}

type TileEntry struct {
	TileIndex
	Pixels        int64                 `json:"tile_pixels"`
	UnknownPixels int64                 `json:"unknown_pixels,omitempty"`
	Changes       map[string]TileChange `json:"changes"`
}

// Report is the final artifact of a run.
type Report struct {
	RunID       string    `json:"run_id"`
	Region      string    `json:"region,omitempty"`
	BeforeLabel string    `json:"before_label,omitempty"`
	AfterLabel  string    `json:"after_label,omitempty"`
	GSD         float64   `json:"ground_sampling_distance_m"`
	CreatedAt   time.Time `json:"created_at"`

	Changes []RuleSummary `json:"changes"`

	// Totals are the sum over rules. Pixels matched by several rules are
	// counted once per rule.
	TotalChangeSqm      float64 `json:"total_change_sqm"`
	TotalChangeHectares float64 `json:"total_change_hectares"`

	TilesProcessed int           `json:"tiles_processed"`
	TilesSkipped   int           `json:"tiles_skipped"`
	Skipped        []SkippedTile `json:"skipped"`
	UnknownPixels  int64         `json:"unknown_pixels"`
	Tiles          []TileEntry   `json:"tiles,omitempty"`
}

// Finalize turns a complete aggregate into a report. Every rule in meta gets
// an entry, including rules that matched nothing.
func (a Aggregate) Finalize(meta Meta) Report {
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	tiles := append([]TileResult(nil), a.Tiles...)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Tile.Less(tiles[j].Tile) })
	skipped := append([]SkippedTile{}, a.Skipped...)
	sort.Slice(skipped, func(i, j int) bool {
		if skipped[i].TileIndex != skipped[j].TileIndex {
			return skipped[i].TileIndex.Less(skipped[j].TileIndex)
		}
		return skipped[i].Reason < skipped[j].Reason
	})

	r := Report{
		RunID:          meta.RunID,
		Region:         meta.Region,
		BeforeLabel:    meta.BeforeLabel,
		AfterLabel:     meta.AfterLabel,
		GSD:            meta.GSD,
		CreatedAt:      meta.CreatedAt,
		Changes:        make([]RuleSummary, 0, len(meta.Rules)),
		TilesProcessed: len(tiles),
		TilesSkipped:   len(skipped),
		Skipped:        skipped,
		UnknownPixels:  a.UnknownPixels,
	}

	for _, rule := range meta.Rules {
		key := rule.Identifier()
		total, _ := a.Rule(key)
		mean, std := tileFractions(tiles, key)
		r.Changes = append(r.Changes, RuleSummary{
			Key:                key,
			Name:               rule.Name,
			Color:              rule.Color,
			Stats:              total.Stats,
			TileFractionMean:   mean,
			TileFractionStdDev: std,
		})
		r.TotalChangeSqm += total.AreaSqm
		r.TotalChangeHectares += total.AreaHectares
	}

	for _, t := range tiles {
		entry := TileEntry{
			TileIndex:     t.Tile,
			Pixels:        t.Pixels,
			UnknownPixels: t.UnknownPixels,
			Changes:       make(map[string]TileChange, len(t.Rules)),
		}
		for _, rs := range t.Rules {
			entry.Changes[rs.Key] = TileChange{Pixels: rs.Pixels, AreaSqm: rs.AreaSqm}
		}
		r.Tiles = append(r.Tiles, entry)
	}
	return r
}

// tileFractions returns the mean and standard deviation of the fraction of
// each processed tile covered by a rule.
func tileFractions(tiles []TileResult, key string) (float64, float64) {
	fractions := make([]float64, 0, len(tiles))
	for _, t := range tiles {
		if t.Pixels == 0 {
			continue
		}
		var changed int64
		for _, rs := range t.Rules {
			if rs.Key == key {
				changed = rs.Pixels
				break
			}
		}
		fractions = append(fractions, float64(changed)/float64(t.Pixels))
	}
	switch len(fractions) {
	case 0:
		return 0, 0
	case 1:
		return fractions[0], 0
	}
	mean, std := stat.MeanStdDev(fractions, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Change returns the summary entry for a rule key.
func (r Report) Change(key string) (RuleSummary, bool) {
	for _, c := range r.Changes {
		if c.Key == key {
			return c, true
		}
	}
	return RuleSummary{}, false
}

// Summary is the short record kept in the run history.
type Summary struct {
	RunID               string    `json:"run_id"`
	Region              string    `json:"region"`
	BeforeLabel         string    `json:"before_label"`
	AfterLabel          string    `json:"after_label"`
	CreatedAt           time.Time `json:"created_at"`
	TotalChangeHectares float64   `json:"total_change_hectares"`
	TilesProcessed      int       `json:"tiles_processed"`
	TilesSkipped        int       `json:"tiles_skipped"`
	ReportPath          string    `json:"report_path"`
}

func (r Report) Summary(reportPath string) Summary {
	return Summary{
		RunID:               r.RunID,
		Region:              r.Region,
		BeforeLabel:         r.BeforeLabel,
		AfterLabel:          r.AfterLabel,
		CreatedAt:           r.CreatedAt,
		TotalChangeHectares: r.TotalChangeHectares,
		TilesProcessed:      r.TilesProcessed,
		TilesSkipped:        r.TilesSkipped,
		ReportPath:          reportPath,
	}
}
