// Package report folds per-tile change statistics into the run-level
// artifact consumed by the reporting layer and the frontend.
package report

import (
	"fmt"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
)

// TileIndex is the position of a tile in a region's fixed grid partition.
type TileIndex struct {
	Row int `json:"row" csv:"row"`
	Col int `json:"col" csv:"col"`
}

func (t TileIndex) String() string {
	return fmt.Sprintf("tile_%d_%d", t.Row, t.Col)
}

func (t TileIndex) Less(other TileIndex) bool {
	if t.Row != other.Row {
		return t.Row < other.Row
	}
	return t.Col < other.Col
}

// Skip reasons.
const (
	ReasonMissingBefore = "missing_before"
	ReasonMissingAfter  = "missing_after"
	ReasonShapeMismatch = "shape_mismatch"
	ReasonLoadError     = "load_error"
	ReasonDetectError   = "detect_error"
	ReasonCancelled     = "cancelled"
)

type SkippedTile struct {
	TileIndex
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RuleStats is the area one rule covers in one tile (or in a whole run).
type RuleStats struct {
	Key   string
	Name  string
	Color landcover.RGB
	area.Stats
}

// TileResult is the output of processing one before/after tile pair.
type TileResult struct {
	Tile          TileIndex
	Pixels        int64
	UnknownPixels int64
	Rules         []RuleStats
}

// Aggregate is a partial reduction over tiles. The zero value is the
// identity element of Combine.
type Aggregate struct {
	Rules         []RuleStats
	Tiles         []TileResult
	Skipped       []SkippedTile
	UnknownPixels int64
}

// FromTile lifts a single tile result into an Aggregate.
func FromTile(t TileResult) Aggregate {
	return Aggregate{
		Rules:         append([]RuleStats(nil), t.Rules...),
		Tiles:         []TileResult{t},
		UnknownPixels: t.UnknownPixels,
	}
}

// Skip records a tile that could not be compared.
func Skip(tile TileIndex, reason string, err error) Aggregate {
	s := SkippedTile{TileIndex: tile, Reason: reason}
	if err != nil {
		s.Detail = err.Error()
	}
	return Aggregate{Skipped: []SkippedTile{s}}
}

// Combine merges two partial aggregates. It is associative and commutative
// up to the order of Tiles and Skipped, which Finalize sorts.
func (a Aggregate) Combine(b Aggregate) Aggregate {
	out := Aggregate{
		Rules:         combineRules(a.Rules, b.Rules),
		UnknownPixels: a.UnknownPixels + b.UnknownPixels,
	}
	out.Tiles = append(append(make([]TileResult, 0, len(a.Tiles)+len(b.Tiles)), a.Tiles...), b.Tiles...)
	out.Skipped = append(append(make([]SkippedTile, 0, len(a.Skipped)+len(b.Skipped)), a.Skipped...), b.Skipped...)
	return out
}

func combineRules(a, b []RuleStats) []RuleStats {
	out := make([]RuleStats, 0, len(a)+len(b))
	index := make(map[string]int, len(a)+len(b))
	for _, list := range [][]RuleStats{a, b} {
		for _, r := range list {
			if i, ok := index[r.Key]; ok {
				out[i].Stats = out[i].Stats.Add(r.Stats)
				continue
			}
			index[r.Key] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func (a Aggregate) TilesProcessed() int {
	return len(a.Tiles)
}

func (a Aggregate) TilesSkipped() int {
	return len(a.Skipped)
}

// Rule returns the running total for a rule key.
func (a Aggregate) Rule(key string) (RuleStats, bool) {
	for _, r := range a.Rules {
		if r.Key == key {
			return r, true
		}
	}
	return RuleStats{}, false
}
