// Package area turns change pixel counts into calibrated surface areas.
package area

import (
	"math"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
)

// Square metre conversion factors.
const (
	SqmToHectares = 1e-4
	SqmToAcres    = 0.000247105
	SqmToSqkm     = 1e-6
)

// DefaultGSD is the ground sampling distance of the Sentinel-2 10 m bands.
const DefaultGSD = 10.0

// Stats is the area of a set of pixels in every reported unit.
type Stats struct {
	Pixels       int64   `json:"pixels" csv:"pixels"`
	AreaSqm      float64 `json:"area_sqm" csv:"area_sqm"`
	AreaHectares float64 `json:"area_hectares" csv:"area_hectares"`
	AreaAcres    float64 `json:"area_acres" csv:"area_acres"`
	AreaSqkm     float64 `json:"area_sqkm" csv:"area_sqkm"`
}

// Add sums two stats. Order does not matter.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Pixels:       s.Pixels + other.Pixels,
		AreaSqm:      s.AreaSqm + other.AreaSqm,
		AreaHectares: s.AreaHectares + other.AreaHectares,
		AreaAcres:    s.AreaAcres + other.AreaAcres,
		AreaSqkm:     s.AreaSqkm + other.AreaSqkm,
	}
}

func (s Stats) IsZero() bool {
	return s.Pixels == 0
}

// Accountant converts pixel counts for a fixed ground sampling distance.
type Accountant struct {
	gsd       float64
	pixelArea float64
}

// NewAccountant validates gsd, the pixel edge length in metres.
func NewAccountant(gsd float64) (*Accountant, error) {
	if math.IsNaN(gsd) || math.IsInf(gsd, 0) || gsd <= 0 {
		return nil, landcover.NewConfigurationError("ground sampling distance must be positive, got %v", gsd)
	}
	return &Accountant{gsd: gsd, pixelArea: gsd * gsd}, nil
}

func (a *Accountant) GSD() float64 {
	return a.gsd
}

func (a *Accountant) Measure(pixels int64) Stats {
	sqm := float64(pixels) * a.pixelArea
	return Stats{
		Pixels:       pixels,
		AreaSqm:      sqm,
		AreaHectares: sqm * SqmToHectares,
		AreaAcres:    sqm * SqmToAcres,
		AreaSqkm:     sqm * SqmToSqkm,
	}
}

// MeasureMask counts the true pixels of a boolean mask.
func (a *Accountant) MeasureMask(mask []bool) Stats {
	var n int64
	for _, b := range mask {
		if b {
			n++
		}
	}
	return a.Measure(n)
}
