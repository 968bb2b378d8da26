package types

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326).
// Boxes crossing the antimeridian (MinLon > MaxLon) are not unwrapped; such a
// box contains no longitude.
type BoundingBox struct {
	MinLon float64 `json:"west" mapstructure:"west"`   // Western edge (degrees)
	MinLat float64 `json:"south" mapstructure:"south"` // Southern edge (degrees)
	MaxLon float64 `json:"east" mapstructure:"east"`   // Eastern edge (degrees)
	MaxLat float64 `json:"north" mapstructure:"north"` // Northern edge (degrees)
}

// NewBoundingBox builds a box from the south, west, north, east edges the map
// widget reports.
func NewBoundingBox(south, west, north, east float64) (BoundingBox, error) {
	b := BoundingBox{MinLon: west, MinLat: south, MaxLon: east, MaxLat: north}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return b, nil
}

// Validate checks that all edges are finite and south <= north.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounding box edge is not finite: %v", b)
		}
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bounding box south %.6f is north of %.6f", b.MinLat, b.MaxLat)
	}
	return nil
}

// ContainsLonLat reports whether the coordinate lies inside the box, edges inclusive.
func (b BoundingBox) ContainsLonLat(lon, lat float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Bound returns the box as an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Viewport is a settled map viewport, or the "unset" state before the map has
// reported its first ready bounds. The zero value is unset. Viewport values are
// comparable with ==.
type Viewport struct {
	Box BoundingBox
	Set bool
}

// UnsetViewport returns the viewport used before the map is ready.
func UnsetViewport() Viewport {
	return Viewport{}
}

// ViewportOf wraps a settled bounding box.
func ViewportOf(b BoundingBox) Viewport {
	return Viewport{Box: b, Set: true}
}

func (v Viewport) String() string {
	if !v.Set {
		return "unset"
	}
	return v.Box.String()
}
