package types

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// FeatureID is the optional natural identifier of a feature: a string, a
// number, or none.
type FeatureID struct {
	str   string
	num   float64
	isNum bool
	set   bool
}

// StringID wraps a string identifier.
func StringID(s string) FeatureID { return FeatureID{str: s, set: true} }

// NumberID wraps a numeric identifier.
func NumberID(n float64) FeatureID { return FeatureID{num: n, isNum: true, set: true} }

// IsSet reports whether the feature carries a natural identifier.
func (id FeatureID) IsSet() bool { return id.set }

// String returns the identifier text, "" when unset.
func (id FeatureID) String() string {
	if !id.set {
		return ""
	}
	if id.isNum {
		return strconv.FormatFloat(id.num, 'f', -1, 64)
	}
	return id.str
}

func (id FeatureID) MarshalJSON() ([]byte, error) {
	switch {
	case !id.set:
		return []byte("null"), nil
	case id.isNum:
		return json.Marshal(id.num)
	default:
		return json.Marshal(id.str)
	}
}

// Feature represents one geospatial record from a remote source.
// Geometry is an orb.Point, orb.Polygon or orb.MultiPolygon.
type Feature struct {
	ID         FeatureID
	Geometry   orb.Geometry
	Properties Properties
}

// FeatureCollection is the full set of features returned by one source load.
// It is written once when the load completes and read-only afterwards.
type FeatureCollection struct {
	FetchedAt time.Time
	Source    string
	Features  []Feature
	Skipped   int // malformed features dropped while decoding
}

// Count returns the total number of features
func (fc *FeatureCollection) Count() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// GeometryCounts returns the number of features per geometry type.
func (fc *FeatureCollection) GeometryCounts() map[string]int {
	counts := map[string]int{"total": fc.Count()}
	if fc == nil {
		return counts
	}
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		counts[f.Geometry.GeoJSONType()]++
	}
	return counts
}
