// Package geometry tests feature geometries against viewport bounding boxes.
//
// Polygon containment is a vertex test: a polygon is in the box when any vertex
// of any ring lies inside it. A polygon that surrounds the whole box without a
// vertex inside is reported as outside. Inner rings are treated like the outer
// ring and are not subtracted.
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// Contains reports whether geometry g intersects box under the vertex rule.
// Point, Polygon and MultiPolygon are evaluated; every other kind, nil and
// empty geometries evaluate to false.
func Contains(box types.BoundingBox, g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Point:
		return containsPoint(box, geom)
	case orb.Polygon:
		return containsPolygon(box, geom)
	case orb.MultiPolygon:
		for _, p := range geom {
			if containsPolygon(box, p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func containsPoint(box types.BoundingBox, p orb.Point) bool {
	return box.ContainsLonLat(p.Lon(), p.Lat())
}

func containsPolygon(box types.BoundingBox, p orb.Polygon) bool {
	for _, ring := range p {
		for _, pt := range ring {
			if containsPoint(box, pt) {
				return true
			}
		}
	}
	return false
}

// Supported reports whether the geometry kind takes part in containment tests.
func Supported(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Point, orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

// HasCoordinates reports whether a supported geometry carries at least one vertex.
func HasCoordinates(g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Point:
		return true
	case orb.Polygon:
		for _, ring := range geom {
			if len(ring) > 0 {
				return true
			}
		}
	case orb.MultiPolygon:
		for _, p := range geom {
			if HasCoordinates(p) {
				return true
			}
		}
	}
	return false
}

// FirstCoordinate returns the first vertex of a supported geometry.
func FirstCoordinate(g orb.Geometry) (orb.Point, bool) {
	switch geom := g.(type) {
	case orb.Point:
		return geom, true
	case orb.Polygon:
		for _, ring := range geom {
			if len(ring) > 0 {
				return ring[0], true
			}
		}
	case orb.MultiPolygon:
		for _, p := range geom {
			if pt, ok := FirstCoordinate(p); ok {
				return pt, true
			}
		}
	}
	return orb.Point{}, false
}
