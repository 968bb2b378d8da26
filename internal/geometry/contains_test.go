package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

var marseille = types.BoundingBox{MinLon: 5.0, MinLat: 43.0, MaxLon: 5.6, MaxLat: 43.5}

func square(minLon, minLat, maxLon, maxLat float64) orb.Ring {
	return orb.Ring{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}
}

func TestContainsPoint(t *testing.T) {
	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"inside", orb.Point{5.37, 43.29}, true},
		{"south-west corner", orb.Point{5.0, 43.0}, true},
		{"north-east corner", orb.Point{5.6, 43.5}, true},
		{"north edge", orb.Point{5.3, 43.5}, true},
		{"east of box", orb.Point{5.60001, 43.2}, false},
		{"south of box", orb.Point{5.3, 42.99}, false},
		{"swapped lat/lng", orb.Point{43.29, 5.37}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Contains(marseille, tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestContainsPointMatchesEdgeDefinition(t *testing.T) {
	// Sample a grid around the box and compare against the inclusive interval rule.
	for lon := 4.8; lon <= 5.8; lon += 0.05 {
		for lat := 42.8; lat <= 43.7; lat += 0.05 {
			want := lat >= marseille.MinLat && lat <= marseille.MaxLat &&
				lon >= marseille.MinLon && lon <= marseille.MaxLon
			if got := Contains(marseille, orb.Point{lon, lat}); got != want {
				t.Fatalf("Contains(%.2f, %.2f) = %v, want %v", lon, lat, got, want)
			}
		}
	}
}

func TestContainsPolygon(t *testing.T) {
	tests := []struct {
		name string
		g    orb.Geometry
		want bool
	}{
		{"vertex inside", orb.Polygon{square(5.5, 43.4, 6.0, 44.0)}, true},
		{"fully inside", orb.Polygon{square(5.1, 43.1, 5.2, 43.2)}, true},
		{"disjoint", orb.Polygon{square(7.0, 44.0, 8.0, 45.0)}, false},
		// Surrounds the box with no vertex inside: excluded by the vertex rule.
		{"surrounds box", orb.Polygon{square(4.0, 42.0, 7.0, 45.0)}, false},
		{"only hole vertex inside", orb.Polygon{square(4.0, 42.0, 7.0, 45.0), square(5.2, 43.2, 5.3, 43.3)}, true},
		{"zero rings", orb.Polygon{}, false},
		{"empty rings", orb.Polygon{orb.Ring{}, orb.Ring{}}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Contains(marseille, tc.g); got != tc.want {
				t.Errorf("Contains = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestContainsMultiPolygon(t *testing.T) {
	far := orb.Polygon{square(7.0, 44.0, 8.0, 45.0)}
	near := orb.Polygon{square(5.5, 43.4, 6.0, 44.0)}

	if !Contains(marseille, orb.MultiPolygon{far, near}) {
		t.Error("expected multipolygon with one matching part to be contained")
	}
	if Contains(marseille, orb.MultiPolygon{far}) {
		t.Error("expected disjoint multipolygon to be excluded")
	}
	if Contains(marseille, orb.MultiPolygon{}) {
		t.Error("expected empty multipolygon to be excluded")
	}
	if Contains(marseille, orb.MultiPolygon{orb.Polygon{}, orb.Polygon{orb.Ring{}}}) {
		t.Error("expected multipolygon of empty polygons to be excluded")
	}
}

func TestContainsUnsupportedKinds(t *testing.T) {
	inside := orb.Point{5.3, 43.2}
	for _, g := range []orb.Geometry{
		nil,
		orb.LineString{inside, {5.4, 43.3}},
		orb.MultiPoint{inside},
		orb.Collection{inside},
		orb.Ring{inside},
	} {
		if Contains(marseille, g) {
			t.Errorf("expected %T to evaluate to false", g)
		}
	}
}

func TestFirstCoordinate(t *testing.T) {
	pt, ok := FirstCoordinate(orb.MultiPolygon{orb.Polygon{orb.Ring{}}, orb.Polygon{square(1, 2, 3, 4)}})
	if !ok || pt != (orb.Point{1, 2}) {
		t.Fatalf("unexpected first coordinate %v (ok=%v)", pt, ok)
	}
	if _, ok := FirstCoordinate(orb.Polygon{}); ok {
		t.Fatal("expected no coordinate for empty polygon")
	}
	if HasCoordinates(orb.MultiPolygon{orb.Polygon{orb.Ring{}}}) {
		t.Fatal("expected empty multipolygon to have no coordinates")
	}
}
