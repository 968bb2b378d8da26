package engine

import (
	"github.com/dhconnelly/rtreego"
	"github.com/santinoo1919/medtrixmap/internal/geometry"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// epsilon pads zero-area rectangles (~11 meters at equator). R-tree
// rectangles need non-zero dimensions.
const epsilon = 0.0001

// spatialIndex is a candidate pre-filter over one collection. A feature with
// a vertex inside a box always has a bounding rectangle intersecting it, so
// searching the padded box returns a superset of the features the exact
// vertex test accepts.
type spatialIndex struct {
	rtree *rtreego.Rtree
	size  int
}

// indexedFeature wraps a feature position for R-tree storage.
type indexedFeature struct {
	index int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return f.rect
}

func buildSpatialIndex(features []types.Feature) *spatialIndex {
	// 2D, min=25 children, max=50 children
	rtree := rtreego.NewTree(2, 25, 50)
	for i := range features {
		g := features[i].Geometry
		if !geometry.Supported(g) || !geometry.HasCoordinates(g) {
			continue
		}
		b := g.Bound()
		point := rtreego.Point{b.Min[0], b.Min[1]}

		lonLength := b.Max[0] - b.Min[0]
		latLength := b.Max[1] - b.Min[1]
		if lonLength < epsilon {
			lonLength = epsilon
		}
		if latLength < epsilon {
			latLength = epsilon
		}

		rect, err := rtreego.NewRect(point, []float64{lonLength, latLength})
		if err != nil {
			continue
		}
		rtree.Insert(&indexedFeature{index: i, rect: rect})
	}
	return &spatialIndex{rtree: rtree, size: len(features)}
}

// candidates marks the features whose bounding rectangle touches box. The
// query is padded on every side because rtreego's intersection test is
// strict and boundary points must still be found.
func (s *spatialIndex) candidates(box types.BoundingBox) []bool {
	marks := make([]bool, s.size)
	point := rtreego.Point{box.MinLon - epsilon, box.MinLat - epsilon}
	lengths := []float64{
		box.MaxLon - box.MinLon + 2*epsilon,
		box.MaxLat - box.MinLat + 2*epsilon,
	}
	queryRect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		// Inverted box: nothing can be inside it
		return marks
	}
	for _, spatial := range s.rtree.SearchIntersect(queryRect) {
		marks[spatial.(*indexedFeature).index] = true
	}
	return marks
}
