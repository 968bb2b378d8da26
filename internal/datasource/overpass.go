package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// DefaultOverpassEndpoint is the public Overpass API interpreter.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// overpassQuerier is the subset of overpass.Client used here.
type overpassQuerier interface {
	Query(query string) (overpass.Result, error)
}

// OverpassSource loads OSM elements matching tag filters inside a fixed area,
// for example wrecks (historic=wreck) along a coastline.
type OverpassSource struct {
	client  overpassQuerier
	id      string
	filters []string
	area    types.BoundingBox
}

// NewOverpassSource creates an Overpass-backed source. filters are Overpass
// tag filters such as `["historic"="wreck"]`.
func NewOverpassSource(id, endpoint string, filters []string, area types.BoundingBox) *OverpassSource {
	if endpoint == "" {
		endpoint = DefaultOverpassEndpoint
	}

	// Create client (rate limited to 1 concurrent request)
	client := overpass.NewWithSettings(
		endpoint,
		1, // Only 1 parallel request (API etiquette)
		http.DefaultClient,
	)

	return &OverpassSource{
		client:  &client,
		id:      id,
		filters: filters,
		area:    area,
	}
}

// ID returns the source identifier.
func (s *OverpassSource) ID() string { return s.id }

// Load runs the query and converts nodes and closed ways to features.
func (s *OverpassSource) Load(ctx context.Context) (*types.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Source: s.id, Message: err.Error(), Err: err}
	}

	// Execute query (note: this client version doesn't support context)
	result, err := s.client.Query(s.buildQuery())
	if err != nil {
		return nil, &UnavailableError{Source: s.id, Message: fmt.Sprintf("overpass query failed: %v", err), Err: err}
	}

	return &types.FeatureCollection{
		Source:    s.id,
		Features:  ExtractFeaturesFromOverpassResult(&result),
		FetchedAt: time.Now(),
	}, nil
}

// buildQuery creates an Overpass QL query matching every filter as nodes and
// ways inside the configured area, with full way geometry.
func (s *OverpassSource) buildQuery() string {
	// Per-element bbox filters use (south,west,north,east)
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", s.area.MinLat, s.area.MinLon, s.area.MaxLat, s.area.MaxLon)

	var b strings.Builder
	b.WriteString("[out:json][timeout:60];\n(\n")
	for _, f := range s.filters {
		fmt.Fprintf(&b, "  node%s(%s);\n", f, bbox)
		fmt.Fprintf(&b, "  way%s(%s);\n", f, bbox)
	}
	b.WriteString(");\nout geom;\n")
	return b.String()
}
