package datasource

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/paulmach/orb"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// UnmarshalOverpassJSON decodes an Overpass API JSON response into an overpass.Result.
func UnmarshalOverpassJSON(data []byte) (*overpass.Result, error) {
	var result overpass.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}
	return &result, nil
}

// ExtractFeaturesFromOverpassResult converts tagged nodes to Point features and
// closed ways to Polygon features. Open ways are not consumed. Output is
// ordered nodes first, then ways, each by ascending OSM id, so repeated loads
// of the same data produce the same order.
func ExtractFeaturesFromOverpassResult(result *overpass.Result) []types.Feature {
	if result == nil {
		return nil
	}

	nodeIDs := make([]int64, 0, len(result.Nodes))
	for id, node := range result.Nodes {
		// Untagged nodes are way vertices, not points of interest
		if node == nil || len(node.Tags) == 0 {
			continue
		}
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	wayIDs := make([]int64, 0, len(result.Ways))
	for id := range result.Ways {
		wayIDs = append(wayIDs, id)
	}
	sort.Slice(wayIDs, func(i, j int) bool { return wayIDs[i] < wayIDs[j] })

	features := make([]types.Feature, 0, len(nodeIDs)+len(wayIDs))
	for _, id := range nodeIDs {
		features = append(features, convertNodeToFeature(result.Nodes[id]))
	}
	for _, id := range wayIDs {
		if f := convertWayToFeature(result.Ways[id]); f != nil {
			features = append(features, *f)
		}
	}
	return features
}

func convertNodeToFeature(node *overpass.Node) types.Feature {
	osmID := fmt.Sprintf("node/%d", node.ID)
	return types.Feature{
		ID:         types.StringID(osmID),
		Geometry:   orb.Point{node.Lon, node.Lat},
		Properties: convertTags(osmID, node.Tags),
	}
}

func convertWayToFeature(way *overpass.Way) *types.Feature {
	if way == nil || len(way.Geometry) < 4 {
		return nil
	}

	ring := make(orb.Ring, len(way.Geometry))
	for i, point := range way.Geometry {
		ring[i] = orb.Point{point.Lon, point.Lat}
	}
	if !ring.Closed() {
		return nil
	}

	osmID := fmt.Sprintf("way/%d", way.ID)
	return &types.Feature{
		ID:         types.StringID(osmID),
		Geometry:   orb.Polygon{ring},
		Properties: convertTags(osmID, way.Tags),
	}
}

// convertTags converts OSM tags to feature properties
func convertTags(osmID string, tags map[string]string) types.Properties {
	props := make(types.Properties, len(tags)+1)
	for k, v := range tags {
		props[k] = types.StringValue(v)
	}
	props["osm_id"] = types.StringValue(osmID)
	return props
}
