package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/santinoo1919/medtrixmap/internal/geometry"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// MalformedFeatureError describes one feature skipped during decoding.
type MalformedFeatureError struct {
	Index  int
	ID     string
	Reason string
}

func (e *MalformedFeatureError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("malformed feature %d (id %s): %s", e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("malformed feature %d: %s", e.Index, e.Reason)
}

// DecodeResult holds the features that survived decoding and the ones skipped.
type DecodeResult struct {
	Features []types.Feature
	Skipped  []*MalformedFeatureError
}

// rawFeature exposes the coordinates member as sent, since orb decodes an
// empty or null Point as the zero Point.
type rawFeature struct {
	Geometry *struct {
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

type envelope struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// DecodeFeatureCollection parses a GeoJSON FeatureCollection document.
// A missing or null features array yields zero features. Each feature is
// decoded on its own, so one bad feature never drops the rest: features with
// an unparseable body, no geometry, no coordinates, or a geometry other than
// Point, Polygon or MultiPolygon are reported in Skipped.
func DecodeFeatureCollection(data []byte) (*DecodeResult, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feature collection: %w", err)
	}
	if env.Type != "" && env.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected GeoJSON type %q", env.Type)
	}

	result := &DecodeResult{Features: make([]types.Feature, 0, len(env.Features))}
	for i, raw := range env.Features {
		f, err := decodeFeature(raw)
		if err != nil {
			err.Index = i
			result.Skipped = append(result.Skipped, err)
			continue
		}
		result.Features = append(result.Features, f)
	}
	return result, nil
}

func decodeFeature(raw json.RawMessage) (types.Feature, *MalformedFeatureError) {
	gf, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return types.Feature{}, &MalformedFeatureError{Reason: err.Error()}
	}

	id := convertID(gf.ID)
	if gf.Geometry == nil {
		return types.Feature{}, &MalformedFeatureError{ID: id.String(), Reason: "missing geometry"}
	}
	if !geometry.Supported(gf.Geometry) {
		return types.Feature{}, &MalformedFeatureError{
			ID:     id.String(),
			Reason: fmt.Sprintf("unsupported geometry type %s", gf.Geometry.GeoJSONType()),
		}
	}
	if !hasCoordinates(raw, gf.Geometry) {
		return types.Feature{}, &MalformedFeatureError{ID: id.String(), Reason: "missing coordinates"}
	}

	return types.Feature{
		ID:         id,
		Geometry:   gf.Geometry,
		Properties: ConvertProperties(gf.Properties),
	}, nil
}

func hasCoordinates(raw json.RawMessage, g orb.Geometry) bool {
	if _, ok := g.(orb.Point); ok {
		var rf rawFeature
		if err := json.Unmarshal(raw, &rf); err != nil || rf.Geometry == nil {
			return false
		}
		var pos []float64
		if err := json.Unmarshal(rf.Geometry.Coordinates, &pos); err != nil {
			return false
		}
		return len(pos) >= 2
	}
	return geometry.HasCoordinates(g)
}

func convertID(raw interface{}) types.FeatureID {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return types.FeatureID{}
		}
		return types.StringID(v)
	case float64:
		return types.NumberID(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return types.NumberID(f)
		}
		return types.StringID(v.String())
	default:
		return types.FeatureID{}
	}
}

// ConvertProperties narrows generic GeoJSON properties to the closed Value
// variant. Nulls are dropped; nested objects and arrays are kept as their
// compact JSON text.
func ConvertProperties(props map[string]interface{}) types.Properties {
	out := make(types.Properties, len(props))
	for key, raw := range props {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			out[key] = types.StringValue(v)
		case float64:
			out[key] = types.NumberValue(v)
		case int:
			out[key] = types.NumberValue(float64(v))
		case int64:
			out[key] = types.NumberValue(float64(v))
		case bool:
			out[key] = types.BoolValue(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = types.StringValue(string(data))
		}
	}
	return out
}

// ToGeoJSON converts a slice of features to GeoJSON FeatureCollection
func ToGeoJSON(features []types.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, f := range features {
		if f.Geometry == nil {
			continue
		}

		geoFeature := geojson.NewFeature(f.Geometry)
		if f.ID.IsSet() {
			geoFeature.ID = f.ID
		}
		for key, value := range f.Properties {
			geoFeature.Properties[key] = value.Interface()
		}

		fc.Append(geoFeature)
	}

	return fc
}

// ToGeoJSONBytes converts features to GeoJSON bytes
func ToGeoJSONBytes(features []types.Feature) ([]byte, error) {
	data, err := json.MarshalIndent(ToGeoJSON(features), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	return data, nil
}

// GeometryJSON encodes a single geometry as a GeoJSON geometry object.
func GeometryJSON(g orb.Geometry) (json.RawMessage, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}
	return data, nil
}
