package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santinoo1919/medtrixmap/internal/types"
)

// ErrSourceUnavailable matches every UnavailableError via errors.Is.
var ErrSourceUnavailable = errors.New("source unavailable")

// UnavailableError reports a transport failure or a non-success response from
// a feature source. Status is 0 when no response was received.
type UnavailableError struct {
	Source  string
	Status  int
	Message string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source %s unavailable (status %d): %s", e.Source, e.Status, e.Message)
	}
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Message)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// Source loads the full feature collection of one remote endpoint.
type Source interface {
	ID() string
	Load(ctx context.Context) (*types.FeatureCollection, error)
}

// Kind selects the Source implementation for a Definition.
type Kind string

const (
	KindHTTP     Kind = "http"
	KindOverpass Kind = "overpass"
)

// Definition describes a configured feature source and how its features are
// filtered and presented.
type Definition struct {
	ID    string `mapstructure:"id" json:"id"`
	Label string `mapstructure:"label" json:"label"`
	Kind  Kind   `mapstructure:"kind" json:"kind"`
	URL   string `mapstructure:"url" json:"url"`

	// UserAgent is sent with HTTP requests when set.
	UserAgent string `mapstructure:"user_agent" json:"-"`

	// CategoryField names the property holding the integer category. Sources
	// without one are not category filtered.
	CategoryField string `mapstructure:"category_field" json:"category_field,omitempty"`
	// RegionField names the property used by the region filter.
	RegionField string `mapstructure:"region_field" json:"region_field,omitempty"`
	// Popup selects the popup layout: "protected-area", "poi" or "" for all properties.
	Popup string `mapstructure:"popup" json:"popup,omitempty"`

	// Overpass settings.
	Filters []string          `mapstructure:"filters" json:"filters,omitempty"`
	Area    types.BoundingBox `mapstructure:"area" json:"area,omitempty"`

	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// NewSource builds the Source described by def.
func NewSource(def Definition, logger *slog.Logger) (Source, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("source definition without id")
	}
	switch def.Kind {
	case KindHTTP, "":
		if def.URL == "" {
			return nil, fmt.Errorf("source %s: url is required", def.ID)
		}
		return NewHTTPSource(def.ID, def.URL, WithUserAgent(def.UserAgent), WithLogger(logger)), nil
	case KindOverpass:
		if len(def.Filters) == 0 {
			return nil, fmt.Errorf("source %s: at least one overpass filter is required", def.ID)
		}
		if err := def.Area.Validate(); err != nil {
			return nil, fmt.Errorf("source %s: %w", def.ID, err)
		}
		return NewOverpassSource(def.ID, def.URL, def.Filters, def.Area), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", def.ID, def.Kind)
	}
}
