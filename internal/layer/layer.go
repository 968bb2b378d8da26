// Package layer assembles derived views into drawable layers for a map
// client. It holds no filtering logic and does no geometry math beyond
// encoding.
package layer

import (
	"encoding/json"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/santinoo1919/medtrixmap/internal/engine"
	"github.com/santinoo1919/medtrixmap/internal/geojson"
	"github.com/santinoo1919/medtrixmap/internal/style"
)

// Drawable kinds.
const (
	KindMarker = "marker"
	KindArea   = "area"
)

// Style is the precomputed style of a drawable: a shared marker handle for
// points, a path style for polygons. Marker handles are encoded once per
// composition under Composition.Styles and referenced by key.
type Style struct {
	Marker    *style.Style     `json:"-"`
	MarkerKey string           `json:"marker,omitempty"`
	Area      *style.AreaStyle `json:"area,omitempty"`
}

// Drawable is one render-ready feature.
type Drawable struct {
	Key      string          `json:"key"`
	Kind     string          `json:"kind"`
	Geometry json.RawMessage `json:"geometry"`
	Style    Style           `json:"style"`
	Popup    *Popup          `json:"popup,omitempty"`
}

// Layer holds the drawables of one source.
type Layer struct {
	Source    string     `json:"source"`
	Label     string     `json:"label"`
	Drawables []Drawable `json:"drawables"`
	Regions   []string   `json:"regions,omitempty"`
	Computing bool       `json:"computing"`
}

// Composition is everything a client renders, plus a loading flag that is
// set while any source is still computing.
type Composition struct {
	Layers []Layer `json:"layers"`
	// Styles holds every marker style referenced by a drawable, by key.
	Styles  map[string]*style.Style `json:"styles"`
	Loading bool                    `json:"loading"`
}

// Input is the derived view of one enabled source.
type Input struct {
	Source string
	Label  string
	Popup  string
	View   *engine.View
}

// Composer turns views into layers, sharing one style cache.
type Composer struct {
	styles *style.Cache
	log    *slog.Logger
}

// NewComposer creates a composer drawing marker styles from styles.
func NewComposer(styles *style.Cache, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{styles: styles, log: logger}
}

// Compose assembles inputs in order.
func (c *Composer) Compose(inputs []Input) Composition {
	comp := Composition{
		Layers: make([]Layer, 0, len(inputs)),
		Styles: make(map[string]*style.Style),
	}
	for _, in := range inputs {
		l := c.layer(in, comp.Styles)
		comp.Loading = comp.Loading || l.Computing
		comp.Layers = append(comp.Layers, l)
	}
	return comp
}

func (c *Composer) layer(in Input, styles map[string]*style.Style) Layer {
	l := Layer{Source: in.Source, Label: in.Label, Drawables: []Drawable{}}
	if in.View == nil {
		l.Computing = true
		return l
	}
	l.Computing = in.View.Computing
	l.Regions = in.View.Regions

	for _, e := range in.View.Entries {
		geom, err := geojson.GeometryJSON(e.Feature.Geometry)
		if err != nil {
			c.log.Warn("failed to encode geometry", "source", in.Source, "key", e.Key, "error", err)
			continue
		}
		d := Drawable{
			Key:      e.Key,
			Geometry: geom,
			Popup:    BuildPopup(in.Popup, e.Feature.Properties),
		}
		switch e.Feature.Geometry.(type) {
		case orb.Point:
			d.Kind = KindMarker
			m := c.styles.StyleFor(e.Category)
			d.Style.Marker = m
			d.Style.MarkerKey = m.Key
			styles[m.Key] = m
		default:
			d.Kind = KindArea
			area := style.DefaultAreaStyle
			d.Style.Area = &area
		}
		l.Drawables = append(l.Drawables, d)
	}
	return l
}
