// Package config reads application settings from viper.
package config

import (
	"fmt"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/layer"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/santinoo1919/medtrixmap/internal/viewport"
	"github.com/spf13/viper"
)

// Upstream endpoints of the built-in sources.
const (
	ProtectedAreasURL = "https://wxs.ofb.fr/geoserver/gestion/ows?service=WFS&version=2.0.0&request=GetFeature&typeName=gestion:ges_omon_amp_ofb_pol_3857_vue&outputFormat=application/json&srsName=EPSG:4326"
	AMPURL            = "https://www.amp.milieumarinfrance.fr/api/1/98/31/get_amp_geojson"

	// The OFB geoserver rejects requests without a browser user agent.
	DefaultUserAgent = "Mozilla/5.0"
)

// MediterraneanCoast is the French Mediterranean coastline, used as the wreck
// search area.
var MediterraneanCoast = types.BoundingBox{MinLon: 2.9, MinLat: 41.3, MaxLon: 9.9, MaxLat: 43.8}

// Config holds the settings shared by the serve and fetch commands.
type Config struct {
	Sources []datasource.Definition
	// Debounce is the viewport quiet period.
	Debounce time.Duration
}

// DefaultSources returns the built-in source definitions.
func DefaultSources() []datasource.Definition {
	return []datasource.Definition{
		{
			ID:          "protected-areas",
			Label:       "Protected areas",
			Kind:        datasource.KindHTTP,
			URL:         ProtectedAreasURL,
			UserAgent:   DefaultUserAgent,
			RegionField: "subloc_name",
			Popup:       layer.PopupProtectedArea,
			Enabled:     true,
		},
		{
			ID:            "amp",
			Label:         "Marine points of interest",
			Kind:          datasource.KindHTTP,
			URL:           AMPURL,
			UserAgent:     DefaultUserAgent,
			CategoryField: "category",
			Popup:         layer.PopupPOI,
			Enabled:       true,
		},
		{
			ID:      "wrecks",
			Label:   "Wrecks",
			Kind:    datasource.KindOverpass,
			Filters: []string{`["historic"="wreck"]`},
			Area:    MediterraneanCoast,
			Enabled: false,
		},
	}
}

// Load reads the configuration from v. When no sources are configured the
// built-in ones are used.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Debounce: v.GetDuration("debounce"),
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = viewport.DefaultQuietPeriod
	}

	if !v.IsSet("sources") {
		cfg.Sources = DefaultSources()
		return cfg, nil
	}
	if err := v.UnmarshalKey("sources", &cfg.Sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	if err := Validate(cfg.Sources); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks source definitions for missing and duplicate ids and that
// each one can be built.
func Validate(defs []datasource.Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("no sources configured")
	}
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if seen[def.ID] {
			return fmt.Errorf("duplicate source id %q", def.ID)
		}
		seen[def.ID] = true
		if _, err := datasource.NewSource(def, nil); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the definition with the given id.
func (c *Config) Find(id string) (datasource.Definition, bool) {
	for _, def := range c.Sources {
		if def.ID == id {
			return def, true
		}
	}
	return datasource.Definition{}, false
}
