package layer

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/engine"
	"github.com/santinoo1919/medtrixmap/internal/style"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComposer() *Composer {
	return NewComposer(style.NewCache(style.DefaultIconOptions(), nil), nil)
}

func TestComposeLoadingIsOrAcrossSources(t *testing.T) {
	c := testComposer()

	poi := &types.Feature{
		ID:         types.StringID("p"),
		Geometry:   orb.Point{5.3, 43.2},
		Properties: types.Properties{"title": types.StringValue("Herbier de posidonie")},
	}
	ready := &engine.View{Entries: []engine.Entry{{Key: "id:p", Feature: poi, Category: category.HabitatsFlora}}}
	pending := &engine.View{Computing: true}

	comp := c.Compose([]Input{
		{Source: "amp", Label: "AMP", Popup: PopupPOI, View: ready},
		{Source: "protected-areas", Label: "Protected areas", View: pending},
	})
	require.Len(t, comp.Layers, 2)
	assert.True(t, comp.Loading)
	assert.False(t, comp.Layers[0].Computing)
	assert.True(t, comp.Layers[1].Computing)
	assert.Empty(t, comp.Layers[1].Drawables)

	d := comp.Layers[0].Drawables[0]
	assert.Equal(t, "id:p", d.Key)
	assert.Equal(t, KindMarker, d.Kind)
	require.NotNil(t, d.Style.Marker)
	assert.Equal(t, "3", d.Style.Marker.Key)
	assert.JSONEq(t, `{"type":"Point","coordinates":[5.3,43.2]}`, string(d.Geometry))
	assert.Equal(t, []string{"Herbier de posidonie"}, d.Popup.Header)

	comp = c.Compose([]Input{{Source: "amp", View: ready}})
	assert.False(t, comp.Loading)
}

func TestComposeSharesMarkerStyles(t *testing.T) {
	c := testComposer()
	a := &types.Feature{Geometry: orb.Point{1, 1}}
	b := &types.Feature{Geometry: orb.Point{2, 2}}
	view := &engine.View{Entries: []engine.Entry{
		{Key: "a", Feature: a, Category: category.Birds},
		{Key: "b", Feature: b, Category: category.Birds},
	}}
	comp := c.Compose([]Input{{Source: "amp", View: view}})
	ds := comp.Layers[0].Drawables
	assert.Same(t, ds[0].Style.Marker, ds[1].Style.Marker)
	assert.Equal(t, "1", ds[0].Style.MarkerKey)
	require.Len(t, comp.Styles, 1)
	assert.Same(t, ds[0].Style.Marker, comp.Styles["1"])
}

func TestComposeAreas(t *testing.T) {
	c := testComposer()
	f := &types.Feature{
		Geometry:   orb.Polygon{{{5, 43}, {6, 43}, {6, 44}, {5, 43}}},
		Properties: types.Properties{"mpa_name": types.StringValue("Parc national de Port-Cros")},
	}
	view := &engine.View{
		Entries: []engine.Entry{{Key: "k", Feature: f}},
		Regions: []string{"Provence-Alpes-Côte d'Azur"},
	}
	comp := c.Compose([]Input{{Source: "protected-areas", Popup: PopupProtectedArea, View: view}})

	l := comp.Layers[0]
	assert.Equal(t, []string{"Provence-Alpes-Côte d'Azur"}, l.Regions)
	d := l.Drawables[0]
	assert.Equal(t, KindArea, d.Kind)
	require.NotNil(t, d.Style.Area)
	assert.Equal(t, style.DefaultAreaStyle, *d.Style.Area)
	assert.Nil(t, d.Style.Marker)

	out, err := json.Marshal(comp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"fillOpacity":0.2`)
}

func TestComposeNilView(t *testing.T) {
	comp := testComposer().Compose([]Input{{Source: "wrecks"}})
	assert.True(t, comp.Loading)
	assert.NotNil(t, comp.Layers[0].Drawables)
}

func TestProtectedAreaPopup(t *testing.T) {
	props := types.Properties{
		"mpa_name":           types.StringValue("Calanques"),
		"mpa_oriname":        types.StringValue("Parc national des Calanques"),
		"des_desigfr":        types.StringValue("Parc national"),
		"country_iso3namefr": types.StringValue("France"),
		"subloc_name":        types.StringValue("Provence-Alpes-Côte d'Azur"),
		"mpa_status":         types.StringValue("Designated"),
		"mpa_calcarea":       types.NumberValue(43500),
		"mpa_url":            types.StringValue("https://www.calanques-parcnational.fr"),
		"unrelated":          types.StringValue("not shown"),
	}
	p := BuildPopup(PopupProtectedArea, props)

	assert.Equal(t, []string{"Calanques", "Parc national des Calanques", "Parc national"}, p.Header)
	require.Len(t, p.Columns, 2)

	labels := func(fs []Field) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.Label
		}
		return out
	}
	assert.Equal(t, []string{"Country (FR)", "Sub-location", "Status"}, labels(p.Columns[0]))
	assert.Equal(t, []string{"Area (ha)", "Official URL"}, labels(p.Columns[1]))
	assert.Equal(t, "43500", p.Columns[1][0].Value)
}

func TestPOIAndPropertiesPopup(t *testing.T) {
	props := types.Properties{
		"title":       types.StringValue("Grand dauphin"),
		"header_text": types.StringValue("Tursiops truncatus"),
		"description": types.StringValue("Observé au large"),
		"url":         types.StringValue("https://example.org/dauphin.jpg"),
	}
	p := BuildPopup(PopupPOI, props)
	assert.Equal(t, []string{"Grand dauphin", "Tursiops truncatus"}, p.Header)
	assert.Equal(t, "Observé au large", p.Description)
	assert.Equal(t, "https://example.org/dauphin.jpg", p.ImageURL)

	p = BuildPopup(PopupProperties, types.Properties{
		"name":     types.StringValue("Le Liban"),
		"historic": types.StringValue("wreck"),
	})
	assert.Equal(t, []string{"Le Liban"}, p.Header)
	require.Len(t, p.Columns, 1)
	assert.Equal(t, "historic", p.Columns[0][0].Key)
	assert.Equal(t, "name", p.Columns[0][1].Key)
}
