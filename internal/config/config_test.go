package config

import (
	"strings"
	"testing"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, cfg.Debounce)
	require.Len(t, cfg.Sources, 3)
	require.NoError(t, Validate(cfg.Sources))

	pa, ok := cfg.Find("protected-areas")
	require.True(t, ok)
	assert.Equal(t, "subloc_name", pa.RegionField)
	assert.Empty(t, pa.CategoryField)
	assert.True(t, pa.Enabled)

	amp, _ := cfg.Find("amp")
	assert.Equal(t, "category", amp.CategoryField)

	wrecks, _ := cfg.Find("wrecks")
	assert.False(t, wrecks.Enabled)
	assert.Equal(t, datasource.KindOverpass, wrecks.Kind)

	_, ok = cfg.Find("missing")
	assert.False(t, ok)
}

const yamlConfig = `
debounce: 350ms
sources:
  - id: amp
    label: AMP
    kind: http
    url: http://localhost:9000/amp.geojson
    category_field: category
    enabled: true
  - id: wrecks
    kind: overpass
    filters: ['["historic"="wreck"]']
    area: {south: 42.9, west: 4.5, north: 43.8, east: 7.5}
`

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yamlConfig)))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 350*time.Millisecond, cfg.Debounce)
	require.Len(t, cfg.Sources, 2)

	amp := cfg.Sources[0]
	assert.Equal(t, "AMP", amp.Label)
	assert.Equal(t, datasource.KindHTTP, amp.Kind)
	assert.True(t, amp.Enabled)

	wrecks := cfg.Sources[1]
	assert.Equal(t, []string{`["historic"="wreck"]`}, wrecks.Filters)
	assert.Equal(t, types.BoundingBox{MinLon: 4.5, MinLat: 42.9, MaxLon: 7.5, MaxLat: 43.8}, wrecks.Area)
}

func TestValidate(t *testing.T) {
	dup := []datasource.Definition{
		{ID: "a", URL: "http://x"},
		{ID: "a", URL: "http://y"},
	}
	assert.ErrorContains(t, Validate(dup), "duplicate")
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate([]datasource.Definition{{ID: "b"}}))
}
