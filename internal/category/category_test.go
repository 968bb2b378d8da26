package category

import (
	"encoding/json"
	"testing"

	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   types.Value
		want Category
	}{
		{"integer", types.NumberValue(2), MarineFauna},
		{"numeric string", types.StringValue("3"), HabitatsFlora},
		{"absent", types.Value{}, Other},
		{"out of range", types.NumberValue(7), Other},
		{"zero", types.NumberValue(0), Other},
		{"fractional", types.NumberValue(1.5), Other},
		{"text", types.StringValue("birds"), Other},
		{"bool", types.BoolValue(true), Other},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.in))
		})
	}
}

func TestKeyAndParse(t *testing.T) {
	assert.Equal(t, "2", MarineFauna.Key())
	assert.Equal(t, OtherKey, Other.Key())
	assert.Equal(t, OtherKey, Category(9).Key())

	c, err := Parse("4")
	require.NoError(t, err)
	assert.Equal(t, HumanActivities, c)

	c, err = Parse("null")
	require.NoError(t, err)
	assert.Equal(t, Other, c)

	_, err = Parse("5")
	assert.Error(t, err)
	_, err = Parse("fish")
	assert.Error(t, err)
}

func TestInfoFallsBackToOther(t *testing.T) {
	assert.Equal(t, "Birds", Birds.Info().Label)
	assert.Equal(t, "#a3a3a3", Category(42).Info().Color)
}

func TestCategoryJSON(t *testing.T) {
	data, err := json.Marshal([]Category{Birds, Other})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,null]`, string(data))

	var got []Category
	require.NoError(t, json.Unmarshal([]byte(`[2,null,"other","3"]`), &got))
	assert.Equal(t, []Category{MarineFauna, Other, Other, HabitatsFlora}, got)

	for _, bad := range []string{`9`, `0`, `-1`, `2.5`, `"9"`, `true`} {
		var c Category
		assert.Error(t, json.Unmarshal([]byte(bad), &c), bad)
	}
}

func TestSet(t *testing.T) {
	all := AllSet()
	assert.Equal(t, 5, all.Len())
	for _, c := range All {
		assert.True(t, all.Has(c), c.Key())
	}

	s := all.Toggle(Birds)
	assert.False(t, s.Has(Birds))
	assert.True(t, all.Has(Birds), "toggle must not mutate the receiver")
	assert.Equal(t, all, s.Toggle(Birds))

	assert.True(t, Set(0).IsEmpty())
	assert.Equal(t, NewSet(MarineFauna, Other), NewSet(Other, MarineFauna))
	assert.Equal(t, "{2,other}", NewSet(MarineFauna, Other).String())
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet("2, other")
	require.NoError(t, err)
	assert.Equal(t, NewSet(MarineFauna, Other), s)

	s, err = ParseSet("")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	_, err = ParseSet("1,9")
	assert.Error(t, err)
}
