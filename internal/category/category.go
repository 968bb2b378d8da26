// Package category classifies point-of-interest features into the fixed set of
// marine categories and models the user's category selection.
package category

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/santinoo1919/medtrixmap/internal/types"
)

// Category is one of the classified buckets, or Other for features without a
// recognized category value.
type Category uint8

const (
	Other           Category = 0
	Birds           Category = 1
	MarineFauna     Category = 2
	HabitatsFlora   Category = 3
	HumanActivities Category = 4
)

// OtherKey is the canonical key of the Other bucket.
const OtherKey = "other"

// All lists every category in display order, Other last.
var All = []Category{Birds, MarineFauna, HabitatsFlora, HumanActivities, Other}

// Info describes how a category is presented.
type Info struct {
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Glyph       string `json:"glyph"`
}

var infos = map[Category]Info{
	Birds: {
		Label:       "Birds",
		Color:       "#60a5fa",
		Description: "Avifauna and bird-related points of interest",
		Glyph:       "B",
	},
	MarineFauna: {
		Label:       "Marine Fauna",
		Color:       "#f59e42",
		Description: "Marine animals: fish, mollusks, crustaceans, etc.",
		Glyph:       "F",
	},
	HabitatsFlora: {
		Label:       "Habitats & Flora",
		Color:       "#34d399",
		Description: "Habitats, plants, algae, seagrass beds, reefs, etc.",
		Glyph:       "H",
	},
	HumanActivities: {
		Label:       "Human Activities",
		Color:       "#f87171",
		Description: "Awareness, conservation, regulations, human impact",
		Glyph:       "A",
	},
	Other: {
		Label:       "Other",
		Color:       "#a3a3a3",
		Description: "General information or unclassified",
		Glyph:       "?",
	},
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	return c <= HumanActivities
}

// Key returns the string form used for cache and wire keys: "1".."4" or "other".
func (c Category) Key() string {
	if c == Other || !c.Valid() {
		return OtherKey
	}
	return strconv.Itoa(int(c))
}

func (c Category) String() string {
	return c.Info().Label
}

// Info returns the presentation info, falling back to Other.
func (c Category) Info() Info {
	if info, ok := infos[c]; ok {
		return info
	}
	return infos[Other]
}

// MarshalJSON encodes Other as null and classified categories as integers.
func (c Category) MarshalJSON() ([]byte, error) {
	if c == Other || !c.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalJSON accepts a known category number, a numeric string, "other"
// or null. Unknown numbers are rejected rather than read as Other.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		*c = Other
		return nil
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("invalid category %s", string(data))
		}
		parsed, err := Parse(strconv.FormatFloat(v, 'f', 0, 64))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	default:
		return fmt.Errorf("invalid category %s", string(data))
	}
}

// Parse reads a category from its key form. "", "other" and "null" are Other.
func Parse(s string) (Category, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", OtherKey, "null":
		return Other, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Other, fmt.Errorf("invalid category %q", s)
	}
	c := Category(n)
	if n < 1 || !c.Valid() {
		return Other, fmt.Errorf("unknown category %d", n)
	}
	return c, nil
}

// Resolve maps a category property value to its bucket. Missing,
// non-integer and unrecognized values resolve to Other.
func Resolve(v types.Value) Category {
	var n float64
	switch v.Kind() {
	case types.KindNumber:
		n, _ = v.AsNumber()
	case types.KindString:
		s, _ := v.AsString()
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Other
		}
		n = parsed
	default:
		return Other
	}
	if n != math.Trunc(n) || n < 1 || n > float64(HumanActivities) {
		return Other
	}
	return Category(n)
}

// Of resolves the category of a feature from the named property field.
func Of(f *types.Feature, field string) Category {
	if f == nil || field == "" {
		return Other
	}
	return Resolve(f.Properties.Get(field))
}
