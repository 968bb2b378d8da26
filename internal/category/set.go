package category

import (
	"encoding/json"
	"strings"
)

// Set is an immutable selection of categories. Set values are comparable with
// ==, so two selections with the same members are equal.
type Set uint8

func bit(c Category) Set {
	if !c.Valid() {
		c = Other
	}
	return Set(1) << c
}

// AllSet returns the selection holding every category, the initial state.
func AllSet() Set {
	var s Set
	for _, c := range All {
		s |= bit(c)
	}
	return s
}

// NewSet builds a selection from the given categories.
func NewSet(cats ...Category) Set {
	var s Set
	for _, c := range cats {
		s |= bit(c)
	}
	return s
}

// Has reports membership.
func (s Set) Has(c Category) bool {
	return s&bit(c) != 0
}

// Toggle returns a new selection with c added or removed.
func (s Set) Toggle(c Category) Set {
	return s ^ bit(c)
}

// IsEmpty reports whether nothing is selected.
func (s Set) IsEmpty() bool {
	return s&AllSet() == 0
}

// Categories lists the members in display order.
func (s Set) Categories() []Category {
	out := make([]Category, 0, len(All))
	for _, c := range All {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of selected categories.
func (s Set) Len() int {
	return len(s.Categories())
}

func (s Set) String() string {
	cats := s.Categories()
	keys := make([]string, len(cats))
	for i, c := range cats {
		keys[i] = c.Key()
	}
	return "{" + strings.Join(keys, ",") + "}"
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Categories())
}

// ParseSet reads a comma separated list of category keys.
func ParseSet(list string) (Set, error) {
	var s Set
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Parse(part)
		if err != nil {
			return 0, err
		}
		s |= bit(c)
	}
	return s, nil
}
