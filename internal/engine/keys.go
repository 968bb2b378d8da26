package engine

import (
	"fmt"
	"strings"

	"github.com/santinoo1919/medtrixmap/internal/geometry"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// keyFields are the property fields tried, in order, when a feature has no id.
var keyFields = []string{"name", "title", "mpa_name", "header_text", "id"}

// featureKey derives the render identity of features[i]: the feature id when
// present, otherwise a stable property field plus position plus index.
func featureKey(f *types.Feature, i int) string {
	if f.ID.IsSet() {
		return "id:" + f.ID.String()
	}

	var b strings.Builder
	for _, field := range keyFields {
		if v := f.Properties.Get(field); !v.IsAbsent() {
			b.WriteString(v.Text())
			break
		}
	}
	if p, ok := geometry.FirstCoordinate(f.Geometry); ok {
		fmt.Fprintf(&b, "@%.6f,%.6f", p[0], p[1])
	}
	fmt.Fprintf(&b, "#%d", i)
	return b.String()
}

// deriveKeys computes unique keys for a whole collection. Upstream ids are
// not guaranteed unique, so a repeated id is suffixed with its index and, if
// that is taken as well, a counter.
func deriveKeys(features []types.Feature) []string {
	keys := make([]string, len(features))
	seen := make(map[string]struct{}, len(features))
	for i := range features {
		k := featureKey(&features[i], i)
		if _, dup := seen[k]; dup {
			base := k
			k = fmt.Sprintf("%s~%d", base, i)
			for n := 1; ; n++ {
				if _, taken := seen[k]; !taken {
					break
				}
				k = fmt.Sprintf("%s~%d.%d", base, i, n)
			}
		}
		seen[k] = struct{}{}
		keys[i] = k
	}
	return keys
}
