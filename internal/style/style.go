// Package style computes the visual representation of layers: one marker
// style per category, computed at most once per cache, and the fixed area
// style used for polygons.
package style

import (
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/santinoo1919/medtrixmap/internal/category"
)

// BorderDarkening is how much the marker border is darker than its fill.
const BorderDarkening = 0.18

// Style is the cached handle for one category marker. Handles are shared and
// must be treated as read-only.
type Style struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	BorderColor string `json:"borderColor"`
	// IconURL is a PNG data URL; empty when rasterization failed.
	IconURL string `json:"iconUrl,omitempty"`
	IconSize int   `json:"iconSize"`

	png []byte
}

// PNG returns the encoded marker icon.
func (s *Style) PNG() []byte { return s.png }

// AreaStyle is the path style for polygon features.
type AreaStyle struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

// DefaultAreaStyle is the outline and fill used for protected areas and
// other polygon layers.
var DefaultAreaStyle = AreaStyle{Color: "#3388ff", Weight: 2, FillOpacity: 0.2}

// Cache memoizes marker styles by category key. Entries are never evicted;
// there is one per category at most.
type Cache struct {
	opts IconOptions
	log  *slog.Logger

	mu      sync.Mutex
	entries map[string]*Style
	renders int
}

// NewCache creates an empty cache rendering icons with opts.
func NewCache(opts IconOptions, logger *slog.Logger) *Cache {
	if opts.Size <= 0 {
		opts = DefaultIconOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{opts: opts, log: logger, entries: make(map[string]*Style)}
}

// StyleFor returns the marker style of c, computing it on first use.
// Unknown categories share the "other" entry.
func (c *Cache) StyleFor(cat category.Category) *Style {
	if !cat.Valid() {
		cat = category.Other
	}
	key := cat.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.entries[key]; ok {
		return s
	}
	s := c.render(cat)
	c.entries[key] = s
	c.renders++
	return s
}

// Renders returns how many styles have been computed.
func (c *Cache) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

func (c *Cache) render(cat category.Category) *Style {
	info := cat.Info()
	s := &Style{
		Key:         cat.Key(),
		Label:       info.Label,
		Description: info.Description,
		Color:       info.Color,
		BorderColor: DarkenHex(info.Color, BorderDarkening),
		IconSize:    c.opts.Size,
	}

	fill, err := ParseHex(info.Color)
	if err != nil {
		c.log.Warn("invalid category color", "category", s.Key, "color", info.Color, "error", err)
		return s
	}
	img := RenderIcon(fill, Darken(fill, BorderDarkening), info.Glyph, c.opts)
	data, err := EncodePNG(img)
	if err != nil {
		c.log.Warn("failed to render category icon", "category", s.Key, "error", err)
		return s
	}
	s.png = data
	s.IconURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	c.log.Debug("rendered category icon", "category", s.Key, "bytes", len(data))
	return s
}
