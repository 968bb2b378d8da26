// Package engine derives the render-ready feature list of one source from its
// loaded collection and the current filter state.
//
// Derivation is a memoized pure function: the same collection (by identity)
// under the same viewport and category selection (by value) returns the
// previous view without recomputing it.
package engine

import (
	"log/slog"
	"sort"

	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/geometry"
	"github.com/santinoo1919/medtrixmap/internal/metrics"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// DefaultIndexThreshold is the collection size from which the spatial filter
// uses an R-tree pre-filter instead of a linear scan.
const DefaultIndexThreshold = 256

// Config describes how one source's features are filtered.
type Config struct {
	Source string
	// CategoryField names the category property. Empty disables the category filter.
	CategoryField string
	// RegionField names the region property. Empty disables the region filter.
	RegionField string
	// IndexThreshold overrides DefaultIndexThreshold; negative disables the index.
	IndexThreshold int
	Logger         *slog.Logger
}

// FilterState is the externally owned selection a view is derived under.
// FilterState values are comparable with ==.
type FilterState struct {
	Viewport   types.Viewport
	Categories category.Set
	// Region restricts sources with a region field to one region; "" means all.
	Region string
}

// DefaultFilterState is the state of a new session: no viewport yet and
// every category selected.
func DefaultFilterState() FilterState {
	return FilterState{Viewport: types.UnsetViewport(), Categories: category.AllSet()}
}

// Entry is one feature that passed every filter.
type Entry struct {
	Key      string
	Feature  *types.Feature
	Category category.Category
}

// View is a derived, read-only result. Views are replaced, never mutated.
type View struct {
	Entries []Entry
	// Computing is set while the backing collection has not loaded.
	Computing bool
	// Regions lists the distinct region values of the collection, sorted.
	Regions []string
}

// Len returns the number of entries.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Entries)
}

// Features returns the entries' features in order.
func (v *View) Features() []types.Feature {
	if v == nil {
		return nil
	}
	out := make([]types.Feature, len(v.Entries))
	for i, e := range v.Entries {
		out[i] = *e.Feature
	}
	return out
}

// prepared is per-collection data shared across derivations.
type prepared struct {
	fc         *types.FeatureCollection
	keys       []string
	categories []category.Category
	regions    []string
	index      *spatialIndex
}

// Engine derives views for one source. It is not safe for concurrent use; a
// session owns its engines from a single goroutine.
type Engine struct {
	cfg Config
	log *slog.Logger

	prep *prepared

	lastFC    *types.FeatureCollection
	lastState FilterState
	lastView  *View

	computations int
}

// New creates an engine for one source.
func New(cfg Config) *Engine {
	if cfg.IndexThreshold == 0 {
		cfg.IndexThreshold = DefaultIndexThreshold
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log.With("source", cfg.Source)}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Computations returns how many times a view was actually computed.
func (e *Engine) Computations() int { return e.computations }

// Derive returns the view of fc under state. A nil fc means the source has
// not loaded yet. When neither input changed since the last call, the
// previous view is returned as is.
func (e *Engine) Derive(fc *types.FeatureCollection, state FilterState) *View {
	if fc == nil {
		metrics.DerivationsTotal.WithLabelValues(e.cfg.Source, "pending").Inc()
		return &View{Computing: true}
	}
	if e.lastView != nil && fc == e.lastFC && state == e.lastState {
		metrics.DerivationsTotal.WithLabelValues(e.cfg.Source, "memoized").Inc()
		return e.lastView
	}

	p := e.prepare(fc)
	view := e.compute(p, state)

	e.lastFC = fc
	e.lastState = state
	e.lastView = view
	e.computations++
	metrics.DerivationsTotal.WithLabelValues(e.cfg.Source, "computed").Inc()

	e.log.Debug("derived view",
		"viewport", state.Viewport.String(),
		"categories", state.Categories.String(),
		"region", state.Region,
		"features", fc.Count(),
		"visible", len(view.Entries),
	)
	return view
}

// Regions returns the sorted distinct region values of fc.
func (e *Engine) Regions(fc *types.FeatureCollection) []string {
	if fc == nil || e.cfg.RegionField == "" {
		return nil
	}
	return e.prepare(fc).regions
}

func (e *Engine) prepare(fc *types.FeatureCollection) *prepared {
	if e.prep != nil && e.prep.fc == fc {
		return e.prep
	}

	p := &prepared{
		fc:         fc,
		keys:       deriveKeys(fc.Features),
		categories: make([]category.Category, len(fc.Features)),
	}
	if e.cfg.CategoryField != "" {
		for i := range fc.Features {
			p.categories[i] = category.Of(&fc.Features[i], e.cfg.CategoryField)
		}
	}
	if e.cfg.RegionField != "" {
		p.regions = distinctRegions(fc.Features, e.cfg.RegionField)
	}
	if e.cfg.IndexThreshold > 0 && len(fc.Features) >= e.cfg.IndexThreshold {
		p.index = buildSpatialIndex(fc.Features)
	}

	e.prep = p
	return p
}

func (e *Engine) compute(p *prepared, state FilterState) *View {
	features := p.fc.Features
	view := &View{Regions: p.regions}

	categorized := e.cfg.CategoryField != ""
	if categorized && state.Categories.IsEmpty() {
		view.Entries = []Entry{}
		return view
	}

	var marks []bool
	if state.Viewport.Set && p.index != nil {
		marks = p.index.candidates(state.Viewport.Box)
	}

	entries := make([]Entry, 0, len(features))
	for i := range features {
		f := &features[i]

		if state.Viewport.Set {
			if marks != nil && !marks[i] {
				continue
			}
			if !geometry.Contains(state.Viewport.Box, f.Geometry) {
				continue
			}
		}
		if categorized && !state.Categories.Has(p.categories[i]) {
			continue
		}
		if state.Region != "" && e.cfg.RegionField != "" &&
			f.Properties.Get(e.cfg.RegionField).Text() != state.Region {
			continue
		}

		entries = append(entries, Entry{Key: p.keys[i], Feature: f, Category: p.categories[i]})
	}
	view.Entries = entries
	return view
}

func distinctRegions(features []types.Feature, field string) []string {
	seen := make(map[string]struct{})
	for i := range features {
		v := features[i].Properties.Get(field)
		if v.IsAbsent() {
			continue
		}
		if t := v.Text(); t != "" {
			seen[t] = struct{}{}
		}
	}
	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}
