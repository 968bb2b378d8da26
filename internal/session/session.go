// Package session runs the map state of one client.
//
// A Session owns its filter state, per-source engines and viewport tracker
// from a single goroutine (Run). Everything else talks to it by posting
// events: client input through the exported methods, finished source loads
// through the loader callback. Derivation happens synchronously inside the
// loop, so no state is shared and nothing needs locking.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/engine"
	"github.com/santinoo1919/medtrixmap/internal/layer"
	"github.com/santinoo1919/medtrixmap/internal/style"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/santinoo1919/medtrixmap/internal/viewport"
)

// ErrClosed is returned by event methods once Run has returned.
var ErrClosed = errors.New("session closed")

// Binding pairs a source definition with the Source that loads it.
type Binding struct {
	Def    datasource.Definition
	Source datasource.Source
}

// Bind builds the Source of every definition.
func Bind(defs []datasource.Definition, logger *slog.Logger) ([]Binding, error) {
	out := make([]Binding, 0, len(defs))
	for _, def := range defs {
		src, err := datasource.NewSource(def, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, Binding{Def: def, Source: src})
	}
	return out, nil
}

// Config configures a session.
type Config struct {
	// ID identifies the session in logs; a random one is generated when empty.
	ID       string
	Sources  []Binding
	Debounce time.Duration
	// Loader runs source loads; a private one is created when nil.
	Loader *datasource.Loader
	// Styles is the marker style cache; a private one is created when nil.
	Styles *style.Cache
	Logger *slog.Logger
}

// SourceError reports a failed source load to the client.
type SourceError struct {
	Source  string `json:"source"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Update is one message for the client: either a new layer composition or a
// source error.
type Update struct {
	Layers      *layer.Composition
	SourceError *SourceError
}

type sourceState struct {
	def     datasource.Definition
	src     datasource.Source
	engine  *engine.Engine
	enabled bool
	loading bool
	fc      *types.FeatureCollection
	region  string
}

// Session is the map state of one client.
type Session struct {
	id  string
	log *slog.Logger

	loader   *datasource.Loader
	tracker  *viewport.Tracker
	composer *layer.Composer

	sources []*sourceState
	byID    map[string]*sourceState

	viewport   types.Viewport
	categories category.Set

	events  chan event
	results chan datasource.LoadResult
	updates chan Update
	done    chan struct{}
}

// New creates a session. Call Run to start it.
func New(cfg Config) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", cfg.ID)

	loader := cfg.Loader
	if loader == nil {
		loader = datasource.NewLoader(datasource.LoaderConfig{Logger: log})
	}
	styles := cfg.Styles
	if styles == nil {
		styles = style.NewCache(style.DefaultIconOptions(), log)
	}

	s := &Session{
		id:         cfg.ID,
		log:        log,
		loader:     loader,
		tracker:    viewport.NewTracker(cfg.Debounce),
		composer:   layer.NewComposer(styles, log),
		byID:       make(map[string]*sourceState, len(cfg.Sources)),
		viewport:   types.UnsetViewport(),
		categories: category.AllSet(),
		events:     make(chan event, 64),
		results:    make(chan datasource.LoadResult, len(cfg.Sources)),
		updates:    make(chan Update, 16),
		done:       make(chan struct{}),
	}
	for _, b := range cfg.Sources {
		if b.Source == nil {
			return nil, fmt.Errorf("source %s has no loader", b.Def.ID)
		}
		if _, dup := s.byID[b.Def.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", b.Def.ID)
		}
		st := &sourceState{
			def: b.Def,
			src: b.Source,
			engine: engine.New(engine.Config{
				Source:        b.Def.ID,
				CategoryField: b.Def.CategoryField,
				RegionField:   b.Def.RegionField,
				Logger:        log,
			}),
			enabled: b.Def.Enabled,
		}
		s.sources = append(s.sources, st)
		s.byID[b.Def.ID] = st
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Updates delivers layer compositions and source errors in order. It is
// closed when Run returns.
func (s *Session) Updates() <-chan Update { return s.updates }

// Run processes events until ctx is cancelled. Enabled sources start loading
// immediately. Loads still in flight when Run returns complete in the
// background and are discarded.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.updates)
	defer close(s.done)
	defer s.tracker.Stop()

	s.log.Info("session started", "sources", len(s.sources))
	for _, st := range s.sources {
		if st.enabled {
			s.startLoad(ctx, st)
		}
	}
	s.publish(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session ended")
			return nil
		case ev := <-s.events:
			if ev.apply(ctx, s) {
				s.publish(ctx)
			}
		case res := <-s.results:
			s.landLoad(ctx, res)
			s.publish(ctx)
		case <-s.tracker.C():
			em, ok := s.tracker.Fire()
			if !ok {
				continue
			}
			s.setViewport(em)
			s.publish(ctx)
		}
	}
}

func (s *Session) post(ev event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Ready reports the map's first settled viewport. It takes effect at once.
func (s *Session) Ready(box types.BoundingBox) error { return s.post(readyEvent{box}) }

// Move reports a transient viewport during a pan or zoom.
func (s *Session) Move(box types.BoundingBox) error { return s.post(moveEvent{box}) }

// ToggleCategory adds or removes a category from the selection.
func (s *Session) ToggleCategory(c category.Category) error {
	return s.post(toggleCategoryEvent{c})
}

// ToggleSource enables or disables a source. The first enable loads it.
func (s *Session) ToggleSource(id string) error { return s.post(toggleSourceEvent{id}) }

// SelectRegion restricts a source to one region; "" clears the restriction.
func (s *Session) SelectRegion(source, region string) error {
	return s.post(selectRegionEvent{source, region})
}

func (s *Session) startLoad(ctx context.Context, st *sourceState) {
	if st.loading || st.fc != nil {
		return
	}
	st.loading = true
	s.loader.Go(ctx, st.src, func(res datasource.LoadResult) {
		select {
		case s.results <- res:
		case <-s.done:
		}
	})
}

func (s *Session) landLoad(ctx context.Context, res datasource.LoadResult) {
	st, ok := s.byID[res.Source]
	if !ok {
		return
	}
	st.loading = false
	st.fc = res.Collection
	if res.Err == nil {
		return
	}

	se := &SourceError{Source: res.Source, Message: res.Err.Error()}
	if ue, ok := res.Unavailable(); ok {
		se.Status = ue.Status
		se.Message = ue.Message
	}
	s.send(ctx, Update{SourceError: se})
}

func (s *Session) setViewport(em viewport.Emission) {
	s.viewport = types.ViewportOf(em.Box)
	s.log.Debug("viewport settled", "trigger", em.Trigger, "bounds", em.Box.String())
}

// publish derives every enabled source and sends the composition.
func (s *Session) publish(ctx context.Context) {
	comp := s.compose()
	s.send(ctx, Update{Layers: &comp})
}

func (s *Session) compose() layer.Composition {
	inputs := make([]layer.Input, 0, len(s.sources))
	for _, st := range s.sources {
		if !st.enabled {
			continue
		}
		view := st.engine.Derive(st.fc, engine.FilterState{
			Viewport:   s.viewport,
			Categories: s.categories,
			Region:     st.region,
		})
		inputs = append(inputs, layer.Input{
			Source: st.def.ID,
			Label:  st.def.Label,
			Popup:  st.def.Popup,
			View:   view,
		})
	}
	return s.composer.Compose(inputs)
}

func (s *Session) send(ctx context.Context, u Update) {
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}
