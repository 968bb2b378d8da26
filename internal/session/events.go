package session

import (
	"context"

	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// event is client input applied inside the session loop. apply reports
// whether the derived layers may have changed.
type event interface {
	apply(ctx context.Context, s *Session) bool
}

type readyEvent struct{ box types.BoundingBox }

func (e readyEvent) apply(_ context.Context, s *Session) bool {
	s.setViewport(s.tracker.Ready(e.box))
	return true
}

type moveEvent struct{ box types.BoundingBox }

func (e moveEvent) apply(_ context.Context, s *Session) bool {
	s.tracker.Move(e.box)
	return false
}

type toggleCategoryEvent struct{ c category.Category }

func (e toggleCategoryEvent) apply(_ context.Context, s *Session) bool {
	s.categories = s.categories.Toggle(e.c)
	s.log.Debug("category toggled", "category", e.c.Key(), "selection", s.categories.String())
	return true
}

type toggleSourceEvent struct{ id string }

func (e toggleSourceEvent) apply(ctx context.Context, s *Session) bool {
	st, ok := s.byID[e.id]
	if !ok {
		s.log.Warn("toggle of unknown source", "source", e.id)
		return false
	}
	st.enabled = !st.enabled
	s.log.Debug("source toggled", "source", e.id, "enabled", st.enabled)
	if st.enabled {
		s.startLoad(ctx, st)
	}
	return true
}

type selectRegionEvent struct {
	source string
	region string
}

func (e selectRegionEvent) apply(_ context.Context, s *Session) bool {
	st, ok := s.byID[e.source]
	if !ok {
		s.log.Warn("region selected on unknown source", "source", e.source)
		return false
	}
	if st.def.RegionField == "" {
		s.log.Debug("source has no region field", "source", e.source)
		return false
	}
	st.region = e.region
	return true
}
