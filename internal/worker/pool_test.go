package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

type stubSource struct {
	id  string
	err error
}

func (s stubSource) ID() string { return s.id }

func (s stubSource) Load(ctx context.Context) (*types.FeatureCollection, error) {
	return nil, s.err
}

// mockLoader simulates source loads for testing
type mockLoader struct {
	delay     time.Duration
	fail      map[string]bool
	callCount atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (m *mockLoader) Load(ctx context.Context, src datasource.Source) datasource.LoadResult {
	m.callCount.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxFlight.Load()
		if n <= cur || m.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	select {
	case <-ctx.Done():
		return datasource.LoadResult{Source: src.ID(), Collection: &types.FeatureCollection{}, Err: ctx.Err()}
	case <-time.After(m.delay):
	}

	if m.fail[src.ID()] {
		return datasource.LoadResult{
			Source:     src.ID(),
			Collection: &types.FeatureCollection{},
			Err:        &datasource.UnavailableError{Source: src.ID(), Status: 503, Message: "down"},
		}
	}
	fc := &types.FeatureCollection{Features: make([]types.Feature, 3), Skipped: 1}
	return datasource.LoadResult{Source: src.ID(), Collection: fc}
}

func tasksFor(ids ...string) []Task {
	tasks := make([]Task, len(ids))
	for i, id := range ids {
		tasks[i] = Task{Source: stubSource{id: id}}
	}
	return tasks
}

func TestPool_BasicExecution(t *testing.T) {
	loader := &mockLoader{delay: 10 * time.Millisecond}
	pool := New(Config{Workers: 2, Loader: loader})

	tasks := tasksFor("protected-areas", "amp", "wrecks")
	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.Task.Source.ID(), r.Err)
		}
		if r.Features != 3 || r.Skipped != 1 {
			t.Errorf("unexpected counts for %s: %d features, %d skipped", r.Task.Source.ID(), r.Features, r.Skipped)
		}
	}
	if loader.callCount.Load() != int32(len(tasks)) {
		t.Errorf("expected %d loads, got %d", len(tasks), loader.callCount.Load())
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	loader := &mockLoader{delay: 30 * time.Millisecond}
	pool := New(Config{Workers: 2, Loader: loader})

	pool.Run(context.Background(), tasksFor("a", "b", "c", "d", "e"))

	if got := loader.maxFlight.Load(); got > 2 {
		t.Errorf("expected at most 2 loads in flight, saw %d", got)
	}
}

func TestPool_Failures(t *testing.T) {
	loader := &mockLoader{fail: map[string]bool{"amp": true}}

	var lastCompleted, lastFailed int
	pool := New(Config{
		Workers: 3,
		Loader:  loader,
		OnProgress: func(completed, total, failed int) {
			lastCompleted, lastFailed = completed, failed
		},
	})

	results := pool.Run(context.Background(), tasksFor("protected-areas", "amp", "wrecks"))

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if r.Task.Source.ID() != "amp" {
				t.Errorf("unexpected failure for %s", r.Task.Source.ID())
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
	if lastCompleted != 3 || lastFailed != 1 {
		t.Errorf("expected final progress 3/1, got %d/%d", lastCompleted, lastFailed)
	}
}

func TestPool_Cancelled(t *testing.T) {
	loader := &mockLoader{delay: time.Second}
	pool := New(Config{Workers: 1, Loader: loader})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := pool.Run(ctx, tasksFor("a", "b"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err == nil {
			t.Errorf("expected cancellation error for %s", r.Task.Source.ID())
		}
	}
	if loader.callCount.Load() != 0 {
		t.Errorf("expected no loads after cancellation, got %d", loader.callCount.Load())
	}
}

func TestPool_Empty(t *testing.T) {
	pool := New(Config{Loader: &mockLoader{}})
	if results := pool.Run(context.Background(), nil); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}
