package datasource

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/metrics"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// LoadResult is the outcome of one source load. Collection is never nil: a
// failed load yields an empty collection so downstream derivation treats the
// source as loaded with zero features, and Err carries the failure.
type LoadResult struct {
	Err        error
	Collection *types.FeatureCollection
	Source     string
	Elapsed    time.Duration
}

// Unavailable returns the load failure as *UnavailableError, if it is one.
func (r LoadResult) Unavailable() (*UnavailableError, bool) {
	var ue *UnavailableError
	if errors.As(r.Err, &ue) {
		return ue, true
	}
	return nil, false
}

// LoaderStatus contains current status of the loader.
type LoaderStatus struct {
	// ActiveLoads is the number of currently in-flight loads
	ActiveLoads int `json:"active_loads"`
	// TotalCompleted is the total number of successful loads since start
	TotalCompleted int64 `json:"total_completed"`
	// TotalFailed is the total number of failed loads since start
	TotalFailed int64 `json:"total_failed"`
	// TotalFeatures is the total number of features loaded since start
	TotalFeatures int64 `json:"total_features"`
	// CurrentSources lists sources currently being loaded
	CurrentSources []string `json:"current_sources"`
}

// LoaderConfig configures the loader behavior.
type LoaderConfig struct {
	// Logger for load operations
	Logger *slog.Logger
	// FeatureWarningThreshold warns when a collection exceeds this many features (default: 50000)
	FeatureWarningThreshold int
}

// Loader runs source loads concurrently, each on its own goroutine, so a slow
// source never blocks another.
type Loader struct {
	cfg LoaderConfig
	wg  sync.WaitGroup

	// Status tracking
	activeLoads    atomic.Int32
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
	totalFeatures  atomic.Int64
	currentSources sync.Map // map[string]time.Time - source id -> start time
}

// NewLoader creates a loader with the given config.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FeatureWarningThreshold <= 0 {
		cfg.FeatureWarningThreshold = 50000
	}
	return &Loader{cfg: cfg}
}

// Go starts loading src in the background and calls deliver with the result.
// The load is not cancelled when the caller loses interest; only ctx cancels it.
func (l *Loader) Go(ctx context.Context, src Source, deliver func(LoadResult)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		res := l.Load(ctx, src)
		if deliver != nil {
			deliver(res)
		}
	}()
}

// Wait blocks until every load started with Go has delivered.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Load performs a synchronous load.
func (l *Loader) Load(ctx context.Context, src Source) LoadResult {
	id := src.ID()

	l.activeLoads.Add(1)
	l.currentSources.Store(id, time.Now())
	defer func() {
		l.activeLoads.Add(-1)
		l.currentSources.Delete(id)
	}()

	log := l.cfg.Logger.With("source", id)
	log.Info("loading feature source")

	start := time.Now()
	fc, err := src.Load(ctx)
	elapsed := time.Since(start)

	if err != nil {
		l.totalFailed.Add(1)
		metrics.ObserveSourceLoad(id, false, elapsed, 0, 0)

		attrs := []any{"error", err, "duration_ms", elapsed.Milliseconds()}
		var ue *UnavailableError
		if errors.As(err, &ue) && ue.Status != 0 {
			attrs = append(attrs, "status", ue.Status)
		}
		log.Error("feature source unavailable", attrs...)

		return LoadResult{
			Source:     id,
			Collection: &types.FeatureCollection{Source: id, FetchedAt: time.Now()},
			Err:        err,
			Elapsed:    elapsed,
		}
	}
	if fc == nil {
		fc = &types.FeatureCollection{Source: id, FetchedAt: time.Now()}
	}

	l.totalCompleted.Add(1)
	l.totalFeatures.Add(int64(fc.Count()))
	metrics.ObserveSourceLoad(id, true, elapsed, fc.Count(), fc.Skipped)

	counts := fc.GeometryCounts()
	log.Info("feature source loaded",
		"duration_ms", elapsed.Milliseconds(),
		"features", fc.Count(),
		"skipped", fc.Skipped,
		"points", counts["Point"],
		"polygons", counts["Polygon"],
		"multipolygons", counts["MultiPolygon"],
	)

	if fc.Count() > l.cfg.FeatureWarningThreshold {
		log.Warn("feature collection exceeds size threshold - consider narrowing the upstream query",
			"threshold", l.cfg.FeatureWarningThreshold,
			"actual", fc.Count(),
		)
	}

	return LoadResult{Source: id, Collection: fc, Elapsed: elapsed}
}

// Status returns the current status of the loader.
func (l *Loader) Status() LoaderStatus {
	var current []string
	l.currentSources.Range(func(key, _ any) bool {
		current = append(current, key.(string))
		return true
	})
	sort.Strings(current)

	return LoaderStatus{
		ActiveLoads:    int(l.activeLoads.Load()),
		TotalCompleted: l.totalCompleted.Load(),
		TotalFailed:    l.totalFailed.Load(),
		TotalFeatures:  l.totalFeatures.Load(),
		CurrentSources: current,
	}
}
