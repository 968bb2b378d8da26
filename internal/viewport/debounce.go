// Package viewport turns a stream of raw map movement events into settled
// viewport emissions. The first emission happens on the map's ready event;
// after that a burst of moves produces one emission carrying the last box,
// once no further move arrives within the quiet period.
package viewport

import (
	"time"

	"github.com/santinoo1919/medtrixmap/internal/types"
)

// DefaultQuietPeriod is the debounce window applied to move events.
const DefaultQuietPeriod = 200 * time.Millisecond

// Trigger tells why an emission happened.
type Trigger string

const (
	TriggerReady     Trigger = "ready"
	TriggerDebounced Trigger = "debounced"
)

// Emission is one settled viewport.
type Emission struct {
	Box     types.BoundingBox
	Trigger Trigger
}

// Debouncer is the clock-free state machine behind Tracker. It is either idle
// or pending with a deadline and the latest box seen. Callers supply the
// current time, so it can be driven by a real timer or by a test.
type Debouncer struct {
	quiet    time.Duration
	pending  bool
	deadline time.Time
	latest   types.BoundingBox
}

// NewDebouncer returns an idle debouncer. A non-positive quiet period falls
// back to DefaultQuietPeriod.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet}
}

// QuietPeriod returns the configured debounce window.
func (d *Debouncer) QuietPeriod() time.Duration { return d.quiet }

// Ready handles the map's initial ready event. It emits box immediately and
// drops any pending move.
func (d *Debouncer) Ready(box types.BoundingBox) Emission {
	d.pending = false
	d.deadline = time.Time{}
	return Emission{Box: box, Trigger: TriggerReady}
}

// Move records a move event at now and returns the new deadline. Each move
// restarts the quiet period.
func (d *Debouncer) Move(box types.BoundingBox, now time.Time) time.Time {
	d.pending = true
	d.latest = box
	d.deadline = now.Add(d.quiet)
	return d.deadline
}

// Pending reports whether an emission is scheduled and when.
func (d *Debouncer) Pending() (time.Time, bool) {
	return d.deadline, d.pending
}

// Fire emits the latest box if the deadline has passed at now. It returns
// false while idle or before the deadline.
func (d *Debouncer) Fire(now time.Time) (Emission, bool) {
	if !d.pending || now.Before(d.deadline) {
		return Emission{}, false
	}
	d.pending = false
	d.deadline = time.Time{}
	return Emission{Box: d.latest, Trigger: TriggerDebounced}, true
}

// Cancel drops a pending emission.
func (d *Debouncer) Cancel() {
	d.pending = false
	d.deadline = time.Time{}
}
