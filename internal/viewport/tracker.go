package viewport

import (
	"time"

	"github.com/santinoo1919/medtrixmap/internal/metrics"
	"github.com/santinoo1919/medtrixmap/internal/types"
)

// Tracker drives a Debouncer with a time.Timer. It is owned by a single
// goroutine: the owner selects on C and calls Fire when it is ready, so no
// locking is needed and no emission can arrive after Stop.
type Tracker struct {
	d     *Debouncer
	timer *time.Timer
	now   func() time.Time
}

// NewTracker creates a tracker with the given quiet period.
func NewTracker(quiet time.Duration) *Tracker {
	return &Tracker{d: NewDebouncer(quiet), now: time.Now}
}

// C fires when a pending emission is due. It is nil until the first move.
func (t *Tracker) C() <-chan time.Time {
	if t.timer == nil {
		return nil
	}
	return t.timer.C
}

// Ready emits box immediately and cancels any pending move emission.
func (t *Tracker) Ready(box types.BoundingBox) Emission {
	t.stopTimer()
	em := t.d.Ready(box)
	metrics.ViewportEmissionsTotal.WithLabelValues(string(em.Trigger)).Inc()
	return em
}

// Move records a move and restarts the quiet period.
func (t *Tracker) Move(box types.BoundingBox) {
	t.d.Move(box, t.now())
	t.resetTimer(t.d.QuietPeriod())
}

// Fire returns the settled viewport once C has fired.
func (t *Tracker) Fire() (Emission, bool) {
	em, ok := t.d.Fire(t.now())
	if !ok {
		// Woken early; wait out the remainder
		if deadline, pending := t.d.Pending(); pending {
			t.resetTimer(time.Until(deadline))
		}
		return Emission{}, false
	}
	metrics.ViewportEmissionsTotal.WithLabelValues(string(em.Trigger)).Inc()
	return em, true
}

// Stop cancels any pending emission.
func (t *Tracker) Stop() {
	t.stopTimer()
	t.d.Cancel()
}

func (t *Tracker) resetTimer(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *Tracker) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
	}
}
