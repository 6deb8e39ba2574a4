package control

import (
	"errors"
	"math"
	"time"
)

// Window converts a control fraction into an on/off level over a fixed
// period (time-proportional output).
type Window struct {
	size         time.Duration
	minActuation time.Duration
	out          Output

	start      time.Time
	onTime     time.Duration
	started    bool
	level      bool
	written    bool
	lastSwitch time.Time
	switches   int
}

// NewWindow creates a window of the given size driving out. Level changes on
// out are at least minActuation apart.
func NewWindow(size, minActuation time.Duration, out Output) (*Window, error) {
	if size <= 0 {
		return nil, errors.New("window size must be positive")
	}
	if minActuation < 0 {
		return nil, errors.New("minimum actuation must not be negative")
	}
	if out == nil {
		return nil, errors.New("window output is nil")
	}
	return &Window{size: size, minActuation: minActuation, out: out}, nil
}

// ShouldEnergize advances the window to now and reports whether the actuator
// is wanted on. fraction is only consulted when a new window starts.
func (w *Window) ShouldEnergize(now time.Time, fraction float64) bool {
	if !w.started || now.Sub(w.start) >= w.size {
		// A late tick starts exactly one fresh window at now.
		w.start = now
		w.onTime = OnTime(fraction, w.size)
		w.started = true
	}
	return now.Sub(w.start) < w.onTime
}

// Apply computes the wanted level for now and drives the output toward it.
// A change that arrives before the minimum actuation interval has passed is
// deferred; it is re-evaluated on the next call. Returns true when the output
// was switched.
func (w *Window) Apply(now time.Time, fraction float64) (bool, error) {
	return w.Drive(now, w.ShouldEnergize(now, fraction))
}

// Drive moves the output to want, honoring the minimum actuation interval.
// It does not touch the window timing.
func (w *Window) Drive(now time.Time, want bool) (bool, error) {
	if w.written && want == w.level {
		return false, nil
	}
	if w.written && now.Sub(w.lastSwitch) < w.minActuation {
		return false, nil
	}
	if err := w.out.Set(want); err != nil {
		return false, err
	}
	changed := !w.written || want != w.level
	w.level = want
	w.written = true
	w.lastSwitch = now
	if changed {
		w.switches++
	}
	return changed, nil
}

// Level returns the level last written to the output.
func (w *Window) Level() bool {
	return w.level
}

// OnTime returns the on-time computed for the current window.
func (w *Window) OnTime() time.Duration {
	return w.onTime
}

// Size returns the window size.
func (w *Window) Size() time.Duration {
	return w.size
}

// Switches returns the number of level changes written so far.
func (w *Window) Switches() int {
	return w.switches
}

// OnTime converts a fraction into an on-time within a window of size.
// Fractions are clamped into [0,1] so the result never exceeds size.
func OnTime(fraction float64, size time.Duration) time.Duration {
	if !(fraction > 0) { // also catches NaN
		return 0
	}
	if fraction >= 1 {
		return size
	}
	return time.Duration(math.Round(fraction * float64(size)))
}
