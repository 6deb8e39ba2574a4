// Package control contains the time-proportional actuation logic for the tank.
// This package has NO hardware dependencies (no GPIO, serial, or time.Sleep).
// Time is always injectable via time.Time parameters.
package control

// Loop identifies one control loop of the tank.
type Loop string

const (
	LoopPH   Loop = "ph"
	LoopTemp Loop = "temp"
)

// Loops lists every control loop in update order.
var Loops = []Loop{LoopTemp, LoopPH}

// Term identifies one PID gain.
type Term string

const (
	TermP Term = "kp"
	TermI Term = "ki"
	TermD Term = "kd"
)

// Gains holds the PID gains of a loop.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// With returns a copy of g with the given term replaced.
func (g Gains) With(term Term, v float64) Gains {
	switch term {
	case TermP:
		g.Kp = v
	case TermI:
		g.Ki = v
	case TermD:
		g.Kd = v
	}
	return g
}

// Get returns the value of a single term.
func (g Gains) Get(term Term) float64 {
	switch term {
	case TermP:
		return g.Kp
	case TermI:
		return g.Ki
	case TermD:
		return g.Kd
	}
	return 0
}

// PID computes the on-duration fraction for a loop.
type PID interface {
	// Compute returns the fraction of the window, in [0,1], the actuator
	// should be energized for.
	Compute(setpoint, measured float64) float64

	// Gains returns the current gains.
	Gains() Gains

	// SetGains replaces the gains. Takes effect on the next Compute.
	SetGains(g Gains)
}

// Output drives a single digital actuator line.
type Output interface {
	// Set energizes (true) or de-energizes (false) the actuator.
	Set(on bool) error
}
