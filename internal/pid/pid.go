// Package pid adapts go.einride.tech/pid to the controller's PID collaborator:
// gains in, a window fraction in [0,1] out.
package pid

import (
	"time"

	"go.einride.tech/pid"

	"github.com/sweeney/tank-controller/internal/control"
)

// Direction selects which side of the setpoint drives the actuator.
type Direction int

const (
	// Direct energizes the actuator when the value is below the setpoint (heater).
	Direct Direction = iota
	// Reverse energizes the actuator when the value is above the setpoint
	// (CO2 lowers pH, chiller lowers temperature).
	Reverse
)

// ParseDirection maps "direct"/"reverse" to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "direct", "":
		return Direct, true
	case "reverse":
		return Reverse, true
	}
	return Direct, false
}

// Loop is a PID loop whose control signal is scaled into a window fraction.
type Loop struct {
	ctrl      pid.Controller
	gains     control.Gains
	direction Direction
	scale     float64
	now       func() time.Time
	last      time.Time
}

// New creates a loop. scale divides the raw control signal before clamping,
// so gains expressed in milliseconds of on-time per window keep their meaning
// when scale is the window size in milliseconds.
func New(g control.Gains, dir Direction, scale float64, now func() time.Time) *Loop {
	if scale <= 0 {
		scale = 1
	}
	l := &Loop{direction: dir, scale: scale, now: now}
	l.SetGains(g)
	return l
}

// Compute feeds one sample to the controller and returns the clamped fraction.
func (l *Loop) Compute(setpoint, measured float64) float64 {
	t := l.now()
	dt := time.Second
	if !l.last.IsZero() && t.After(l.last) {
		dt = t.Sub(l.last)
	}
	l.last = t

	in := pid.ControllerInput{
		ReferenceSignal:  setpoint,
		ActualSignal:     measured,
		SamplingInterval: dt,
	}
	if l.direction == Reverse {
		in.ReferenceSignal, in.ActualSignal = measured, setpoint
	}
	l.ctrl.Update(in)

	f := l.ctrl.State.ControlSignal / l.scale
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Gains returns the current gains.
func (l *Loop) Gains() control.Gains {
	return l.gains
}

// SetGains replaces the gains without clearing accumulated state.
func (l *Loop) SetGains(g control.Gains) {
	l.gains = g
	l.ctrl.Config = pid.ControllerConfig{
		ProportionalGain: g.Kp,
		IntegralGain:     g.Ki,
		DerivativeGain:   g.Kd,
	}
}

// Reset clears the integral and derivative state.
func (l *Loop) Reset() {
	l.ctrl.State = pid.ControllerState{}
	l.last = time.Time{}
}
