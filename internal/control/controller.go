package control

import (
	"fmt"
	"math"
	"time"
)

// Controller is a time-proportional controller for one loop. It owns a
// Window, the live setpoint and the automatic/manual mode flag.
type Controller struct {
	loop      Loop
	window    *Window
	pid       PID
	target    float64
	automatic bool
	manual    bool // commanded level while in manual mode
	fraction  float64
}

// NewController creates an automatic-mode controller for loop.
func NewController(loop Loop, window *Window, pid PID, target float64) *Controller {
	return &Controller{
		loop:      loop,
		window:    window,
		pid:       pid,
		target:    target,
		automatic: true,
	}
}

// Update runs one control step against the measured value. It returns true
// when the actuator was switched. Any finite value is treated as valid; a
// non-finite value yields a zero fraction so the actuator falls back to off.
func (c *Controller) Update(now time.Time, measured float64) (bool, error) {
	var (
		switched bool
		err      error
	)
	if c.automatic {
		c.fraction = 0
		if !math.IsNaN(measured) && !math.IsInf(measured, 0) {
			c.fraction = clamp(c.pid.Compute(c.target, measured))
		}
		switched, err = c.window.Apply(now, c.fraction)
	} else {
		switched, err = c.window.Drive(now, c.manual)
	}
	if err != nil {
		return false, fmt.Errorf("%s: drive output: %w", c.loop, err)
	}
	return switched, nil
}

// SetTarget replaces the setpoint. The next Update uses it.
func (c *Controller) SetTarget(v float64) {
	c.target = v
}

// Target returns the live setpoint.
func (c *Controller) Target() float64 {
	return c.target
}

// SetAutomatic switches between PID and manual mode. The window timing is
// left alone so a running cycle is not cut short. Entering manual mode holds
// the level currently on the pin.
func (c *Controller) SetAutomatic(on bool) {
	if c.automatic && !on {
		c.manual = c.window.Level()
	}
	c.automatic = on
}

// Automatic reports whether the controller follows the PID output.
func (c *Controller) Automatic() bool {
	return c.automatic
}

// SetManualLevel sets the level held while in manual mode.
func (c *Controller) SetManualLevel(on bool) {
	c.manual = on
}

// ManualLevel returns the level held while in manual mode.
func (c *Controller) ManualLevel() bool {
	return c.manual
}

// Loop returns the loop this controller drives.
func (c *Controller) Loop() Loop {
	return c.loop
}

// PID returns the PID collaborator.
func (c *Controller) PID() PID {
	return c.pid
}

// Window returns the actuation window.
func (c *Controller) Window() *Window {
	return c.window
}

// Level returns the level last written to the actuator.
func (c *Controller) Level() bool {
	return c.window.Level()
}

// Fraction returns the fraction used by the last automatic Update.
func (c *Controller) Fraction() float64 {
	return c.fraction
}

func clamp(f float64) float64 {
	if !(f > 0) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
