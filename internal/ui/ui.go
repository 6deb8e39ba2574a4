// Package ui implements the keypad and LCD menu as a state machine.
//
// Each screen is a State. A State never replaces itself directly: it asks
// its Host for a transition, and the Machine swaps the pending state in
// between ticks. Numeric screens share one implementation parameterized by a
// Field.
package ui

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/store"
)

// ErrInvalidEntry is returned when a typed number cannot be committed.
var ErrInvalidEntry = errors.New("invalid entry")

// State is one screen of the menu.
type State interface {
	// Name identifies the screen, e.g. "MainMenu" or "SetKP".
	Name() string
	// Prompt is the screen title shown on the first line.
	Prompt() string
	// Start runs once when the state becomes current.
	Start()
	// Loop runs on every tick while the state is current.
	Loop()
	// HandleKey receives each key press while the state is current.
	HandleKey(k keypad.Key)
	// InCalibration reports whether automatic actuation must be suspended.
	InCalibration() bool
}

// DeviceInfo is shown by the information screens.
type DeviceInfo struct {
	Version string
	IP      string
	MAC     string
}

// Host is what states may use. The orchestrator implements it.
type Host interface {
	RequestTransition(s State)
	Now() time.Time
	Display() lcd.Display
	Store() store.Store
	Controller(loop control.Loop) *control.Controller
	PH() sensor.PH
	Temp() sensor.Temperature
	Info() DeviceInfo
	Dwell() time.Duration
	Log() *zap.SugaredLogger
}

// base supplies the defaults shared by every screen.
type base struct {
	host Host
}

func (b base) Loop()               {}
func (b base) InCalibration() bool { return false }

func (b base) show(line0, line1 string) {
	d := b.host.Display()
	d.SetLine(0, line0)
	d.SetLine(1, line1)
}
