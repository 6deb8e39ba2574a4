package ui

import (
	"fmt"
	"math"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/sensor"
)

// MenuItem is one entry reachable from the main menu.
type MenuItem struct {
	Label string
	Open  func(h Host) State
}

func entry(f Field) func(Host) State {
	return func(h Host) State { return NewNumberEntry(h, f) }
}

// MenuItems lists the screens in browse order.
var MenuItems = []MenuItem{
	{"Set pH target", entry(TargetField(control.LoopPH))},
	{"Set temperature", entry(TargetField(control.LoopTemp))},
	{"pH low buffer", entry(PHCalibrationField(sensor.CalLow))},
	{"pH mid buffer", entry(PHCalibrationField(sensor.CalMid))},
	{"pH high buffer", entry(PHCalibrationField(sensor.CalHigh))},
	{"Temp calibration", entry(TempCalibrationField())},
	{"Set KP", entry(GainField(control.LoopPH, control.TermP))},
	{"Set KI", entry(GainField(control.LoopPH, control.TermI))},
	{"Set KD", entry(GainField(control.LoopPH, control.TermD))},
	{"Set temp KP", entry(GainField(control.LoopTemp, control.TermP))},
	{"Set temp KI", entry(GainField(control.LoopTemp, control.TermI))},
	{"Set temp KD", entry(GainField(control.LoopTemp, control.TermD))},
	{"Manual pH", func(h Host) State { return NewManual(h, control.LoopPH) }},
	{"Manual temp", func(h Host) State { return NewManual(h, control.LoopTemp) }},
	{"Set tank ID", entry(TankIDField())},
	{"Device address", func(h Host) State { return NewSeeDeviceAddress(h) }},
	{"Version", func(h Host) State { return NewSeeVersion(h) }},
}

// MainMenu shows live readings. Up or Down switches to browsing the menu
// items; Accept opens the highlighted item and Cancel returns to the readings.
type MainMenu struct {
	base
	browsing bool
	index    int
}

// NewMainMenu creates the top-level screen.
func NewMainMenu(h Host) *MainMenu {
	return &MainMenu{base: base{host: h}}
}

func (s *MainMenu) Name() string   { return "MainMenu" }
func (s *MainMenu) Prompt() string { return "Main menu" }

// Browsing reports whether the item list is shown.
func (s *MainMenu) Browsing() bool {
	return s.browsing
}

// Selected returns the highlighted item.
func (s *MainMenu) Selected() MenuItem {
	return MenuItems[s.index]
}

func (s *MainMenu) Start() {
	s.render()
}

// Loop refreshes the readings while they are on screen.
func (s *MainMenu) Loop() {
	if !s.browsing {
		s.render()
	}
}

func (s *MainMenu) HandleKey(k keypad.Key) {
	n := len(MenuItems)
	switch k {
	case keypad.Up:
		if s.browsing {
			s.index = (s.index + n - 1) % n
		}
		s.browsing = true
	case keypad.Down:
		if s.browsing {
			s.index = (s.index + 1) % n
		}
		s.browsing = true
	case keypad.Accept:
		if !s.browsing {
			s.browsing = true
			break
		}
		s.host.RequestTransition(MenuItems[s.index].Open(s.host))
		return
	case keypad.Cancel:
		s.browsing = false
	default:
		return
	}
	s.render()
}

func (s *MainMenu) render() {
	if s.browsing {
		s.show(MenuItems[s.index].Label, fmt.Sprintf("%2d/%d 2^ 8v A ok", s.index+1, len(MenuItems)))
		return
	}
	ph := s.host.Controller(control.LoopPH)
	temp := s.host.Controller(control.LoopTemp)
	s.show(
		fmt.Sprintf("pH=%s%s %5.3f", reading(s.host.PH().Value(), 5, 3), mark(ph), ph.Target()),
		fmt.Sprintf("T=%s%s %5.2f", reading(s.host.Temp().Value(), 5, 2), mark(temp), temp.Target()),
	)
}

func reading(v float64, width, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%*s", width, "--")
	}
	return fmt.Sprintf("%*.*f", width, prec, v)
}

// mark flags a manual loop ("M") or an energized actuator ("*").
func mark(c *control.Controller) string {
	switch {
	case !c.Automatic():
		return "M"
	case c.Level():
		return "*"
	}
	return " "
}
