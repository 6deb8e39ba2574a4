package ui

import (
	"fmt"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/keypad"
)

// Manual lets the operator take a loop out of automatic control and switch
// its actuator by hand. Accept toggles the mode, 1 and 0 set the pin while
// in manual, Cancel leaves.
type Manual struct {
	base
	loop  control.Loop
	saved bool
}

// NewManual creates the manual control screen for loop.
func NewManual(h Host, loop control.Loop) *Manual {
	return &Manual{base: base{host: h}, loop: loop, saved: true}
}

func (s *Manual) Name() string {
	if s.loop == control.LoopPH {
		return "ManualPH"
	}
	return "ManualTemp"
}

func (s *Manual) Prompt() string {
	if s.loop == control.LoopPH {
		return "pH"
	}
	return "Temp"
}

func (s *Manual) Start() {
	s.render()
}

// Loop keeps the pin level current while the window runs.
func (s *Manual) Loop() {
	s.render()
}

func (s *Manual) HandleKey(k keypad.Key) {
	c := s.host.Controller(s.loop)
	switch k {
	case keypad.Accept:
		auto := !c.Automatic()
		c.SetAutomatic(auto)
		s.saved = true
		if err := s.host.Store().SetAutomatic(s.loop, auto); err != nil {
			s.host.Log().Warnw("ui: save mode failed", "loop", s.loop, "error", err)
			s.saved = false
		}
		s.host.Log().Infow("ui: loop mode", "loop", s.loop, "automatic", auto)
	case '1', '0':
		if c.Automatic() {
			return
		}
		c.SetManualLevel(k == '1')
	case keypad.Cancel:
		s.host.RequestTransition(NewMainMenu(s.host))
		return
	default:
		return
	}
	s.render()
}

func (s *Manual) render() {
	c := s.host.Controller(s.loop)
	mode := "auto"
	if !c.Automatic() {
		mode = "manual"
	}
	pin := "off"
	if c.Level() {
		pin = "ON"
	}
	line1 := "A=mode 1/0 D=out"
	if !s.saved {
		line1 = "Save failed"
	}
	s.show(fmt.Sprintf("%s %s %s", s.Prompt(), mode, pin), line1)
}
