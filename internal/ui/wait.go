package ui

import (
	"time"

	"github.com/sweeney/tank-controller/internal/keypad"
)

// Wait leaves the previous screen's confirmation on the display for the
// dwell time, then returns to the main menu.
type Wait struct {
	base
	since     time.Time
	requested bool
}

// NewWait creates a confirmation pause.
func NewWait(h Host) *Wait {
	return &Wait{base: base{host: h}}
}

func (s *Wait) Name() string           { return "Wait" }
func (s *Wait) Prompt() string         { return "" }
func (s *Wait) HandleKey(_ keypad.Key) {}

func (s *Wait) Start() {
	s.since = s.host.Now()
}

func (s *Wait) Loop() {
	if s.requested || s.host.Now().Sub(s.since) < s.host.Dwell() {
		return
	}
	s.requested = true
	s.host.RequestTransition(NewMainMenu(s.host))
}
