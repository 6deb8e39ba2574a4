package ui

import (
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
)

// Field describes one value that can be typed on the keypad.
type Field struct {
	Name        string // state name
	Prompt      string // first display line
	Label       string // used in the confirmation, e.g. "KP"
	Precision   int    // decimals shown and accepted
	Signed      bool   // '#' toggles the sign
	Calibration bool   // suspends actuation while on screen

	// Current returns the value shown before anything is typed.
	Current func(h Host) float64
	// Validate rejects out-of-range values. Optional.
	Validate func(v float64) error
	// Apply puts the value into effect and persists it. An error means the
	// value may be live but was not saved.
	Apply func(h Host, v float64) error
}

// NumberEntry is the screen for typing a Field.
type NumberEntry struct {
	base
	field   Field
	current float64
	buf     entryBuffer
}

// NewNumberEntry creates an entry screen for f.
func NewNumberEntry(h Host, f Field) *NumberEntry {
	return &NumberEntry{
		base:  base{host: h},
		field: f,
		buf:   entryBuffer{precision: f.Precision, signed: f.Signed},
	}
}

func (s *NumberEntry) Name() string        { return s.field.Name }
func (s *NumberEntry) Prompt() string      { return s.field.Prompt }
func (s *NumberEntry) InCalibration() bool { return s.field.Calibration }

// Field returns the descriptor being edited.
func (s *NumberEntry) Field() Field {
	return s.field
}

// Start captures the current value and draws the screen.
func (s *NumberEntry) Start() {
	s.current = s.field.Current(s.host)
	s.render()
}

func (s *NumberEntry) render() {
	s.show(s.field.Prompt, s.entryLine())
}

func (s *NumberEntry) entryLine() string {
	cur := "--"
	if !math.IsNaN(s.current) {
		cur = fmt.Sprintf("%.*f", s.field.Precision, s.current)
	}
	line := cur + "->" + s.buf.String()
	if len(line) > lcd.Cols {
		// keep the typed text visible
		line = line[len(line)-lcd.Cols:]
	}
	return line
}

// HandleKey edits the buffer, commits on Accept and leaves on Cancel.
func (s *NumberEntry) HandleKey(k keypad.Key) {
	switch {
	case k.IsDigit():
		s.buf.appendDigit(byte(k))
	case k == keypad.Decimal:
		s.buf.appendPoint()
	case k == keypad.Sign:
		s.buf.toggleSign()
	case k == keypad.Backspace:
		s.buf.backspace()
	case k == keypad.Clear:
		s.buf.clear()
	case k == keypad.Accept:
		s.commit()
		return
	case k == keypad.Cancel:
		s.host.RequestTransition(NewMainMenu(s.host))
		return
	default:
		return
	}
	s.render()
}

func (s *NumberEntry) commit() {
	v, err := s.buf.value()
	if err == nil && s.field.Validate != nil {
		if verr := s.field.Validate(v); verr != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidEntry, verr)
		}
	}
	if err != nil {
		s.host.Log().Debugw("ui: entry rejected", "state", s.field.Name, "text", s.buf.String(), "error", err)
		s.show("Invalid entry", s.entryLine())
		return
	}

	line0 := s.field.Prompt
	if err := s.field.Apply(s.host, v); err != nil {
		s.host.Log().Warnw("ui: apply failed", "state", s.field.Name, "value", v, "error", err)
		line0 = "Save failed"
		if errors.Is(err, errNotApplied) {
			line0 = "Failed"
		}
	} else {
		s.host.Log().Infow("ui: value set", "state", s.field.Name, "value", v)
	}
	s.show(line0, lcd.Pad(fmt.Sprintf("New %s=%.*f", s.field.Label, s.field.Precision, v)))
	s.host.RequestTransition(NewWait(s.host))
}

// errNotApplied marks an Apply failure where nothing took effect.
var errNotApplied = errors.New("not applied")
