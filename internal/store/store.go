// Package store persists the operator settings that must survive a power
// loss: setpoints, PID gains, loop modes, tank id and temperature correction.
package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/tank-controller/internal/control"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("store: closed")

// Store reads and writes settings. Reads come from memory; writes persist
// before they become visible.
type Store interface {
	Target(loop control.Loop) float64
	SetTarget(loop control.Loop, v float64) error
	Gain(loop control.Loop, term control.Term) float64
	SetGain(loop control.Loop, term control.Term, v float64) error
	Gains(loop control.Loop) control.Gains
	Automatic(loop control.Loop) bool
	SetAutomatic(loop control.Loop, on bool) error
	TankID() int
	SetTankID(id int) error
	TempCorrection() float64
	SetTempCorrection(v float64) error
	Close() error
}

const (
	keyTankID         = "tankid"
	keyTempCorrection = "temp.correction"
)

func targetKey(loop control.Loop) string { return string(loop) + ".target" }

func gainKey(loop control.Loop, term control.Term) string {
	return string(loop) + "." + string(term)
}

func autoKey(loop control.Loop) string { return string(loop) + ".auto" }

// Defaults returns the first-boot settings.
func Defaults() map[string]float64 {
	return map[string]float64{
		targetKey(control.LoopPH):                8.1,
		targetKey(control.LoopTemp):              20.0,
		gainKey(control.LoopPH, control.TermP):   100000,
		gainKey(control.LoopPH, control.TermI):   0,
		gainKey(control.LoopPH, control.TermD):   0,
		gainKey(control.LoopTemp, control.TermP): 100000,
		gainKey(control.LoopTemp, control.TermI): 0,
		gainKey(control.LoopTemp, control.TermD): 0,
		autoKey(control.LoopPH):                  1,
		autoKey(control.LoopTemp):                1,
		keyTankID:                                0,
		keyTempCorrection:                        0,
	}
}

// settings is the in-memory view shared by every Store implementation.
// put persists one value and is called before the cache is updated.
type settings struct {
	values map[string]float64
	put    func(key string, v float64) error
	closed bool
}

func (s *settings) get(key string) float64 {
	return s.values[key]
}

func (s *settings) set(key string, v float64) error {
	if s.closed {
		return ErrClosed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("store: %s: value not finite", key)
	}
	if err := s.put(key, v); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	s.values[key] = v
	return nil
}

func (s *settings) Target(loop control.Loop) float64 {
	return s.get(targetKey(loop))
}

func (s *settings) SetTarget(loop control.Loop, v float64) error {
	return s.set(targetKey(loop), v)
}

func (s *settings) Gain(loop control.Loop, term control.Term) float64 {
	return s.get(gainKey(loop, term))
}

func (s *settings) SetGain(loop control.Loop, term control.Term, v float64) error {
	return s.set(gainKey(loop, term), v)
}

func (s *settings) Gains(loop control.Loop) control.Gains {
	return control.Gains{
		Kp: s.Gain(loop, control.TermP),
		Ki: s.Gain(loop, control.TermI),
		Kd: s.Gain(loop, control.TermD),
	}
}

func (s *settings) Automatic(loop control.Loop) bool {
	return s.get(autoKey(loop)) != 0
}

func (s *settings) SetAutomatic(loop control.Loop, on bool) error {
	v := 0.0
	if on {
		v = 1
	}
	return s.set(autoKey(loop), v)
}

func (s *settings) TankID() int {
	return int(s.get(keyTankID))
}

func (s *settings) SetTankID(id int) error {
	if id < 0 {
		return fmt.Errorf("store: tank id %d is negative", id)
	}
	return s.set(keyTankID, float64(id))
}

func (s *settings) TempCorrection() float64 {
	return s.get(keyTempCorrection)
}

func (s *settings) SetTempCorrection(v float64) error {
	return s.set(keyTempCorrection, v)
}
