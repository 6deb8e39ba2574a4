package ui

import (
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/sensor"
)

func nonNegative(v float64) error {
	if v < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func between(lo, hi float64) func(float64) error {
	return func(v float64) error {
		if v < lo || v > hi {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	}
}

// TargetField edits the setpoint of loop. The controller sees the new
// target on its next update.
func TargetField(loop control.Loop) Field {
	f := Field{
		Current: func(h Host) float64 { return h.Controller(loop).Target() },
		Apply: func(h Host, v float64) error {
			h.Controller(loop).SetTarget(v)
			return h.Store().SetTarget(loop, v)
		},
	}
	switch loop {
	case control.LoopPH:
		f.Name, f.Prompt, f.Label = "SetPHTarget", "Set pH target", "pH"
		f.Precision = 3
		f.Validate = between(0, 14)
	default:
		f.Name, f.Prompt, f.Label = "SetTempTarget", "Set temperature", "T"
		f.Precision = 2
		f.Validate = between(0, 50)
	}
	return f
}

// GainField edits one PID term of loop.
func GainField(loop control.Loop, term control.Term) Field {
	label := map[control.Term]string{control.TermP: "KP", control.TermI: "KI", control.TermD: "KD"}[term]
	name, prompt := "Set"+label, "Set "+label
	if loop == control.LoopTemp {
		name, prompt = "SetTemp"+label, "Set temp "+label
	}
	return Field{
		Name:      name,
		Prompt:    prompt,
		Label:     label,
		Precision: 1,
		Validate:  nonNegative,
		Current: func(h Host) float64 {
			return h.Controller(loop).PID().Gains().Get(term)
		},
		Apply: func(h Host, v float64) error {
			p := h.Controller(loop).PID()
			p.SetGains(p.Gains().With(term, v))
			return h.Store().SetGain(loop, term, v)
		},
	}
}

// TankIDField edits the tank identifier written to every log row.
func TankIDField() Field {
	return Field{
		Name:   "SetTankID",
		Prompt: "Set tank ID",
		Label:  "ID",
		Validate: func(v float64) error {
			if v != math.Trunc(v) {
				return errors.New("must be a whole number")
			}
			return between(0, 999)(v)
		},
		Current: func(h Host) float64 { return float64(h.Store().TankID()) },
		Apply: func(h Host, v float64) error {
			return h.Store().SetTankID(int(v))
		},
	}
}

// PHCalibrationField asks for the pH of the buffer solution the probe is in
// and sends it to the probe as the given calibration point.
func PHCalibrationField(point sensor.CalPoint) Field {
	names := map[sensor.CalPoint]string{
		sensor.CalLow:  "PHCalibrationLow",
		sensor.CalMid:  "PHCalibrationMid",
		sensor.CalHigh: "PHCalibrationHigh",
	}
	return Field{
		Name:        names[point],
		Prompt:      fmt.Sprintf("pH %s buffer", point),
		Label:       "buffer",
		Precision:   3,
		Calibration: true,
		Validate:    between(0, 14),
		Current:     func(h Host) float64 { return h.PH().Value() },
		Apply: func(h Host, v float64) error {
			if err := h.PH().Calibrate(point, v); err != nil {
				return fmt.Errorf("%w: %v", errNotApplied, err)
			}
			return nil
		},
	}
}

// TempCalibrationField asks for the true tank temperature and stores the
// difference from the probe's uncorrected reading.
func TempCalibrationField() Field {
	return Field{
		Name:        "TempCalibration",
		Prompt:      "Real temperature",
		Label:       "T",
		Precision:   2,
		Calibration: true,
		Validate:    between(0, 50),
		Current:     func(h Host) float64 { return h.Temp().Value() },
		Apply: func(h Host, v float64) error {
			raw := h.Temp().Uncorrected()
			if math.IsNaN(raw) {
				return fmt.Errorf("%w: no temperature reading", errNotApplied)
			}
			correction := v - raw
			h.Temp().SetCorrection(correction)
			return h.Store().SetTempCorrection(correction)
		},
	}
}
