// Package datalog formats the once-per-second status row and appends it to
// the daily log file.
package datalog

import (
	"fmt"
	"time"

	"github.com/sweeney/tank-controller/internal/control"
)

// Header is the first line of every log file.
const Header = "time,tankid,temp,temp setpoint,pH,pH setpoint,onTime,Kp,Ki,Kd"

// CalibrationMarker replaces the readings while a calibration is running.
const CalibrationMarker = "C"

// Record is a snapshot of the controller taken for one log row.
type Record struct {
	Time        time.Time
	TankID      int
	Temp        float64
	TempTarget  float64
	PH          float64
	PHTarget    float64
	Calibrating bool
	Uptime      time.Duration
	Gains       control.Gains
}

// Row renders the record in the fixed column format.
func (r Record) Row() string {
	temp, ph := CalibrationMarker, CalibrationMarker
	if !r.Calibrating {
		temp = fmt.Sprintf("%4.2f", r.Temp)
		ph = fmt.Sprintf("%5.3f", r.PH)
	}
	t := r.Time
	return fmt.Sprintf("%02d/%02d/%4d %02d:%02d:%02d, %3d, %s, %4.2f, %s, %5.3f, %4d, %8.1f, %8.1f, %8.1f",
		int(t.Month()), t.Day(), t.Year(), t.Hour(), t.Minute(), t.Second(),
		r.TankID, temp, r.TempTarget, ph, r.PHTarget,
		int64(r.Uptime/time.Second), r.Gains.Kp, r.Gains.Ki, r.Gains.Kd)
}

// Sink receives log rows. The header is written once per destination.
type Sink interface {
	AppendRow(header, row string) error
}
