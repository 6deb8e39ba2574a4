// Package sensor provides the smoothed pH and temperature readings consumed
// by the control loops. A reading is NaN until the first sample arrives.
package sensor

import "math"

// Reader returns the current smoothed value.
type Reader interface {
	Value() float64
}

// PH is a pH probe fed from its serial link.
type PH interface {
	Reader
	Feed(data []byte)
	Calibrate(point CalPoint, value float64) error
}

// Temperature is a temperature probe with a user correction.
type Temperature interface {
	Reader
	Uncorrected() float64
	Correction() float64
	SetCorrection(v float64)
}

// CalPoint names a pH calibration point.
type CalPoint string

const (
	CalLow  CalPoint = "low"
	CalMid  CalPoint = "mid"
	CalHigh CalPoint = "high"
)

// RunningAverage is the mean of the last Size samples.
type RunningAverage struct {
	samples []float64
	next    int
	count   int
}

// NewRunningAverage creates an average over size samples (minimum 1).
func NewRunningAverage(size int) *RunningAverage {
	if size < 1 {
		size = 1
	}
	return &RunningAverage{samples: make([]float64, size)}
}

// Add records a sample, replacing the oldest once full.
func (a *RunningAverage) Add(v float64) {
	a.samples[a.next] = v
	a.next = (a.next + 1) % len(a.samples)
	if a.count < len(a.samples) {
		a.count++
	}
}

// Value returns the mean, or NaN when empty.
func (a *RunningAverage) Value() float64 {
	if a.count == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < a.count; i++ {
		sum += a.samples[i]
	}
	return sum / float64(a.count)
}

// Len returns the number of samples held.
func (a *RunningAverage) Len() int {
	return a.count
}

// Reset drops all samples.
func (a *RunningAverage) Reset() {
	a.next = 0
	a.count = 0
}
