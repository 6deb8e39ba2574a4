package sensor

import "math"

// Calibration is one call recorded by FakePH.
type Calibration struct {
	Point CalPoint
	Value float64
}

// FakePH returns a fixed value and records what it is sent.
type FakePH struct {
	V            float64
	Fed          []byte
	Calibrations []Calibration
	CalError     error
}

// NewFakePH creates a FakePH reading v.
func NewFakePH(v float64) *FakePH {
	return &FakePH{V: v}
}

func (f *FakePH) Value() float64 { return f.V }

// Feed records data.
func (f *FakePH) Feed(data []byte) {
	f.Fed = append(f.Fed, data...)
}

// Calibrate records the call unless CalError is set.
func (f *FakePH) Calibrate(point CalPoint, value float64) error {
	if f.CalError != nil {
		return f.CalError
	}
	f.Calibrations = append(f.Calibrations, Calibration{point, value})
	return nil
}

// FakeTemperature returns Raw plus Corr.
type FakeTemperature struct {
	Raw  float64
	Corr float64
}

// NewFakeTemperature creates a FakeTemperature reading raw.
func NewFakeTemperature(raw float64) *FakeTemperature {
	return &FakeTemperature{Raw: raw}
}

func (f *FakeTemperature) Value() float64 {
	if math.IsNaN(f.Raw) {
		return f.Raw
	}
	return f.Raw + f.Corr
}

func (f *FakeTemperature) Uncorrected() float64 { return f.Raw }
func (f *FakeTemperature) Correction() float64 { return f.Corr }
func (f *FakeTemperature) SetCorrection(v float64) { f.Corr = v }
