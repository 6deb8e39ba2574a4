package control

// FakePID returns a fixed output and records its inputs.
type FakePID struct {
	Output float64
	G      Gains

	Setpoints []float64
	Measured  []float64
}

// Compute records the call and returns Output.
func (f *FakePID) Compute(setpoint, measured float64) float64 {
	f.Setpoints = append(f.Setpoints, setpoint)
	f.Measured = append(f.Measured, measured)
	return f.Output
}

// Gains returns G.
func (f *FakePID) Gains() Gains {
	return f.G
}

// SetGains replaces G.
func (f *FakePID) SetGains(g Gains) {
	f.G = g
}
