package gpio

// FakeOutput is a test double that records every level written to it.
type FakeOutput struct {
	// Levels contains every level passed to Set, in order.
	Levels []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

var _ Output = (*FakeOutput)(nil)

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels = append(f.Levels, on)
	return nil
}

// Level returns the last level written, false if none.
func (f *FakeOutput) Level() bool {
	if len(f.Levels) == 0 {
		return false
	}
	return f.Levels[len(f.Levels)-1]
}

// Changes returns the number of writes that differed from the previous one.
// The first write counts as a change.
func (f *FakeOutput) Changes() int {
	n := 0
	for i, l := range f.Levels {
		if i == 0 || l != f.Levels[i-1] {
			n++
		}
	}
	return n
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded levels.
func (f *FakeOutput) Reset() {
	f.Levels = nil
	f.Closed = false
	f.SetError = nil
}
