package store

// Memory is a Store that forgets everything on exit. Setting FailWrites
// makes every write fail with that error.
type Memory struct {
	settings
	FailWrites error
}

// NewMemory creates a Memory store holding the defaults.
func NewMemory() *Memory {
	m := &Memory{}
	m.values = Defaults()
	m.put = func(string, float64) error { return m.FailWrites }
	return m
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.closed = true
	return nil
}
