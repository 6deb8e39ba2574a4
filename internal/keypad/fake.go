package keypad

// FakeKeypad is a test double that returns scripted key presses.
type FakeKeypad struct {
	// Keys contains the scripted presses. Each Poll consumes one entry;
	// NoKey entries model ticks without a press.
	Keys []Key

	// PollError, if set, will be returned by Poll.
	PollError error

	index int
}

// NewFakeKeypad creates a FakeKeypad with the given presses.
func NewFakeKeypad(keys ...Key) *FakeKeypad {
	return &FakeKeypad{Keys: keys}
}

// Poll returns the next scripted key, then NoKey once the script is exhausted.
func (f *FakeKeypad) Poll() (Key, error) {
	if f.PollError != nil {
		return NoKey, f.PollError
	}
	if f.index >= len(f.Keys) {
		return NoKey, nil
	}
	k := f.Keys[f.index]
	f.index++
	return k, nil
}

// Press appends presses to the script.
func (f *FakeKeypad) Press(keys ...Key) {
	f.Keys = append(f.Keys, keys...)
}

// Type appends one press per character of s.
func (f *FakeKeypad) Type(s string) {
	for i := 0; i < len(s); i++ {
		f.Keys = append(f.Keys, Key(s[i]))
	}
}

// Pending returns the number of scripted presses not yet polled.
func (f *FakeKeypad) Pending() int {
	return len(f.Keys) - f.index
}
