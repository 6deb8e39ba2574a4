package ui

import (
	"errors"
	"fmt"
)

// Transition protocol violations. These are programming defects in a
// state's handler; the Machine panics with an error wrapping one of them.
var (
	ErrNilState          = errors.New("ui: transition to nil state")
	ErrTransitionPending = errors.New("ui: transition already pending")
	ErrSameState         = errors.New("ui: transition to current state")
)

// Machine holds the current state and at most one pending state.
type Machine struct {
	current State
	pending State
}

// NewMachine creates a machine whose current state is initial. The caller
// runs initial.Start once its own setup is complete.
func NewMachine(initial State) *Machine {
	if initial == nil {
		panic(ErrNilState)
	}
	return &Machine{current: initial}
}

// RequestTransition queues s to become current at the next ApplyPending.
func (m *Machine) RequestTransition(s State) {
	switch {
	case s == nil:
		panic(ErrNilState)
	case m.pending != nil:
		panic(fmt.Errorf("%w: %s requested while %s is queued", ErrTransitionPending, s.Name(), m.pending.Name()))
	case s == m.current:
		panic(fmt.Errorf("%w: %s", ErrSameState, s.Name()))
	}
	m.pending = s
}

// ApplyPending makes the pending state current and runs its Start hook.
// It returns the new state, or nil when nothing was pending.
func (m *Machine) ApplyPending() State {
	if m.pending == nil {
		return nil
	}
	m.current, m.pending = m.pending, nil
	m.current.Start()
	return m.current
}

// Current returns the current state.
func (m *Machine) Current() State {
	return m.current
}

// Pending returns the queued state, or nil.
func (m *Machine) Pending() State {
	return m.pending
}

// Close releases both slots.
func (m *Machine) Close() {
	m.current = nil
	m.pending = nil
}
