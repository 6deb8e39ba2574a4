//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/tank-controller/internal/keypad"
)

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

var _ Output = (*RealOutput)(nil)

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, pin int, activeLow bool) (*RealOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (o *RealOutput) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}

// MatrixKeypad is not available on non-Linux platforms.
type MatrixKeypad struct{}

// NewMatrixKeypad returns an error on non-Linux platforms.
func NewMatrixKeypad(chip string, rowPins, colPins []int) (*MatrixKeypad, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Poll is not implemented on non-Linux platforms.
func (m *MatrixKeypad) Poll() (keypad.Key, error) {
	return keypad.NoKey, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *MatrixKeypad) Close() error {
	return nil
}
