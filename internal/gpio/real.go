//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives a line on actual hardware using Linux GPIO character device.
type RealOutput struct {
	line *gpiocdev.Line
}

var _ Output = (*RealOutput)(nil)

// NewRealOutput requests pin on chip as an output, initially de-energized.
// activeLow inverts the physical level for relay boards that switch on low.
func NewRealOutput(chip string, pin int, activeLow bool) (*RealOutput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the line to the logical level.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", o.line.Offset(), err)
	}
	return nil
}

// Close de-energizes the line and releases it.
// The line is reconfigured as an input with pull-down (matching Pi boot
// defaults) so a relay is not left latched across a restart.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("clear pin: %w", err))
	}
	if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin: %w", err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// MatrixKeypad scans a 4x4 membrane keypad. Rows are outputs held high and
// pulled low one at a time; columns are inputs with pull-up.
type MatrixKeypad struct {
	rows *gpiocdev.Lines
	cols *gpiocdev.Lines
	n    int
	edge edge
}

// NewMatrixKeypad requests the row and column lines on chip.
func NewMatrixKeypad(chip string, rowPins, colPins []int) (*MatrixKeypad, error) {
	if len(rowPins) != len(keypad.Layout) || len(colPins) != len(keypad.Layout[0]) {
		return nil, fmt.Errorf("keypad needs %d rows and %d columns", len(keypad.Layout), len(keypad.Layout[0]))
	}
	rows, err := gpiocdev.RequestLines(chip, rowPins, gpiocdev.AsOutput(1, 1, 1, 1))
	if err != nil {
		return nil, fmt.Errorf("request keypad rows: %w", err)
	}
	cols, err := gpiocdev.RequestLines(chip, colPins, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("request keypad columns: %w", err)
	}
	return &MatrixKeypad{rows: rows, cols: cols, n: len(rowPins)}, nil
}

// Poll scans the matrix once and reports a newly pressed key.
func (m *MatrixKeypad) Poll() (keypad.Key, error) {
	var scanErr error
	drive := make([]int, m.n)
	vals := make([]int, len(keypad.Layout[0]))
	read := func(row int) []int {
		for i := range drive {
			drive[i] = 1
		}
		drive[row] = 0
		if err := m.rows.SetValues(drive); err != nil {
			scanErr = err
			return nil
		}
		if err := m.cols.Values(vals); err != nil {
			scanErr = err
			return nil
		}
		return vals
	}
	r, c, ok := scanMatrix(m.n, read)
	if scanErr != nil {
		return keypad.NoKey, fmt.Errorf("scan keypad: %w", scanErr)
	}
	var k byte
	if ok {
		k = byte(keypad.Layout[r][c])
	}
	return keypad.Key(m.edge.next(k)), nil
}

// Close releases the keypad lines.
func (m *MatrixKeypad) Close() error {
	var errs []error
	if err := m.rows.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close rows: %w", err))
	}
	if err := m.cols.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close columns: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
