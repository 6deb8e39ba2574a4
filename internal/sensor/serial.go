package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// DefaultPHBaud is the factory UART rate of the EZO circuit.
const DefaultPHBaud = 9600

// OpenPHPort opens the probe's serial port and switches it to continuous
// reading mode.
func OpenPHPort(name string, baud int) (serial.Port, error) {
	if baud == 0 {
		baud = DefaultPHBaud
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if _, err := port.Write([]byte("C,1\r")); err != nil {
		port.Close()
		return nil, fmt.Errorf("start continuous mode: %w", err)
	}
	return port, nil
}

// Pump copies chunks read from r onto out until ctx is cancelled or r fails.
// Each chunk is a fresh slice owned by the receiver. A zero-length read is a
// timeout and is skipped.
func Pump(ctx context.Context, r io.Reader, out chan<- []byte) error {
	buf := make([]byte, 128)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read serial: %w", err)
		}
	}
}
