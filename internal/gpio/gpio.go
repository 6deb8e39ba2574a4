// Package gpio provides digital outputs and keypad scanning with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single actuator or indicator line.
type Output interface {
	// Set energizes (true) or de-energizes (false) the line.
	// Active-low wiring is handled by the implementation.
	Set(on bool) error

	// Close releases GPIO resources, leaving the line de-energized.
	Close() error
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Pin definitions (BCM numbering)
const (
	DefaultPinPH   = 17 // CO2 solenoid relay
	DefaultPinTemp = 27 // heater/chiller relay
	DefaultPinLED  = 22 // liveness LED
)

// Default keypad wiring (BCM numbering), rows top to bottom, columns left to right.
var (
	DefaultKeypadRows = []int{5, 6, 13, 19}
	DefaultKeypadCols = []int{12, 16, 20, 21}
)
