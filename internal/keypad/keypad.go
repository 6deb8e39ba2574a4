// Package keypad defines the 4x4 keypad the operator uses to drive the menus.
package keypad

// Key is a single keypad character.
type Key byte

// NoKey is returned by Poll when nothing was pressed.
const NoKey Key = 0

// Keys with a fixed meaning in the menus.
const (
	Accept    Key = 'A'
	Backspace Key = 'B'
	Clear     Key = 'C'
	Cancel    Key = 'D'
	Decimal   Key = '*'
	Sign      Key = '#'
	Up        Key = '2'
	Down      Key = '8'
)

// Layout is the physical key arrangement, rows top to bottom.
var Layout = [4][4]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Keypad is polled once per tick.
type Keypad interface {
	// Poll returns the key pressed since the previous call, or NoKey.
	Poll() (Key, error)
}

// IsDigit reports whether k is 0-9.
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// Valid reports whether k appears on the keypad.
func (k Key) Valid() bool {
	for _, row := range Layout {
		for _, c := range row {
			if c == k {
				return true
			}
		}
	}
	return false
}

func (k Key) String() string {
	if k == NoKey {
		return "none"
	}
	return string(rune(k))
}
