package ui

import (
	"fmt"
	"strconv"
	"strings"
)

// maxEntry keeps a typed number plus its prefix inside one display line.
const maxEntry = 9

// entryBuffer is the scratch text of a number being typed. Editing happens at
// the end of the buffer.
type entryBuffer struct {
	precision int
	signed    bool
	negative  bool
	text      []byte // digits and at most one '.'
}

func (b *entryBuffer) hasPoint() bool {
	return strings.IndexByte(string(b.text), '.') >= 0
}

func (b *entryBuffer) appendDigit(d byte) bool {
	if len(b.text) >= maxEntry {
		return false
	}
	if i := strings.IndexByte(string(b.text), '.'); i >= 0 && len(b.text)-i-1 >= b.precision {
		return false
	}
	b.text = append(b.text, d)
	return true
}

func (b *entryBuffer) appendPoint() bool {
	if b.precision == 0 || b.hasPoint() || len(b.text) >= maxEntry {
		return false
	}
	if len(b.text) == 0 {
		b.text = append(b.text, '0')
	}
	b.text = append(b.text, '.')
	return true
}

func (b *entryBuffer) toggleSign() bool {
	if !b.signed {
		return false
	}
	b.negative = !b.negative
	return true
}

func (b *entryBuffer) backspace() bool {
	if len(b.text) == 0 {
		if b.negative {
			b.negative = false
			return true
		}
		return false
	}
	b.text = b.text[:len(b.text)-1]
	return true
}

func (b *entryBuffer) clear() {
	b.text = b.text[:0]
	b.negative = false
}

func (b *entryBuffer) String() string {
	if b.negative {
		return "-" + string(b.text)
	}
	return string(b.text)
}

// value parses the buffer. An empty buffer or a dangling decimal point is
// rejected.
func (b *entryBuffer) value() (float64, error) {
	if len(b.text) == 0 {
		return 0, fmt.Errorf("%w: nothing typed", ErrInvalidEntry)
	}
	if b.text[len(b.text)-1] == '.' {
		return 0, fmt.Errorf("%w: dangling decimal point", ErrInvalidEntry)
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return v, nil
}
