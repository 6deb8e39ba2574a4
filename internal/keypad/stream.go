package keypad

import (
	"bufio"
	"io"
	"unicode"
)

// Stream is a keypad fed from a byte stream such as a terminal. Bytes are read
// on a background goroutine so Poll never blocks.
type Stream struct {
	keys chan Key
	errs chan error
}

// NewStream starts reading r. Characters that are not on the keypad are
// dropped; lower-case a-d are accepted.
func NewStream(r io.Reader) *Stream {
	s := &Stream{
		keys: make(chan Key, 32),
		errs: make(chan error, 1),
	}
	go s.read(bufio.NewReader(r))
	return s
}

func (s *Stream) read(r *bufio.Reader) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err != io.EOF {
				s.errs <- err
			}
			return
		}
		k := Key(unicode.ToUpper(rune(b)))
		if !k.Valid() {
			continue
		}
		select {
		case s.keys <- k:
		default:
			// operator is typing faster than the tick; drop
		}
	}
}

// Poll returns the next buffered key or NoKey.
func (s *Stream) Poll() (Key, error) {
	select {
	case err := <-s.errs:
		return NoKey, err
	default:
	}
	select {
	case k := <-s.keys:
		return k, nil
	default:
		return NoKey, nil
	}
}
