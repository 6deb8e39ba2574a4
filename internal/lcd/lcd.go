// Package lcd renders the two-line character display used by the menu.
package lcd

import "strings"

// Display geometry.
const (
	Cols = 16
	Rows = 2
)

// Display shows fixed-width text lines. Callers only ever write lines.
type Display interface {
	SetLine(row int, text string)
}

// Pad truncates or space-pads s to exactly Cols characters.
func Pad(s string) string {
	r := []rune(s)
	if len(r) >= Cols {
		return string(r[:Cols])
	}
	return s + strings.Repeat(" ", Cols-len(r))
}

func validRow(row int) bool {
	return row >= 0 && row < Rows
}
