package lcd

// Fake records the padded lines written to it.
type Fake struct {
	Lines  [Rows]string
	Writes int
}

// NewFake creates a Fake with blank lines.
func NewFake() *Fake {
	f := &Fake{}
	for i := range f.Lines {
		f.Lines[i] = Pad("")
	}
	return f
}

// SetLine stores the padded text. Rows out of range are ignored.
func (f *Fake) SetLine(row int, text string) {
	if !validRow(row) {
		return
	}
	f.Lines[row] = Pad(text)
	f.Writes++
}
