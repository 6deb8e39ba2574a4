package datalog

// FakeSink keeps rows in memory.
type FakeSink struct {
	Header string
	Rows   []string
	Err    error
}

// AppendRow records the row, or returns Err.
func (f *FakeSink) AppendRow(header, row string) error {
	if f.Err != nil {
		return f.Err
	}
	if f.Header == "" {
		f.Header = header
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// Last returns the most recent row, or "".
func (f *FakeSink) Last() string {
	if len(f.Rows) == 0 {
		return ""
	}
	return f.Rows[len(f.Rows)-1]
}
