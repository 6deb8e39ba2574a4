package datalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileSink appends rows to one CSV file per day, named YYYYMMDD.csv.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates the log directory if needed.
func NewFileSink(dir string, now func() time.Time) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &FileSink{dir: dir, now: now}, nil
}

// Path returns the file that rows written now would go to.
func (s *FileSink) Path() string {
	return filepath.Join(s.dir, s.now().Format("20060102")+".csv")
}

// AppendRow writes row, preceded by header when the file is new or empty.
func (s *FileSink) AppendRow(header, row string) error {
	path := s.Path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	buf := row + "\n"
	if info.Size() == 0 {
		buf = header + "\n" + buf
	}
	if _, err := f.WriteString(buf); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}
