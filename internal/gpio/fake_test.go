package gpio

import (
	"errors"
	"testing"
)

func TestFakeOutputRecords(t *testing.T) {
	f := NewFakeOutput()

	if f.Level() {
		t.Error("expected false before any write")
	}

	for _, l := range []bool{true, true, false, true} {
		if err := f.Set(l); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(f.Levels) != 4 {
		t.Fatalf("expected 4 writes, got %d", len(f.Levels))
	}
	if !f.Level() {
		t.Error("expected last level true")
	}
	if f.Changes() != 3 {
		t.Errorf("expected 3 changes, got %d", f.Changes())
	}
}

func TestFakeOutputError(t *testing.T) {
	f := NewFakeOutput()
	f.SetError = errors.New("simulated error")

	err := f.Set(true)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if len(f.Levels) != 0 {
		t.Errorf("failed write should not be recorded, got %v", f.Levels)
	}
}

func TestFakeOutputCloseAndReset(t *testing.T) {
	f := NewFakeOutput()
	f.Set(true)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed || len(f.Levels) != 0 {
		t.Error("reset should clear state")
	}
}

func TestScanMatrixFindsFirstPressed(t *testing.T) {
	// Column 2 reads low while row 1 is driven.
	read := func(row int) []int {
		cols := []int{1, 1, 1, 1}
		if row == 1 {
			cols[2] = 0
		}
		return cols
	}
	r, c, ok := scanMatrix(4, read)
	if !ok {
		t.Fatal("expected a pressed key")
	}
	if r != 1 || c != 2 {
		t.Errorf("got row %d col %d, want 1,2", r, c)
	}
}

func TestScanMatrixNothingPressed(t *testing.T) {
	read := func(int) []int { return []int{1, 1, 1, 1} }
	if _, _, ok := scanMatrix(4, read); ok {
		t.Error("expected no key")
	}
}

func TestEdgeReportsPressOnce(t *testing.T) {
	var e edge
	seq := []byte{0, '5', '5', '5', 0, '5', '7'}
	want := []byte{0, '5', 0, 0, 0, '5', '7'}
	for i, k := range seq {
		if got := e.next(k); got != want[i] {
			t.Errorf("step %d: got %q, want %q", i, got, want[i])
		}
	}
}
