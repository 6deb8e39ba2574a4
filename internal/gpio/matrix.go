package gpio

// scanMatrix drives each row in turn and returns the first row/column pair
// whose column reads low. read returns the column values while row is driven.
func scanMatrix(rows int, read func(row int) []int) (int, int, bool) {
	for r := 0; r < rows; r++ {
		for c, v := range read(r) {
			if v == 0 {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// edge turns a level-held key into a single press event.
type edge struct {
	held byte
}

// next returns k if it was not held on the previous scan, 0 otherwise.
func (e *edge) next(k byte) byte {
	if k == e.held {
		return 0
	}
	e.held = k
	return k
}
