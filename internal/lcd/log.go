package lcd

import "go.uber.org/zap"

// LogDisplay writes line changes to a logger. It stands in for the panel
// when running headless.
type LogDisplay struct {
	log   *zap.SugaredLogger
	lines [Rows]string
}

// NewLogDisplay creates a LogDisplay.
func NewLogDisplay(log *zap.SugaredLogger) *LogDisplay {
	return &LogDisplay{log: log}
}

// SetLine logs the line when it differs from what is already shown.
func (d *LogDisplay) SetLine(row int, text string) {
	if !validRow(row) {
		return
	}
	text = Pad(text)
	if d.lines[row] == text {
		return
	}
	d.lines[row] = text
	d.log.Debugw("lcd: line", "row", row, "text", text)
}
