package sensor

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

const maxLine = 64

// PHProbe parses the carriage-return terminated readings of an Atlas
// Scientific EZO pH circuit.
type PHProbe struct {
	mu      sync.Mutex
	w       io.Writer
	log     *zap.SugaredLogger
	avg     *RunningAverage
	pending []byte
}

// NewPHProbe creates a probe that sends commands to w and averages the last
// samples readings.
func NewPHProbe(w io.Writer, samples int, log *zap.SugaredLogger) *PHProbe {
	return &PHProbe{w: w, log: log, avg: NewRunningAverage(samples)}
}

// Feed consumes bytes received from the probe. Partial lines are kept until
// their terminator arrives. Responses such as *OK and *ER are skipped.
func (p *PHProbe) Feed(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, data...)
	for {
		i := bytes.IndexByte(p.pending, '\r')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(p.pending[:i])
		p.pending = p.pending[i+1:]
		p.parseLine(line)
	}
	if len(p.pending) > maxLine {
		p.log.Warnw("ph: dropping unterminated input", "bytes", len(p.pending))
		p.pending = p.pending[:0]
	}
}

func (p *PHProbe) parseLine(line []byte) {
	if len(line) == 0 || line[0] == '*' {
		return
	}
	v, err := strconv.ParseFloat(string(line), 64)
	if err != nil || v < 0 || v > 14 {
		p.log.Debugw("ph: ignoring line", "line", string(line))
		return
	}
	p.avg.Add(v)
}

// Value returns the averaged pH, or NaN before the first reading.
func (p *PHProbe) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avg.Value()
}

// Calibrate tells the probe the solution it is sitting in has the given pH.
// Averaged readings are discarded since they predate the new calibration.
func (p *PHProbe) Calibrate(point CalPoint, value float64) error {
	switch point {
	case CalLow, CalMid, CalHigh:
	default:
		return fmt.Errorf("unknown calibration point %q", point)
	}
	cmd := fmt.Sprintf("Cal,%s,%.3f\r", point, value)
	if _, err := io.WriteString(p.w, cmd); err != nil {
		return fmt.Errorf("send ph calibration: %w", err)
	}
	p.mu.Lock()
	p.avg.Reset()
	p.mu.Unlock()
	p.log.Infow("ph: calibrated", "point", string(point), "value", value)
	return nil
}
