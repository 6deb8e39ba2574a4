package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCRC is returned for a 1-wire frame whose checksum did not match.
var ErrCRC = errors.New("w1: crc mismatch")

// ParseW1Slave extracts degrees Celsius from the contents of a DS18B20
// w1_slave file.
func ParseW1Slave(data string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("w1: short read (%d lines)", len(lines))
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRC
	}
	i := strings.Index(lines[1], "t=")
	if i < 0 {
		return 0, errors.New("w1: missing temperature field")
	}
	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
	if err != nil {
		return 0, fmt.Errorf("w1: parse temperature: %w", err)
	}
	return float64(milli) / 1000, nil
}

// TempProbe samples a 1-wire thermometer in the background.
type TempProbe struct {
	path     string
	interval time.Duration
	log      *zap.SugaredLogger
	read     func(path string) ([]byte, error)

	mu         sync.Mutex
	avg        *RunningAverage
	correction float64
}

// NewTempProbe creates a probe reading the w1_slave file at path.
func NewTempProbe(path string, samples int, interval time.Duration, log *zap.SugaredLogger) *TempProbe {
	if interval <= 0 {
		interval = time.Second
	}
	return &TempProbe{
		path:     path,
		interval: interval,
		log:      log,
		read:     os.ReadFile,
		avg:      NewRunningAverage(samples),
	}
}

// Sample takes one reading.
func (p *TempProbe) Sample() error {
	data, err := p.read(p.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.path, err)
	}
	v, err := ParseW1Slave(string(data))
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.avg.Add(v)
	p.mu.Unlock()
	return nil
}

// Run samples every interval until ctx is done. Failed reads are logged and
// leave the average untouched.
func (p *TempProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Sample(); err != nil {
			p.log.Warnw("temp: sample failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Uncorrected returns the averaged probe reading.
func (p *TempProbe) Uncorrected() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avg.Value()
}

// Value returns the corrected reading, NaN before the first sample.
func (p *TempProbe) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.avg.Value()
	if math.IsNaN(v) {
		return v
	}
	return v + p.correction
}

// Correction returns the offset added to readings.
func (p *TempProbe) Correction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.correction
}

// SetCorrection sets the offset added to readings.
func (p *TempProbe) SetCorrection(v float64) {
	p.mu.Lock()
	p.correction = v
	p.mu.Unlock()
}
