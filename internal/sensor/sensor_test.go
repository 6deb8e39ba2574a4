package sensor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunningAverage(t *testing.T) {
	a := NewRunningAverage(3)
	assert.True(t, math.IsNaN(a.Value()))

	a.Add(1)
	a.Add(2)
	assert.InDelta(t, 1.5, a.Value(), 1e-9)

	a.Add(3)
	a.Add(10) // evicts 1
	assert.InDelta(t, 5.0, a.Value(), 1e-9)
	assert.Equal(t, 3, a.Len())

	a.Reset()
	assert.True(t, math.IsNaN(a.Value()))
}

func TestRunningAverageMinimumSize(t *testing.T) {
	a := NewRunningAverage(0)
	a.Add(4)
	a.Add(6)
	assert.Equal(t, 6.0, a.Value())
}

func TestPHProbeFeedsLines(t *testing.T) {
	p := NewPHProbe(io.Discard, 2, zap.NewNop().Sugar())
	assert.True(t, math.IsNaN(p.Value()))

	p.Feed([]byte("*OK\r8.1"))
	assert.True(t, math.IsNaN(p.Value()), "partial line must not be parsed")

	p.Feed([]byte("00\r8.200\r"))
	assert.InDelta(t, 8.15, p.Value(), 1e-9)

	p.Feed([]byte("*ER\rgarbage\r99\r"))
	assert.InDelta(t, 8.15, p.Value(), 1e-9)
}

func TestPHProbeDropsRunawayInput(t *testing.T) {
	p := NewPHProbe(io.Discard, 1, zap.NewNop().Sugar())
	p.Feed(bytes.Repeat([]byte("7"), maxLine+1))
	p.Feed([]byte("7.5\r"))
	assert.Equal(t, 7.5, p.Value())
}

func TestPHProbeCalibrate(t *testing.T) {
	var sent bytes.Buffer
	p := NewPHProbe(&sent, 4, zap.NewNop().Sugar())
	p.Feed([]byte("8.0\r"))

	require.NoError(t, p.Calibrate(CalMid, 7))
	assert.Equal(t, "Cal,mid,7.000\r", sent.String())
	assert.True(t, math.IsNaN(p.Value()), "readings reset after calibration")

	assert.Error(t, p.Calibrate(CalPoint("clear"), 0))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port closed") }

func TestPHProbeCalibrateWriteError(t *testing.T) {
	p := NewPHProbe(failingWriter{}, 4, zap.NewNop().Sugar())
	err := p.Calibrate(CalHigh, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port closed")
}

func TestPump(t *testing.T) {
	out := make(chan []byte, 4)
	err := Pump(context.Background(), strings.NewReader("7.9\r"), out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("7.9\r"), <-out)
}

func TestPumpStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan []byte)
	assert.NoError(t, Pump(ctx, strings.NewReader("data"), out))
}

const w1Good = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n"

func TestParseW1Slave(t *testing.T) {
	v, err := ParseW1Slave(w1Good)
	require.NoError(t, err)
	assert.InDelta(t, 23.125, v, 1e-9)

	_, err = ParseW1Slave("72 01 : crc=57 NO\n72 01 t=23125\n")
	assert.ErrorIs(t, err, ErrCRC)

	_, err = ParseW1Slave("only one line")
	assert.Error(t, err)

	_, err = ParseW1Slave("x YES\nno temperature here\n")
	assert.Error(t, err)

	v, err = ParseW1Slave("x YES\nx t=-1500\n")
	require.NoError(t, err)
	assert.InDelta(t, -1.5, v, 1e-9)
}

func TestTempProbeCorrection(t *testing.T) {
	p := NewTempProbe("/sys/bus/w1/devices/28-0000/w1_slave", 4, time.Second, zap.NewNop().Sugar())
	p.read = func(string) ([]byte, error) { return []byte(w1Good), nil }

	assert.True(t, math.IsNaN(p.Value()))
	require.NoError(t, p.Sample())

	p.SetCorrection(-0.125)
	assert.InDelta(t, 23.0, p.Value(), 1e-9)
	assert.InDelta(t, 23.125, p.Uncorrected(), 1e-9)
	assert.Equal(t, -0.125, p.Correction())
}

func TestTempProbeReadError(t *testing.T) {
	p := NewTempProbe("missing", 4, time.Second, zap.NewNop().Sugar())
	p.read = func(string) ([]byte, error) { return nil, errors.New("no such device") }
	assert.Error(t, p.Sample())
	assert.True(t, math.IsNaN(p.Value()))
}

func TestTempProbeRunStops(t *testing.T) {
	p := NewTempProbe("x", 4, time.Millisecond, zap.NewNop().Sugar())
	p.read = func(string) ([]byte, error) { return []byte(w1Good), nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, math.IsNaN(p.Uncorrected()), "Run samples before waiting")
}

func TestFakes(t *testing.T) {
	ph := NewFakePH(8.0)
	ph.Feed([]byte("x"))
	require.NoError(t, ph.Calibrate(CalLow, 4))
	assert.Equal(t, []Calibration{{CalLow, 4}}, ph.Calibrations)
	assert.Equal(t, []byte("x"), ph.Fed)

	temp := NewFakeTemperature(20)
	temp.SetCorrection(0.5)
	assert.Equal(t, 20.5, temp.Value())
	assert.Equal(t, 20.0, temp.Uncorrected())
}
