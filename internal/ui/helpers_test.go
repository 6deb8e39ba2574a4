package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/store"
)

// fakeHost wires the ui package to fakes the way the tank orchestrator
// wires it to hardware.
type fakeHost struct {
	m       *Machine
	now     time.Time
	display *lcd.Fake
	store   *store.Memory
	ctrl    map[control.Loop]*control.Controller
	outs    map[control.Loop]*gpio.FakeOutput
	ph      *sensor.FakePH
	temp    *sensor.FakeTemperature
	info    DeviceInfo
	dwell   time.Duration
	log     *zap.SugaredLogger
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{
		now:     time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC),
		display: lcd.NewFake(),
		store:   store.NewMemory(),
		ctrl:    map[control.Loop]*control.Controller{},
		outs:    map[control.Loop]*gpio.FakeOutput{},
		ph:      sensor.NewFakePH(8.2),
		temp:    sensor.NewFakeTemperature(20.25),
		info:    DeviceInfo{Version: "v1.2.3", IP: "192.168.1.50", MAC: "b8:27:eb:01:02:03"},
		dwell:   3 * time.Second,
		log:     zaptest.NewLogger(t).Sugar(),
	}
	for _, loop := range control.Loops {
		out := gpio.NewFakeOutput()
		w, err := control.NewWindow(10*time.Second, 100*time.Millisecond, out)
		require.NoError(t, err)
		pid := &control.FakePID{G: h.store.Gains(loop)}
		h.outs[loop] = out
		h.ctrl[loop] = control.NewController(loop, w, pid, h.store.Target(loop))
	}
	h.m = NewMachine(NewMainMenu(h))
	h.m.Current().Start()
	return h
}

func (h *fakeHost) RequestTransition(s State)                     { h.m.RequestTransition(s) }
func (h *fakeHost) Now() time.Time                                { return h.now }
func (h *fakeHost) Display() lcd.Display                          { return h.display }
func (h *fakeHost) Store() store.Store                            { return h.store }
func (h *fakeHost) Controller(l control.Loop) *control.Controller { return h.ctrl[l] }
func (h *fakeHost) PH() sensor.PH                                 { return h.ph }
func (h *fakeHost) Temp() sensor.Temperature                      { return h.temp }
func (h *fakeHost) Info() DeviceInfo                              { return h.info }
func (h *fakeHost) Dwell() time.Duration                          { return h.dwell }
func (h *fakeHost) Log() *zap.SugaredLogger                       { return h.log }

// press delivers each key and applies any transition it caused, as one
// tick of the orchestrator would.
func (h *fakeHost) press(keys string) {
	for i := 0; i < len(keys); i++ {
		h.m.Current().HandleKey(keypad.Key(keys[i]))
		h.m.ApplyPending()
	}
}

// tick advances the clock and runs the current state's Loop.
func (h *fakeHost) tick(d time.Duration) {
	h.now = h.now.Add(d)
	h.m.Current().Loop()
	h.m.ApplyPending()
}

// open browses the main menu to label and opens it.
func (h *fakeHost) open(t *testing.T, label string) State {
	t.Helper()
	idx := -1
	for i, item := range MenuItems {
		if item.Label == label {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, "no menu item %q", label)
	require.Equal(t, "MainMenu", h.m.Current().Name())
	h.press("8")
	for i := 0; i < idx; i++ {
		h.press("8")
	}
	h.press("A")
	return h.m.Current()
}

// stubState counts hook calls.
type stubState struct {
	name   string
	starts int
	loops  int
	keys   []keypad.Key
}

func (s *stubState) Name() string           { return s.name }
func (s *stubState) Prompt() string         { return s.name }
func (s *stubState) Start()                 { s.starts++ }
func (s *stubState) Loop()                  { s.loops++ }
func (s *stubState) HandleKey(k keypad.Key) { s.keys = append(s.keys, k) }
func (s *stubState) InCalibration() bool    { return false }
