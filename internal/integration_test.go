package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/datalog"
	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/metrics"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/pid"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/status"
	"github.com/sweeney/tank-controller/internal/store"
	"github.com/sweeney/tank-controller/internal/tank"
	"github.com/sweeney/tank-controller/internal/ui"
	"github.com/sweeney/tank-controller/internal/web"
)

const w1Frame = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23250\n"

// system is the daemon assembled from real components, with fakes only at
// the hardware edge.
type system struct {
	clock   time.Time
	dir     string
	log     *zap.SugaredLogger
	store   *store.Bolt
	probe   *bytes.Buffer
	keys    *keypad.FakeKeypad
	display *lcd.Fake
	co2     *gpio.FakeOutput
	heater  *gpio.FakeOutput
	sink    *datalog.FileSink
	relay   *mqtt.FakePublisher
	tracker *status.Tracker
	reg     *prometheus.Registry
	tank    *tank.Tank
}

func newSystem(t *testing.T, start time.Time) *system {
	t.Helper()
	s := &system{
		clock:   start,
		dir:     t.TempDir(),
		log:     zaptest.NewLogger(t).Sugar(),
		probe:   &bytes.Buffer{},
		keys:    keypad.NewFakeKeypad(),
		display: lcd.NewFake(),
		co2:     gpio.NewFakeOutput(),
		heater:  gpio.NewFakeOutput(),
		relay:   mqtt.NewFakePublisher(),
		reg:     prometheus.NewRegistry(),
	}
	now := func() time.Time { return s.clock }

	var err error
	s.store, err = store.OpenBolt(filepath.Join(s.dir, "settings.db"), s.log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.store.Close() })

	w1 := filepath.Join(s.dir, "w1_slave")
	if err := os.WriteFile(w1, []byte(w1Frame), 0o644); err != nil {
		t.Fatal(err)
	}
	temp := sensor.NewTempProbe(w1, 5, time.Second, s.log)
	if err := temp.Sample(); err != nil {
		t.Fatalf("sample temperature: %v", err)
	}

	s.sink, err = datalog.NewFileSink(filepath.Join(s.dir, "log"), now)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	newCtrl := func(loop control.Loop, out *gpio.FakeOutput, dir pid.Direction) *control.Controller {
		w, err := control.NewWindow(10*time.Second, time.Second, out)
		if err != nil {
			t.Fatalf("window: %v", err)
		}
		p := pid.New(s.store.Gains(loop), dir, float64(w.Size().Milliseconds()), now)
		return control.NewController(loop, w, p, s.store.Target(loop))
	}

	s.tracker = status.NewTracker(start, status.Config{Version: "test"})
	m := metrics.New(s.reg)
	m.RegisterRelay(s.relay.Stats)

	s.tank, err = tank.New(tank.Deps{
		Keypad:      s.keys,
		Display:     s.display,
		Store:       s.store,
		PH:          sensor.NewPHProbe(s.probe, 3, s.log),
		Temp:        temp,
		PHControl:   newCtrl(control.LoopPH, s.co2, pid.Reverse),
		TempControl: newCtrl(control.LoopTemp, s.heater, pid.Direct),
		Sink:        s.sink,
		Relay:       s.relay,
		Tracker:     s.tracker,
		Metrics:     m,
		Log:         s.log,
		Now:         now,
	}, tank.Options{Info: ui.DeviceInfo{Version: "test"}})
	if err != nil {
		t.Fatalf("new tank: %v", err)
	}
	return s
}

func (s *system) tickAt(at time.Time) {
	s.clock = at
	s.tank.Tick()
}

func (s *system) typeKeys(keys string) {
	s.keys.Type(keys)
	for s.keys.Pending() > 0 {
		s.tickAt(s.clock.Add(100 * time.Millisecond))
	}
}

func TestIntegrationSetTargetDrivesActuator(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newSystem(t, start)

	s.tank.OnSerialData([]byte("8.300\r8.3"))
	s.tank.OnSerialData([]byte("00\r*OK\r"))
	s.tickAt(start)

	if !s.co2.Level() {
		t.Error("CO2 should be on while pH is above target")
	}
	if s.heater.Level() {
		t.Error("heater should be off while temperature is above target")
	}

	// Set pH target to 8.4 from the keypad.
	s.typeKeys("8A8*4A")
	if got := s.store.Target(control.LoopPH); got != 8.4 {
		t.Fatalf("stored pH target = %v, want 8.4", got)
	}
	if got := s.display.Lines[1]; got != lcd.Pad("New pH=8.400") {
		t.Errorf("display line 1 = %q", got)
	}

	// The next window sees pH below the new target.
	s.tickAt(start.Add(10 * time.Second))
	if s.co2.Level() {
		t.Error("CO2 should be off in the window after the target was raised")
	}
	s.tickAt(start.Add(10*time.Second + 100*time.Millisecond))
	if got := s.tank.CurrentStateName(); got != "MainMenu" {
		t.Errorf("state = %q, want MainMenu", got)
	}

	data, err := os.ReadFile(s.sink.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("log has %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if lines[0] != datalog.Header {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "05/01/2026 10:00:00,   0, 23.25, 20.00, 8.300, 8.100,    0,") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[2], ", 8.300, 8.400,   10, 100000.0,") {
		t.Errorf("second row = %q", lines[2])
	}
	if len(s.relay.Records) != 2 {
		t.Errorf("relayed %d records, want 2", len(s.relay.Records))
	}
}

func TestIntegrationSettingsSurviveRestart(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newSystem(t, start)
	s.tickAt(start)
	s.typeKeys("8" + strings.Repeat("8", 14) + "A42A")
	if got := s.store.TankID(); got != 42 {
		t.Fatalf("tank id = %d, want 42", got)
	}
	path := filepath.Join(s.dir, "settings.db")
	if err := s.store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := store.OpenBolt(path, s.log)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got := reopened.TankID(); got != 42 {
		t.Errorf("tank id after restart = %d, want 42", got)
	}
	if got := reopened.Target(control.LoopPH); got != 8.1 {
		t.Errorf("untouched pH target = %v, want default 8.1", got)
	}
}

func TestIntegrationCalibrationLogsMarker(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newSystem(t, start)
	s.tank.OnSerialData([]byte("8.300\r"))
	s.tickAt(start)

	// pH low buffer is the third item.
	s.typeKeys("888A")
	if !s.tank.InCalibration() {
		t.Fatalf("state %q is not a calibration", s.tank.CurrentStateName())
	}
	s.tickAt(start.Add(12 * time.Second))

	data, err := os.ReadFile(s.sink.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ", C, 20.00, C, 8.100,") {
		t.Errorf("no calibration row in log:\n%s", data)
	}
	if !s.co2.Level() {
		t.Error("actuator must hold its level while calibrating")
	}

	s.typeKeys("4A")
	if got := s.probe.String(); !strings.Contains(got, "Cal,low,4.000\r") {
		t.Errorf("probe received %q", got)
	}
}

func TestIntegrationStatusEndpoints(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newSystem(t, start)
	s.tank.OnSerialData([]byte("8.050\r"))
	s.tickAt(start)

	srv := web.New("", s.tracker, s.reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /index.json = %d", rec.Code)
	}
	var body status.StatusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status.State != "MainMenu" {
		t.Errorf("state = %q", body.Status.State)
	}
	if body.Status.PH.Reading == nil || *body.Status.PH.Reading != 8.05 {
		t.Errorf("pH reading = %v", body.Status.PH.Reading)
	}
	if body.Status.Temp.Target != 20 {
		t.Errorf("temp target = %v", body.Status.Temp.Target)
	}
	if body.Status.MQTT.Sent != 1 {
		t.Errorf("mqtt sent = %d", body.Status.MQTT.Sent)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, want := range []string{"tank_ticks_total 1", `tank_reading{loop="ph"} 8.05`, "tank_relay_sent_total 1"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestIntegrationStartupEvent(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newSystem(t, start)
	s.tickAt(start)

	snap := s.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := s.relay.PublishSystem(event); err != nil {
		t.Fatal(err)
	}
	var body status.StatusJSON
	if err := json.Unmarshal(s.relay.SystemPayloads[0], &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status.Event != "STARTUP" || body.Status.State != "MainMenu" {
		t.Errorf("payload = %+v", body.Status)
	}
	if len(body.Status.Display) != 2 || !strings.HasPrefix(body.Status.Display[0], "pH=") {
		t.Errorf("display = %q", body.Status.Display)
	}
}
