// Package tank runs the controller's cooperative tick. A Tank owns the menu
// state machine and both time-proportional controllers, and ties them to the
// keypad, display, sensors, settings store, data log and network relay.
package tank

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/datalog"
	"github.com/sweeney/tank-controller/internal/keypad"
	"github.com/sweeney/tank-controller/internal/lcd"
	"github.com/sweeney/tank-controller/internal/metrics"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/sensor"
	"github.com/sweeney/tank-controller/internal/status"
	"github.com/sweeney/tank-controller/internal/store"
	"github.com/sweeney/tank-controller/internal/ui"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("tank: missing dependency")

// Deps are the collaborators a Tank drives. LED, Relay, Tracker and Metrics
// are optional.
type Deps struct {
	Keypad      keypad.Keypad
	Display     lcd.Display
	LED         control.Output
	Store       store.Store
	PH          sensor.PH
	Temp        sensor.Temperature
	PHControl   *control.Controller
	TempControl *control.Controller
	Sink        datalog.Sink
	Relay       mqtt.Publisher
	Tracker     *status.Tracker
	Metrics     *metrics.Metrics
	Log         *zap.SugaredLogger
	Now         func() time.Time
}

// Options tune the tick. Zero values take the defaults.
type Options struct {
	IdleTimeout time.Duration
	Dwell       time.Duration
	LogInterval time.Duration
	Info        ui.DeviceInfo
}

// Defaults.
const (
	DefaultIdleTimeout = 60 * time.Second
	DefaultDwell       = time.Second
	DefaultLogInterval = time.Second
)

// Tank is the orchestrator. All methods must be called from the goroutine
// that calls Tick.
type Tank struct {
	keypad  keypad.Keypad
	display *mirror
	led     control.Output
	store   store.Store
	ph      sensor.PH
	temp    sensor.Temperature
	ctrl    map[control.Loop]*control.Controller
	sink    datalog.Sink
	relay   mqtt.Publisher
	tracker *status.Tracker
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	now     func() time.Time
	opts    Options

	machine  *ui.Machine
	start    time.Time
	lastKey  time.Time // zero once the idle timeout has fired
	nextLog  time.Time
	ledOn    bool
	ledKnown bool
	closed   bool
}

// New builds a Tank showing the main menu.
func New(d Deps, opts Options) (*Tank, error) {
	for _, req := range []struct {
		name    string
		missing bool
	}{
		{"keypad", d.Keypad == nil},
		{"display", d.Display == nil},
		{"store", d.Store == nil},
		{"ph sensor", d.PH == nil},
		{"temp sensor", d.Temp == nil},
		{"ph control", d.PHControl == nil},
		{"temp control", d.TempControl == nil},
		{"log sink", d.Sink == nil},
	} {
		if req.missing {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, req.name)
		}
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.LogInterval <= 0 {
		opts.LogInterval = DefaultLogInterval
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	t := &Tank{
		keypad:  d.Keypad,
		display: &mirror{Display: d.Display},
		led:     d.LED,
		store:   d.Store,
		ph:      d.PH,
		temp:    d.Temp,
		ctrl: map[control.Loop]*control.Controller{
			control.LoopPH:   d.PHControl,
			control.LoopTemp: d.TempControl,
		},
		sink:    d.Sink,
		relay:   d.Relay,
		tracker: d.Tracker,
		metrics: d.Metrics,
		log:     d.Log,
		now:     d.Now,
		opts:    opts,
		start:   d.Now(),
	}
	t.machine = ui.NewMachine(ui.NewMainMenu(t))
	t.machine.Current().Start()
	t.log.Infow("tank: started", "state", t.CurrentStateName(), "idle_timeout", opts.IdleTimeout)
	return t, nil
}

// Tick advances the controller one step. The order is fixed: liveness LED,
// keypad, pending transition, state hook, actuation, log row, relay.
func (t *Tank) Tick() {
	if t.closed {
		return
	}
	now := t.now()
	t.blink(now)

	key, err := t.keypad.Poll()
	if err != nil {
		t.log.Warnw("tank: keypad poll failed", "error", err)
	}
	if key != keypad.NoKey {
		t.HandleKey(key)
	} else {
		t.checkIdle(now)
	}

	t.applyPending()
	t.machine.Current().Loop()

	calibrating := t.InCalibration()
	if !calibrating {
		t.updateControllers(now)
	}
	t.writeLog(now, calibrating)
	if t.relay != nil {
		t.relay.Service()
	}
	t.report(calibrating)
}

// HandleKey dispatches one key press to the current state. Any transition
// it requests is applied by the next Tick.
func (t *Tank) HandleKey(k keypad.Key) {
	if t.closed {
		return
	}
	t.lastKey = t.now()
	t.log.Debugw("tank: key", "key", k.String(), "state", t.CurrentStateName())
	if t.metrics != nil {
		t.metrics.Key()
	}
	t.machine.Current().HandleKey(k)
}

// OnSerialData hands bytes from the pH probe's serial link to the sensor.
func (t *Tank) OnSerialData(data []byte) {
	t.ph.Feed(data)
}

// CurrentStateName returns the name of the current menu state.
func (t *Tank) CurrentStateName() string {
	if t.machine.Current() == nil {
		return ""
	}
	return t.machine.Current().Name()
}

// InCalibration reports whether the current state suspends actuation.
func (t *Tank) InCalibration() bool {
	s := t.machine.Current()
	return s != nil && s.InCalibration()
}

// Close releases the current and pending states. Later calls to Tick are
// ignored.
func (t *Tank) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.machine.Close()
	t.log.Infow("tank: stopped", "uptime", t.now().Sub(t.start))
}

// DisplayLines returns the last text written to each display line.
func (t *Tank) DisplayLines() [lcd.Rows]string {
	return t.display.lines
}

func (t *Tank) checkIdle(now time.Time) {
	if t.lastKey.IsZero() || now.Sub(t.lastKey) < t.opts.IdleTimeout {
		return
	}
	if t.InCalibration() || t.machine.Pending() != nil {
		return
	}
	t.lastKey = time.Time{}
	t.log.Infow("tank: idle, returning to menu", "state", t.CurrentStateName())
	t.machine.RequestTransition(ui.NewMainMenu(t))
}

func (t *Tank) applyPending() {
	from := t.CurrentStateName()
	s := t.machine.ApplyPending()
	if s == nil {
		return
	}
	t.log.Infow("tank: transition", "from", from, "to", s.Name())
	if t.metrics != nil {
		t.metrics.Transition(s.Name())
	}
}

// blink drives the liveness LED: on for even seconds of uptime.
func (t *Tank) blink(now time.Time) {
	if t.led == nil {
		return
	}
	on := int64(now.Sub(t.start)/time.Second)%2 == 0
	if t.ledKnown && on == t.ledOn {
		return
	}
	if err := t.led.Set(on); err != nil {
		t.log.Warnw("tank: led write failed", "error", err)
		return
	}
	t.ledOn, t.ledKnown = on, true
}

func (t *Tank) reading(loop control.Loop) float64 {
	if loop == control.LoopPH {
		return t.ph.Value()
	}
	return t.temp.Value()
}

func (t *Tank) updateControllers(now time.Time) {
	for _, loop := range control.Loops {
		c := t.ctrl[loop]
		switched, err := c.Update(now, t.reading(loop))
		if err != nil {
			t.log.Warnw("tank: actuator update failed", "loop", loop, "error", err)
			continue
		}
		if switched {
			t.log.Debugw("tank: actuator", "loop", loop, "on", c.Level(), "fraction", c.Fraction())
			if t.metrics != nil {
				t.metrics.Switched(loop)
			}
		}
	}
}

// record snapshots the controller for one log row.
func (t *Tank) record(now time.Time, calibrating bool) datalog.Record {
	return datalog.Record{
		Time:        now,
		TankID:      t.store.TankID(),
		Temp:        t.temp.Value(),
		TempTarget:  t.ctrl[control.LoopTemp].Target(),
		PH:          t.ph.Value(),
		PHTarget:    t.ctrl[control.LoopPH].Target(),
		Calibrating: calibrating,
		Uptime:      now.Sub(t.start),
		Gains:       t.ctrl[control.LoopPH].PID().Gains(),
	}
}

// writeLog emits one row per log interval, aligned to whole seconds.
func (t *Tank) writeLog(now time.Time, calibrating bool) {
	if now.Before(t.nextLog) {
		return
	}
	t.nextLog = now.Truncate(time.Second).Add(t.opts.LogInterval)

	rec := t.record(now, calibrating)
	err := t.sink.AppendRow(datalog.Header, rec.Row())
	if t.metrics != nil {
		t.metrics.LogRow(err)
	}
	if err != nil {
		t.log.Warnw("tank: log write failed", "error", err)
	} else if t.tracker != nil {
		t.tracker.SetLastLog(now)
	}
	if t.relay != nil {
		t.relay.Enqueue(rec)
	}
}

func (t *Tank) loopState(loop control.Loop) status.LoopState {
	c := t.ctrl[loop]
	w := c.Window()
	return status.LoopState{
		Reading:   t.reading(loop),
		Target:    c.Target(),
		Gains:     c.PID().Gains(),
		Automatic: c.Automatic(),
		Energized: c.Level(),
		OnTime:    w.OnTime(),
		Switches:  w.Switches(),
	}
}

func (t *Tank) report(calibrating bool) {
	if t.metrics != nil {
		t.metrics.Tick()
		t.metrics.SetCalibrating(calibrating)
		for _, loop := range control.Loops {
			c := t.ctrl[loop]
			t.metrics.ObserveLoop(loop, t.reading(loop), c.Target(), c.Level())
		}
	}
	if t.tracker == nil {
		return
	}
	t.tracker.Update(status.Readings{
		TankID:      t.store.TankID(),
		State:       t.CurrentStateName(),
		Calibrating: calibrating,
		PH:          t.loopState(control.LoopPH),
		Temp:        t.loopState(control.LoopTemp),
		Display:     t.display.lines,
	})
	if t.relay != nil {
		st := t.relay.Stats()
		t.tracker.SetRelay(status.Relay{Pending: st.Pending, Sent: st.Sent, Dropped: st.Dropped})
		if cs, ok := t.relay.(mqtt.ConnectionStatus); ok {
			t.tracker.SetMQTTConnected(cs.IsConnected())
		}
	}
}
