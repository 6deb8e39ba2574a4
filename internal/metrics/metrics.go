// Package metrics exposes controller activity as Prometheus collectors.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/mqtt"
)

const namespace = "tank"

// Metrics holds the collectors updated by the control loop.
type Metrics struct {
	ticks       prometheus.Counter
	switches    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	keys        prometheus.Counter
	logRows     prometheus.Counter
	logErrors   prometheus.Counter
	reading     *prometheus.GaugeVec
	target      *prometheus.GaugeVec
	energized   *prometheus.GaugeVec
	calibrating prometheus.Gauge
	reg         prometheus.Registerer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Control loop ticks executed.",
		}),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "actuator_switches_total",
			Help: "Actuator level changes written, by loop.",
		}, []string{"loop"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ui_transitions_total",
			Help: "Menu state transitions applied, by destination state.",
		}, []string{"state"}),
		keys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "keypresses_total",
			Help: "Keypad presses handled.",
		}),
		logRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "log_rows_total",
			Help: "Data log rows emitted.",
		}),
		logErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "log_write_errors_total",
			Help: "Data log rows that could not be written.",
		}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reading",
			Help: "Latest smoothed sensor reading, by loop.",
		}, []string{"loop"}),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "target",
			Help: "Current setpoint, by loop.",
		}, []string{"loop"}),
		energized: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "actuator_energized",
			Help: "1 while the actuator is energized, by loop.",
		}, []string{"loop"}),
		calibrating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "calibrating",
			Help: "1 while a calibration screen is active.",
		}),
		reg: reg,
	}
	reg.MustRegister(
		m.ticks, m.switches, m.transitions, m.keys, m.logRows, m.logErrors,
		m.reading, m.target, m.energized, m.calibrating,
	)
	return m
}

// RegisterRelay exposes the MQTT queue counters, read at scrape time.
func (m *Metrics) RegisterRelay(stats func() mqtt.Stats) {
	m.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "relay_pending",
			Help: "Records waiting for the MQTT broker.",
		}, func() float64 { return float64(stats().Pending) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_sent_total",
			Help: "Messages accepted by the MQTT broker.",
		}, func() float64 { return float64(stats().Sent) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_dropped_total",
			Help: "Messages dropped because the relay queue was full.",
		}, func() float64 { return float64(stats().Dropped) }),
	)
}

// Tick counts one control loop tick.
func (m *Metrics) Tick() { m.ticks.Inc() }

// Key counts one handled key press.
func (m *Metrics) Key() { m.keys.Inc() }

// Switched counts an actuator level change.
func (m *Metrics) Switched(loop control.Loop) {
	m.switches.WithLabelValues(string(loop)).Inc()
}

// Transition counts a menu transition into state.
func (m *Metrics) Transition(state string) {
	m.transitions.WithLabelValues(state).Inc()
}

// LogRow counts an emitted log row and whether writing it failed.
func (m *Metrics) LogRow(err error) {
	m.logRows.Inc()
	if err != nil {
		m.logErrors.Inc()
	}
}

// ObserveLoop records the state of one control loop. A missing reading is
// exported as NaN.
func (m *Metrics) ObserveLoop(loop control.Loop, reading, target float64, energized bool) {
	if math.IsInf(reading, 0) {
		reading = math.NaN()
	}
	m.reading.WithLabelValues(string(loop)).Set(reading)
	m.target.WithLabelValues(string(loop)).Set(target)
	m.energized.WithLabelValues(string(loop)).Set(boolFloat(energized))
}

// SetCalibrating records whether a calibration is in progress.
func (m *Metrics) SetCalibrating(on bool) {
	m.calibrating.Set(boolFloat(on))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
