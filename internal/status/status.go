// Package status provides a thread-safe status tracker for the tank
// controller. The control loop writes it once per tick; HTTP handlers and
// MQTT lifecycle events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tank-controller/internal/control"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	MAC        string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs        int64
	IdleTimeoutMs int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	Version       string
}

// LoopState is the per-loop view shown on the status page.
type LoopState struct {
	Reading   float64 // NaN before the first sample
	Target    float64
	Gains     control.Gains
	Automatic bool
	Energized bool
	OnTime    time.Duration
	Switches  int
}

// Readings is what the control loop reports every tick.
type Readings struct {
	TankID      int
	State       string
	Calibrating bool
	PH          LoopState
	Temp        LoopState
	Display     [2]string
}

// Relay summarises the MQTT queue.
type Relay struct {
	Pending int
	Sent    uint64
	Dropped uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Readings
	Relay         Relay
	LastLog       time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the readings. Called from the control loop on every tick.
func (t *Tracker) Update(r Readings) {
	t.mu.Lock()
	t.snap.Readings = r
	t.mu.Unlock()
}

// SetLastLog records when the last log row was written.
func (t *Tracker) SetLastLog(at time.Time) {
	t.mu.Lock()
	t.snap.LastLog = at
	t.mu.Unlock()
}

// SetRelay records the MQTT queue counters.
func (t *Tracker) SetRelay(r Relay) {
	t.mu.Lock()
	t.snap.Relay = r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
