// Package mqtt relays log records and lifecycle events to an MQTT broker.
// Records are queued by the control loop and drained on a worker goroutine so
// a slow or absent broker never stalls a tick.
package mqtt

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/tank-controller/internal/datalog"
)

// Publisher relays records and system events.
type Publisher interface {
	// Enqueue queues a record for delivery. It never blocks.
	Enqueue(rec datalog.Record)

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Service lets queued records drain. Called once per tick.
	Service()

	// Stats reports relay counters.
	Stats() Stats

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Stats counts relay activity since start.
type Stats struct {
	Queued  uint64
	Sent    uint64
	Failed  uint64
	Dropped uint64
	Pending int
}

// Topics holds the per-tank topic names.
type Topics struct {
	Records string
	System  string
}

// NewTopics builds topics under prefix for a tank, e.g. "tank/3/records".
func NewTopics(prefix string, tankID int) Topics {
	base := fmt.Sprintf("%s/%d", prefix, tankID)
	return Topics{
		Records: base + "/records",
		System:  base + "/system",
	}
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// RecordPayload is the JSON body published for each log record.
type RecordPayload struct {
	Record RecordBody `json:"record"`
}

// RecordBody carries the record fields. Readings are omitted while a
// calibration runs or before the first sample.
type RecordBody struct {
	Timestamp    string   `json:"timestamp"`
	TankID       int      `json:"tank_id"`
	Temp         *float64 `json:"temp,omitempty"`
	TempSetpoint float64  `json:"temp_setpoint"`
	PH           *float64 `json:"ph,omitempty"`
	PHSetpoint   float64  `json:"ph_setpoint"`
	Calibrating  bool     `json:"calibrating"`
	UptimeSecs   int64    `json:"uptime_s"`
	Kp           float64  `json:"kp"`
	Ki           float64  `json:"ki"`
	Kd           float64  `json:"kd"`
	Row          string   `json:"row"`
}

func reading(v float64, calibrating bool) *float64 {
	if calibrating || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatRecordPayload creates the JSON payload for a record.
func FormatRecordPayload(rec datalog.Record) ([]byte, error) {
	return json.Marshal(RecordPayload{
		Record: RecordBody{
			Timestamp:    rec.Time.UTC().Format(time.RFC3339),
			TankID:       rec.TankID,
			Temp:         reading(rec.Temp, rec.Calibrating),
			TempSetpoint: rec.TempTarget,
			PH:           reading(rec.PH, rec.Calibrating),
			PHSetpoint:   rec.PHTarget,
			Calibrating:  rec.Calibrating,
			UptimeSecs:   int64(rec.Uptime / time.Second),
			Kp:           rec.Gains.Kp,
			Ki:           rec.Gains.Ki,
			Kd:           rec.Gains.Kd,
			Row:          rec.Row(),
		},
	})
}

// SystemPayload is the body of simple events (will, reconnect) that do not
// carry a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	inner := SystemPayloadInner{Event: event.Event, Reason: event.Reason}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
