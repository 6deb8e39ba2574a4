package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	TankID        int          `json:"tank_id"`
	State         string       `json:"state"`
	Calibrating   bool         `json:"calibrating"`
	PH            LoopJSON     `json:"ph"`
	Temp          LoopJSON     `json:"temp"`
	Display       []string     `json:"display"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastLog       string       `json:"last_log,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LoopJSON is the JSON representation of one control loop. Reading is null
// until the probe has reported.
type LoopJSON struct {
	Reading   *float64 `json:"reading"`
	Target    float64  `json:"target"`
	Kp        float64  `json:"kp"`
	Ki        float64  `json:"ki"`
	Kd        float64  `json:"kd"`
	Automatic bool     `json:"automatic"`
	Energized bool     `json:"energized"`
	OnTimeMs  int64    `json:"on_time_ms"`
	Switches  int      `json:"switches"`
}

// MQTTStatus reports MQTT connection and queue state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Pending   int    `json:"pending"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	MAC        string `json:"mac,omitempty"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs        int64  `json:"tick_ms"`
	IdleTimeoutMs int64  `json:"idle_timeout_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	Version       string `json:"version"`
}

func loopJSON(l LoopState) LoopJSON {
	j := LoopJSON{
		Target:    l.Target,
		Kp:        l.Gains.Kp,
		Ki:        l.Gains.Ki,
		Kd:        l.Gains.Kd,
		Automatic: l.Automatic,
		Energized: l.Energized,
		OnTimeMs:  l.OnTime.Milliseconds(),
		Switches:  l.Switches,
	}
	if !math.IsNaN(l.Reading) && !math.IsInf(l.Reading, 0) {
		v := l.Reading
		j.Reading = &v
	}
	return j
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State
	if state == "" {
		state = "UNKNOWN"
	}
	inner := StatusInner{
		TankID:        snap.TankID,
		State:         state,
		Calibrating:   snap.Calibrating,
		PH:            loopJSON(snap.PH),
		Temp:          loopJSON(snap.Temp),
		Display:       []string{snap.Display[0], snap.Display[1]},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Pending:   snap.Relay.Pending,
			Sent:      snap.Relay.Sent,
			Dropped:   snap.Relay.Dropped,
		},
		Config: ConfigJSON{
			TickMs:        snap.Config.TickMs,
			IdleTimeoutMs: snap.Config.IdleTimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			Version:       snap.Config.Version,
		},
	}
	if !snap.LastLog.IsZero() {
		inner.LastLog = snap.LastLog.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			MAC:        snap.Network.MAC,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
