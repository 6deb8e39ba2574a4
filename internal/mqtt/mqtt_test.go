package mqtt

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sweeney/tank-controller/internal/control"
	"github.com/sweeney/tank-controller/internal/datalog"
)

var testRecord = datalog.Record{
	Time:       time.Date(2026, 3, 7, 9, 5, 3, 0, time.FixedZone("NZDT", 13*3600)),
	TankID:     2,
	Temp:       20.5,
	TempTarget: 20,
	PH:         8.125,
	PHTarget:   8.1,
	Uptime:     90 * time.Second,
	Gains:      control.Gains{Kp: 100000, Ki: 1, Kd: 2},
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics("aquarium", 3)
	if topics.Records != "aquarium/3/records" {
		t.Errorf("records topic: got %s", topics.Records)
	}
	if topics.System != "aquarium/3/system" {
		t.Errorf("system topic: got %s", topics.System)
	}
}

func TestFormatRecordPayload(t *testing.T) {
	data, err := FormatRecordPayload(testRecord)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got RecordPayload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r := got.Record
	if r.Timestamp != "2026-03-06T20:05:03Z" {
		t.Errorf("timestamp should be UTC RFC3339, got %s", r.Timestamp)
	}
	if r.TankID != 2 || r.UptimeSecs != 90 || r.Kp != 100000 || r.Ki != 1 || r.Kd != 2 {
		t.Errorf("unexpected body %+v", r)
	}
	if r.Temp == nil || *r.Temp != 20.5 || r.PH == nil || *r.PH != 8.125 {
		t.Errorf("readings missing: temp=%v ph=%v", r.Temp, r.PH)
	}
	if r.Row != testRecord.Row() {
		t.Errorf("row: got %q", r.Row)
	}
}

func TestFormatRecordPayloadOmitsUntrustedReadings(t *testing.T) {
	rec := testRecord
	rec.Calibrating = true
	data, err := FormatRecordPayload(rec)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["record"]["temp"]; ok {
		t.Error("temp must be omitted during calibration")
	}
	if _, ok := raw["record"]["ph"]; ok {
		t.Error("ph must be omitted during calibration")
	}
	if raw["record"]["calibrating"] != true {
		t.Error("calibrating flag missing")
	}
}

func TestFormatRecordPayloadNaNReading(t *testing.T) {
	rec := testRecord
	rec.PH = math.NaN()
	data, err := FormatRecordPayload(rec)
	if err != nil {
		t.Fatalf("NaN reading must not break encoding: %v", err)
	}
	var got RecordPayload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Record.PH != nil {
		t.Errorf("ph: got %v, want omitted", *got.Record.PH)
	}
	if got.Record.Temp == nil {
		t.Error("temp should still be present")
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}
	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `{"system":{"timestamp":"2026-01-02T03:04:05Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestFormatSystemPayloadWill(t *testing.T) {
	data, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `{"system":{"event":"OFFLINE","reason":"CONNECTION_LOST"}}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"system":{"event":"STARTUP","status":{}}}`)
	data, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload not passed through: %s", data)
	}
}

func TestFakePublisher(t *testing.T) {
	var p Publisher = NewFakePublisher()
	f := p.(*FakePublisher)

	p.Enqueue(testRecord)
	p.Service()
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("publish system: %v", err)
	}

	if len(f.Records) != 1 || f.Services != 1 || len(f.SystemEvents) != 1 {
		t.Errorf("unexpected recordings %+v", f)
	}
	if st := p.Stats(); st.Queued != 1 || st.Sent != 1 {
		t.Errorf("stats: %+v", st)
	}

	f.PublishSystemError = errors.New("offline")
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected error")
	}
	if len(f.SystemEvents) != 1 {
		t.Error("failed publish must not be recorded")
	}

	p.Close()
	if !f.Closed {
		t.Error("expected closed")
	}
}

func TestNewRealPublisherRequiresBroker(t *testing.T) {
	if _, err := NewRealPublisher(Options{}, nil); err == nil {
		t.Error("expected error for empty broker")
	}
}
