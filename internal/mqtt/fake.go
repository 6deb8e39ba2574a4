package mqtt

import "github.com/sweeney/tank-controller/internal/datalog"

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Records contains every record passed to Enqueue.
	Records []datalog.Record

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Services counts calls to Service.
	Services int

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Enqueue records the record.
func (f *FakePublisher) Enqueue(rec datalog.Record) {
	f.Records = append(f.Records, rec)
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Service counts the call.
func (f *FakePublisher) Service() {
	f.Services++
}

// Stats reports every enqueued record as sent.
func (f *FakePublisher) Stats() Stats {
	n := uint64(len(f.Records))
	return Stats{Queued: n, Sent: n}
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
