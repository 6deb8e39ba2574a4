package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/tank-controller/internal/datalog"
)

var errNotConnected = errors.New("not connected")

// Options configures a RealPublisher.
type Options struct {
	Broker         string
	ClientID       string
	Topics         Topics
	BufferSize     int
	PublishTimeout time.Duration
}

// RealPublisher publishes to an actual MQTT broker. The first connection is
// made in the background with exponential backoff; records queue until it
// succeeds. paho handles reconnects after that.
type RealPublisher struct {
	client  paho.Client
	topics  Topics
	timeout time.Duration
	log     *zap.SugaredLogger
	relay   *relay
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRealPublisher starts connecting to the broker and returns immediately.
func NewRealPublisher(opts Options, log *zap.SugaredLogger) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker address is empty")
	}
	if opts.ClientID == "" {
		opts.ClientID = "tank-controller"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 3600
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}

	p := &RealPublisher{
		topics:  opts.Topics,
		timeout: opts.PublishTimeout,
		log:     log,
		stopped: make(chan struct{}),
	}

	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetBinaryWill(opts.Topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Infow("mqtt: connected", "broker", opts.Broker)
			p.relay.service()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt: connection lost", "error", err)
		})

	p.client = paho.NewClient(clientOpts)
	p.relay = newRelay(opts.BufferSize, p.send, log)
	p.relay.start()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.connect(ctx)

	return p, nil
}

func (p *RealPublisher) connect(ctx context.Context) {
	defer close(p.stopped)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0 // keep trying until Close

	op := func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return errors.New("connection timeout")
		}
		return token.Error()
	}
	notify := func(err error, wait time.Duration) {
		p.log.Warnw("mqtt: connect failed", "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		p.log.Infow("mqtt: gave up connecting", "error", err)
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		return errNotConnected
	}
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Enqueue queues a record for the worker.
func (p *RealPublisher) Enqueue(rec datalog.Record) {
	payload, err := FormatRecordPayload(rec)
	if err != nil {
		p.log.Errorw("mqtt: format record", "error", err)
		return
	}
	// QoS 0: a lost row is still on the SD log.
	p.relay.enqueue(bufferedMsg{topic: p.topics.Records, payload: payload})
}

// PublishSystem sends a lifecycle event now. If the broker is unreachable the
// event is queued for replay and the error is returned.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(msg); err != nil {
		p.relay.enqueue(msg)
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Service wakes the drain worker.
func (p *RealPublisher) Service() {
	p.relay.service()
}

// Stats reports relay counters.
func (p *RealPublisher) Stats() Stats {
	return p.relay.snapshot()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close stops connecting and draining, then disconnects. Unsent records are
// logged and discarded.
func (p *RealPublisher) Close() error {
	p.cancel()
	<-p.stopped
	if left := p.relay.close(); len(left) > 0 {
		p.log.Warnw("mqtt: discarding unsent messages", "count", len(left))
	}
	p.client.Disconnect(1000)
	return nil
}
