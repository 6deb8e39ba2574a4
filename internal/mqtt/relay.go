package mqtt

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// sendFunc delivers one message to the broker.
type sendFunc func(msg bufferedMsg) error

// relay owns the outbound queue and the goroutine that drains it. The
// breaker stops a dead broker from being hammered on every tick.
type relay struct {
	send    sendFunc
	breaker *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger

	mu    sync.Mutex
	buf   *ringBuffer
	stats Stats

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newRelay(capacity int, send sendFunc, log *zap.SugaredLogger) *relay {
	r := &relay{
		send: send,
		log:  log,
		buf:  newRingBuffer(capacity),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "mqtt-relay",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infow("mqtt: breaker state", "from", from.String(), "to", to.String())
		},
	})
	return r
}

func (r *relay) start() {
	go r.run()
}

func (r *relay) enqueue(msg bufferedMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wasOverflowing := r.buf.overflow
	if r.buf.push(msg) {
		r.stats.Dropped++
		if !wasOverflowing {
			r.log.Warnw("mqtt: buffer full, dropping oldest", "capacity", r.buf.capacity)
		}
	}
	r.stats.Queued++
}

// service wakes the worker without blocking.
func (r *relay) service() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Pending = r.buf.len()
	return s
}

func (r *relay) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case <-r.wake:
			r.drain()
		}
	}
}

// drain sends queued messages oldest first until the queue is empty, a send
// fails, or the relay is stopping. A failed message stays at the head and is
// retried on the next wake.
func (r *relay) drain() {
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		r.mu.Lock()
		msg, ok := r.buf.peek()
		r.mu.Unlock()
		if !ok {
			return
		}

		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, r.send(msg)
		})

		r.mu.Lock()
		if err != nil {
			r.stats.Failed++
		} else {
			r.buf.popSeq(msg.seq)
			r.stats.Sent++
		}
		r.mu.Unlock()

		if err != nil {
			if !errors.Is(err, gobreaker.ErrOpenState) {
				r.log.Debugw("mqtt: send failed", "topic", msg.topic, "error", err)
			}
			return
		}
	}
}

// close stops the worker and returns whatever was still queued.
func (r *relay) close() []bufferedMsg {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.drainAll()
}
