package mqtt

// bufferedMsg stores a serialized MQTT message until the broker accepts it.
type bufferedMsg struct {
	seq      uint64
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO. When full the oldest message is
// overwritten. Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	seq      uint64
	overflow bool // true once a message was dropped, until the buffer empties
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push appends msg, assigning its sequence number. Reports whether the
// oldest message was dropped to make room.
func (r *ringBuffer) push(msg bufferedMsg) (dropped bool) {
	r.seq++
	msg.seq = r.seq
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	if r.count == r.capacity {
		r.overflow = true
		return true
	}
	r.count++
	return false
}

func (r *ringBuffer) oldest() int {
	return (r.head - r.count + r.capacity) % r.capacity
}

// peek returns the oldest message without removing it.
func (r *ringBuffer) peek() (bufferedMsg, bool) {
	if r.count == 0 {
		return bufferedMsg{}, false
	}
	return r.buf[r.oldest()], true
}

// popSeq removes the oldest message if it is still the one with seq. The
// message may have been overwritten while it was being sent.
func (r *ringBuffer) popSeq(seq uint64) bool {
	if r.count == 0 {
		return false
	}
	i := r.oldest()
	if r.buf[i].seq != seq {
		return false
	}
	r.buf[i] = bufferedMsg{}
	r.count--
	if r.count == 0 {
		r.overflow = false
	}
	return true
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	result := make([]bufferedMsg, r.count)
	start := r.oldest()
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
