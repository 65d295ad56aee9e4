package pool

// idleQueue is a bounded multi-producer, multi-consumer FIFO of slots,
// backed by a buffered channel exactly the way the teacher's ClientPool
// uses idleClients chan *Client. Capacity exactly maxsize; push is total
// (the slot invariants guarantee it never exceeds capacity), pop is
// non-blocking.
type idleQueue[R any] struct {
	slots chan *slot[R]
}

func newIdleQueue[R any](maxSize int) *idleQueue[R] {
	return &idleQueue[R]{slots: make(chan *slot[R], maxSize)}
}

func (q *idleQueue[R]) push(s *slot[R]) {
	select {
	case q.slots <- s:
	default:
		// Invariant §3.1/§3.2 bounds occupancy at maxsize; a full buffer
		// here would mean a slot was pushed twice.
	}
}

func (q *idleQueue[R]) pop() (*slot[R], bool) {
	select {
	case s := <-q.slots:
		return s, true
	default:
		return nil, false
	}
}
