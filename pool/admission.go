package pool

import (
	"context"
	"sync"
)

// admission is a closeable counting semaphore of capacity maxsize. It is
// the Go-idiomatic channel-of-tokens generalisation of the teacher's
// ClientPool.slots pattern (pkg/usenet/nntp/pool.go), extended with a
// Close that wakes every current and future waiter with ErrClosed instead
// of panicking a send on a closed channel.
type admission struct {
	tokens    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newAdmission(n int) *admission {
	a := &admission{
		tokens: make(chan struct{}, n),
		closed: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		a.tokens <- struct{}{}
	}
	return a
}

// tryAcquire attempts a non-blocking admission. acquired is false with a
// nil error when the pool is merely saturated (no permit free); err is
// ErrClosed once the admission has been closed.
func (a *admission) tryAcquire() (acquired bool, err error) {
	select {
	case <-a.closed:
		return false, ErrClosed
	default:
	}
	select {
	case <-a.tokens:
		return true, nil
	default:
		return false, nil
	}
}

// acquire blocks until a permit is available, ctx is done, or the
// admission is closed.
func (a *admission) acquire(ctx context.Context) error {
	select {
	case <-a.closed:
		return ErrClosed
	case <-a.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *admission) release() {
	select {
	case a.tokens <- struct{}{}:
	default:
		// Invariant §3.4 bounds outstanding permits at maxsize; a full
		// buffer here would mean a permit was released twice.
	}
}

// close wakes every current and future waiter with ErrClosed. Idempotent.
func (a *admission) close() {
	a.closeOnce.Do(func() { close(a.closed) })
}
