package pool

import "time"

// slot is one of the pool's maxsize pre-allocated records. Its pool back
// reference is an ordinary Go pointer rather than the weak pointer the
// original design calls for (§9's "cyclic references pool↔slot" note):
// under a tracing garbage collector a slot→pool edge cannot leak the pool
// past its last live reference, so the weak-upgrade dance collapses to a
// plain p.closed check at check-in time. See DESIGN.md.
type slot[R any] struct {
	idx         int
	pool        *Pool[R]
	resource    R
	hasResource bool
	lastCheck   time.Duration
}

func newSlot[R any](idx int, p *Pool[R]) *slot[R] {
	return &slot[R]{idx: idx, pool: p}
}

func (s *slot[R]) setState(st slotState) {
	s.pool.status.set(s.idx, st)
}
