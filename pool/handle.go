package pool

import "sync"

// Handle is a scoped, exclusive borrow of one slot's resource. Go has no
// destructors, so unlike the Rust PooledConnection this cannot return
// itself to the pool when it goes out of scope: callers must call
// Release (or Close, an io.Closer-shaped alias) on every path out of the
// scope that acquired it, normal or abnormal — the same discipline every
// real Go pool in this codebase's ecosystem already asks of its callers
// (database/sql.Rows, redis.Conn, the teacher's own ClientPool.Put).
type Handle[R any] struct {
	pool *Pool[R]
	slot *slot[R]

	once sync.Once
	taken bool
}

// Resource returns the borrowed resource. Valid until Release or Take is
// called.
func (h *Handle[R]) Resource() R {
	return h.slot.resource
}

// Take permanently removes the resource from the pool. The emptied slot
// is still returned to the idle queue by the subsequent Release/Close
// call; a later Get on the pool will invoke Connect again for that slot.
func (h *Handle[R]) Take() R {
	r := h.slot.resource
	var zero R
	h.slot.resource = zero
	h.slot.hasResource = false
	h.taken = true
	return r
}

// Release returns the slot to the pool: pushes it into the idle queue and
// releases its admission permit, unless the pool has since closed, in
// which case the resource is discarded instead. Idempotent — safe to
// defer even after an explicit call.
func (h *Handle[R]) Release() {
	h.once.Do(func() {
		h.pool.checkin(h.slot, h.taken)
	})
}

// Close is an io.Closer-shaped alias for Release, for callers that prefer
// `defer handle.Close()`.
func (h *Handle[R]) Close() error {
	h.Release()
	return nil
}
