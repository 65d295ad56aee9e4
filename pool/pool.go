package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool is a generic, bounded cache of reusable resources of type R. Build
// one with NewBuilder[R]().Build(manager).
type Pool[R any] struct {
	manager Manager[R]
	cfg     Builder[R]

	status *statusTable
	idle   *idleQueue[R]
	sem    *admission

	birth  time.Time
	closed atomic.Bool
}

// Get checks out a Handle, blocking until one is available, the pool's
// configured (or caller-supplied) deadline expires, or the pool closes.
func (p *Pool[R]) Get(ctx context.Context) (*Handle[R], error) {
	return p.get(ctx, true)
}

// GetTimeout is Get with a per-call timeout overriding the builder's
// default.
func (p *Pool[R]) GetTimeout(ctx context.Context, d time.Duration) (*Handle[R], error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return p.get(ctx, true)
}

// TryGet checks out a Handle without waiting for admission: it returns
// (nil, nil) if the pool is currently saturated or has no idle slot ready,
// rather than blocking.
func (p *Pool[R]) TryGet(ctx context.Context) (*Handle[R], error) {
	return p.get(ctx, false)
}

// TryGetTimeout is TryGet, but the lazy connect/check performed on a
// freshly admitted slot still runs under a d-bounded context.
func (p *Pool[R]) TryGetTimeout(ctx context.Context, d time.Duration) (*Handle[R], error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return p.get(ctx, false)
}

func (p *Pool[R]) get(ctx context.Context, wait bool) (*Handle[R], error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := p.withDefaultDeadline(ctx)
	defer cancel()

	stage := StageWait
	if !wait {
		return p.tryGetOnce(ctx, &stage)
	}

	tryOnce := true
	for {
		if tryOnce {
			tryOnce = false
			acquired, err := p.sem.tryAcquire()
			if err != nil {
				return nil, err
			}
			if !acquired {
				// Next iteration blocks; try_once_time is now false.
				continue
			}
		} else {
			p.status.enterWait()
			err := p.sem.acquire(ctx)
			p.status.exitWait()
			if err != nil {
				return nil, p.waitErr(err, stage)
			}
		}

		s, ok := p.idle.pop()
		if !ok {
			// Permit and idle slot momentarily desynchronised under a
			// concurrent return; release and re-enter admission (§4.6.2).
			p.sem.release()
			continue
		}
		return p.fill(ctx, s, &stage)
	}
}

func (p *Pool[R]) tryGetOnce(ctx context.Context, stage *string) (*Handle[R], error) {
	acquired, err := p.sem.tryAcquire()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	s, ok := p.idle.pop()
	if !ok {
		p.sem.release()
		return nil, nil
	}
	return p.fill(ctx, s, stage)
}

// withDefaultDeadline applies the builder's Timeout as the context
// deadline only when the caller's own context carries none, preserving
// "outer timeout wraps the whole call" without forcing every caller to
// construct a deadline themselves.
func (p *Pool[R]) withDefaultDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.timeout == nil {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, *p.cfg.timeout)
}

// waitErr classifies an error surfaced while blocked in admission: closed
// passes through, everything else (deadline exceeded or caller
// cancellation) becomes a stage-tagged Timeout. The spec defines no
// separate "cancelled" kind, so Go's single cancellation signal collapses
// onto Timeout; see DESIGN.md.
func (p *Pool[R]) waitErr(err error, stage string) error {
	if errors.Is(err, ErrClosed) {
		return ErrClosed
	}
	return &Error{Kind: KindTimeout, Stage: stage, Err: err}
}

// fill runs steps (3)-(5) of the check-out algorithm on a freshly popped
// slot: lazy connect, staleness check, hand-off.
func (p *Pool[R]) fill(ctx context.Context, s *slot[R], stage *string) (*Handle[R], error) {
	justConnected := false
	if !s.hasResource {
		*stage = StageConnect
		r, err := p.manager.Connect(ctx)
		if err != nil {
			p.recycle(s)
			return nil, p.fillErr(err, *stage)
		}
		s.resource = r
		s.hasResource = true
		justConnected = true
		p.cfg.logger.Debug("pool: connected", "idx", s.idx)
	}

	if p.cfg.check != nil {
		d := *p.cfg.check
		due := justConnected || d == 0 || p.clock() >= s.lastCheck+d
		if due {
			*stage = StageCheck
			if !justConnected {
				s.setState(stateInCheck)
			}
			if err := p.manager.Check(ctx, s.resource); err != nil {
				p.recycle(s)
				return nil, p.fillErr(err, *stage)
			}
			s.lastCheck = p.clock()
			p.cfg.logger.Debug("pool: checked", "idx", s.idx)
		}
	}

	s.setState(stateInUse)
	return &Handle[R]{pool: p, slot: s}, nil
}

// fillErr classifies an error surfaced from Connect/Check: if it is (or
// wraps) the context's own cancellation/deadline error, it is a stage
// Timeout; otherwise it is an Inner manager failure.
func (p *Pool[R]) fillErr(err error, stage string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Stage: stage, Err: err}
	}
	return &Error{Kind: KindInner, Err: err}
}

// recycle implements step (6): drop the resource, mark the slot Empty,
// requeue it, release its permit. Runs synchronously with no suspension
// point, so invariants are re-established before any later await.
func (p *Pool[R]) recycle(s *slot[R]) {
	if s.hasResource {
		maybeClose(s.resource)
	}
	s.hasResource = false
	var zero R
	s.resource = zero
	s.setState(stateEmpty)
	p.idle.push(s)
	p.sem.release()
	p.cfg.logger.Debug("pool: recycled", "idx", s.idx)
}

// checkin implements the Handle drop / check-in algorithm: determine the
// final state, write it, and either requeue the slot (pool still open) or
// drop the resource (pool closed).
func (p *Pool[R]) checkin(s *slot[R], taken bool) {
	final := stateIdle
	if taken || !s.hasResource {
		final = stateEmpty
	}
	s.setState(final)

	if p.closed.Load() {
		if s.hasResource {
			maybeClose(s.resource)
			s.hasResource = false
			var zero R
			s.resource = zero
		}
		return
	}

	p.idle.push(s)
	p.sem.release()
	p.cfg.logger.Debug("pool: checked in", "idx", s.idx, "state", final)
}

// StartConnections eagerly connects and, if configured, checks every
// currently Empty slot, then releases them back as Idle — amortising
// first-request latency. It fans out one goroutine per slot via
// errgroup, reusing Get/Release for each so the same invariants govern
// prewarm and ordinary check-out.
func (p *Pool[R]) StartConnections(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.maxSize; i++ {
		g.Go(func() error {
			h, err := p.Get(gctx)
			if err != nil {
				return err
			}
			h.Release()
			return nil
		})
	}
	return g.Wait()
}

// Close closes the pool: closes the admission semaphore (waking every
// waiter with ErrClosed) and discards every currently idle slot's
// resource. Slots held by still-live Handles are drained when those
// Handles are released. Idempotent.
func (p *Pool[R]) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.sem.close()
	for {
		s, ok := p.idle.pop()
		if !ok {
			break
		}
		if s.hasResource {
			maybeClose(s.resource)
			s.hasResource = false
			var zero R
			s.resource = zero
		}
		s.setState(stateEmpty)
	}
	p.cfg.logger.Debug("pool: closed")
	return nil
}

// State returns a snapshot of current slot occupancy.
func (p *Pool[R]) State() State {
	return p.status.snapshot()
}

// Manager returns the Manager this Pool was built with.
func (p *Pool[R]) Manager() Manager[R] {
	return p.manager
}

// Config returns a copy of the configuration this Pool was built with.
func (p *Pool[R]) Config() Builder[R] {
	return p.cfg
}

func (p *Pool[R]) clock() time.Duration {
	return time.Since(p.birth)
}

// maybeClose closes r if it implements io.Closer, matching the teacher's
// habit of calling Quit/Close on a discarded connection (ClientPool.Discard).
// The Manager interface itself defines no disconnect hook, so this is a
// best-effort courtesy for resources that happen to be closeable.
func maybeClose[R any](r R) {
	if c, ok := any(r).(interface{ Close() error }); ok && c != nil {
		_ = c.Close()
	}
}
