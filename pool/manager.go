// Package pool implements a generic, asynchronous, bounded connection pool.
//
// A Pool amortises the cost of constructing expensive, reusable resources
// (database handles, Redis clients, anything a Manager knows how to build
// and probe) across many concurrent callers. Callers check out a Handle,
// use the resource through it, and release it back to the pool when done.
package pool

import "context"

// Manager is a pluggable capability supplying backend-specific connect and
// check operations for a resource type R. Implementations must be safe for
// concurrent use from multiple goroutines and must outlive every Pool built
// from them.
type Manager[R any] interface {
	// Connect produces a fresh, fully usable resource. A Manager whose
	// Connect respects ctx cancellation lets Pool.Get attribute a timed-out
	// connect attempt to the "connect" stage rather than treating it as an
	// ordinary backend failure.
	Connect(ctx context.Context) (R, error)

	// Check is a best-effort liveness probe on an existing resource. A
	// non-nil error means the resource is unusable; its slot is recycled.
	Check(ctx context.Context, resource R) error
}
