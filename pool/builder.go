package pool

import (
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxSize is returned by Build when maxsize is not positive.
var ErrInvalidMaxSize = errors.New("pool: maxsize must be > 0")

// Builder is a configuration object. Each setter modifies the receiver and
// returns it for chaining, so two setter chains started from the same
// *Builder share one configuration. Build copies the configuration into the
// Pool, so setter calls made after Build do not affect an already-built pool.
type Builder[R any] struct {
	maxSize int
	timeout *time.Duration
	check   *time.Duration
	logger  *slog.Logger
}

// NewBuilder returns a Builder pre-populated with the documented defaults:
// maxsize 20, a 5s outer timeout, and check=Some(0) (probe every
// check-out).
func NewBuilder[R any]() *Builder[R] {
	timeout := 5 * time.Second
	check := time.Duration(0)
	return &Builder[R]{
		maxSize: 20,
		timeout: &timeout,
		check:   &check,
	}
}

// MaxSize sets the number of slots. Must be > 0; enforced at Build.
func (b *Builder[R]) MaxSize(n int) *Builder[R] {
	b.maxSize = n
	return b
}

// Timeout sets the outer deadline applied to Get/TryGet when the caller's
// context carries no deadline of its own.
func (b *Builder[R]) Timeout(d time.Duration) *Builder[R] {
	b.timeout = &d
	return b
}

// NoTimeout removes the default deadline; Get/TryGet then only respect a
// deadline the caller's own context already carries.
func (b *Builder[R]) NoTimeout() *Builder[R] {
	b.timeout = nil
	return b
}

// Check sets the staleness-check interval: 0 means probe on every
// check-out, d>0 means probe only once at least d has elapsed since the
// slot's last successful check.
func (b *Builder[R]) Check(d time.Duration) *Builder[R] {
	b.check = &d
	return b
}

// NoCheck disables the staleness probe entirely.
func (b *Builder[R]) NoCheck() *Builder[R] {
	b.check = nil
	return b
}

// Logger sets the *slog.Logger the built Pool traces Debug-level events
// to (slot fill, check, recycle, close). Defaults to slog.Default().
func (b *Builder[R]) Logger(l *slog.Logger) *Builder[R] {
	b.logger = l
	return b
}

// Build validates the configuration and constructs a Pool backed by
// manager, pre-allocating maxsize Empty slots and filling the idle queue
// with them.
func (b *Builder[R]) Build(manager Manager[R]) (*Pool[R], error) {
	if b.maxSize <= 0 {
		return nil, ErrInvalidMaxSize
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := *b
	cfg.logger = logger

	p := &Pool[R]{
		manager: manager,
		cfg:     cfg,
		status:  newStatusTable(b.maxSize),
		idle:    newIdleQueue[R](b.maxSize),
		sem:     newAdmission(b.maxSize),
		birth:   time.Now(),
	}
	for idx := 0; idx < b.maxSize; idx++ {
		p.idle.push(newSlot(idx, p))
	}
	return p, nil
}
