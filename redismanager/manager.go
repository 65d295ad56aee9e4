// Package redismanager is an illustrative pool.Manager[*redis.Client]: it
// demonstrates the Manager contract end-to-end and gives the pool's
// staleness check a real failure mode to probe (a connection whose server
// went away fails PING). It is glue, not part of the pool's core design.
package redismanager

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"poolkit/pool"
)

// Options configures the resources this Manager builds.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Manager implements pool.Manager[*redis.Client] against a single Redis
// endpoint.
type Manager struct {
	opts Options
}

// New returns a Manager dialing the given Redis endpoint.
func New(opts Options) *Manager {
	return &Manager{opts: opts}
}

var _ pool.Manager[*redis.Client] = (*Manager)(nil)

// Connect dials a fresh client and confirms it with PING.
func (m *Manager) Connect(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     m.opts.Addr,
		Password: m.opts.Password,
		DB:       m.opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redismanager: connect %s: %w", m.opts.Addr, err)
	}
	return client, nil
}

// Check re-pings the client to confirm it is still reachable.
func (m *Manager) Check(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redismanager: check %s: %w", m.opts.Addr, err)
	}
	return nil
}
