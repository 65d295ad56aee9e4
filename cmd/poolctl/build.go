package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"poolkit/pkg/config"
	"poolkit/pool"
	"poolkit/redismanager"
)

// namedPool pairs a built pool with the endpoint name it was built from,
// for labeling State() output.
type namedPool struct {
	name string
	pool *pool.Pool[*redis.Client]
}

// buildPools constructs one pool.Pool per configured endpoint, in the
// shape the teacher's main.go builds one nntp.ClientPool per provider.
func buildPools(cfg *config.Config) ([]namedPool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no pool endpoints configured (set endpoints in a config file or POOL_N_ADDR env vars)")
	}

	pools := make([]namedPool, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		mgr := redismanager.New(redismanager.Options{
			Addr:     ep.Addr,
			Password: ep.Password,
			DB:       ep.DB,
		})

		b := pool.NewBuilder[*redis.Client]()
		if ep.MaxSize > 0 {
			b = b.MaxSize(ep.MaxSize)
		}
		if ep.Timeout > 0 {
			b = b.Timeout(time.Duration(ep.Timeout) * time.Second)
		} else {
			b = b.NoTimeout()
		}
		if ep.Check < 0 {
			b = b.NoCheck()
		} else {
			b = b.Check(time.Duration(ep.Check) * time.Second)
		}

		p, err := b.Build(mgr)
		if err != nil {
			for _, built := range pools {
				built.pool.Close()
			}
			return nil, fmt.Errorf("build pool %q: %w", ep.Name, err)
		}
		pools = append(pools, namedPool{name: ep.Name, pool: p})
	}
	return pools, nil
}

func closeAll(pools []namedPool) {
	for _, p := range pools {
		p.pool.Close()
	}
}
