// Package lock guards against overlapping scheduled runs. Two concurrent
// pipeline invocations could both select the same pending events and
// double-send them; a short-TTL Redis lock prevents that when the schedule
// cannot.
package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"reviewmonitor/internal/util"
)

type RunLock struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string
}

func New(rdb *redis.Client, key string, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RunLock{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		token: util.NewRunID(),
	}
}

// Acquire takes the lock with SET NX. Returns false when another run holds
// it. The TTL bounds lock leakage if the process dies mid-run.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	return l.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

// Release deletes the lock only if this run still owns it.
func (l *RunLock) Release(ctx context.Context) error {
	v, err := l.rdb.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if v != l.token {
		return nil // expired and re-acquired elsewhere; not ours to delete
	}
	return l.rdb.Del(ctx, l.key).Err()
}
