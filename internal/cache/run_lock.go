package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

const runLockPrefix = "lock:job"

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context)

// RunLocker serializes job bodies across scheduler processes.
type RunLocker interface {
	// Acquire returns ok=false when another process holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

type redisRunLocker struct {
	locker *redislock.Client
}

type noopRunLocker struct{}

// NewRunLocker returns a locker that always succeeds for a nil client.
func NewRunLocker(c *Client) RunLocker {
	if c == nil {
		return &noopRunLocker{}
	}
	return &redisRunLocker{locker: redislock.New(c.rdb)}
}

func NewNoopRunLocker() RunLocker {
	return &noopRunLocker{}
}

// RunLockKey scopes a lock to one job in one region.
func RunLockKey(job string, regionID int64) string {
	return fmt.Sprintf("%s:%s:%d", runLockPrefix, job, regionID)
}

func (l *redisRunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	lock, err := l.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	release := func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("failed to release run lock")
		}
	}
	return release, true, nil
}

func (n *noopRunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	return func(context.Context) {}, true, nil
}
