package redisclient

import (
	"context"
	"time"

	"enrollment-portal/internal/util"

	"go.uber.org/zap"
)

const (
	defaultRetryInterval = 50 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// MutationLocker serializes mutations on one entity across every portal
// instance sharing the redis. The TTL bounds how long a crashed holder
// blocks others. Locks are not renewed, so the TTL must exceed the backend
// client timeout; config.Load enforces that.
type MutationLocker struct {
	client *Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewMutationLocker creates a locker whose locks expire after ttl
func NewMutationLocker(client *Client, ttl time.Duration) *MutationLocker {
	return &MutationLocker{
		client: client,
		ttl:    ttl,
		retry:  defaultRetryInterval,
		logger: util.GetLogger(),
	}
}

// Acquire polls until the lock for key is taken or ctx is done
func (l *MutationLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		token, ok, err := l.client.TryLock(ctx, key, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *MutationLocker) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := l.client.ReleaseLock(ctx, key, token); err != nil {
			l.logger.Error("Failed to release mutation lock",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}
