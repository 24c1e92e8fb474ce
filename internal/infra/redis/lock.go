package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain"
)

// Locker hands out short leases so only one replica runs a scheduled job.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

var _ Locker = (*RedisLocker)(nil)

type RedisLocker struct {
	cli      RedisClient
	attempts int
	backoff  time.Duration
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c, attempts: 5, backoff: 50 * time.Millisecond}
}

// TryLock returns domain.ErrLockNotAcquired when another holder owns key
// after all attempts.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	var lastErr error
	for i := 0; i < l.attempts; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		if err == nil && ok {
			return token, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", domain.ErrLockNotAcquired
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.CompareAndDelete(ctx, key, token)
	return err
}
