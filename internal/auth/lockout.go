package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout counts failed logins per email and locks the account once the
// threshold is reached.
type Lockout struct {
	redis       *redis.Client
	maxFailures int64
	lockFor     time.Duration
}

func NewLockout(client *redis.Client, maxFailures int, lockFor time.Duration) *Lockout {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	return &Lockout{redis: client, maxFailures: int64(maxFailures), lockFor: lockFor}
}

// Locked reports whether email is currently locked.
func (l *Lockout) Locked(ctx context.Context, email string) (bool, error) {
	n, err := l.redis.Exists(ctx, lockKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check lock: %w", err)
	}
	return n > 0, nil
}

// RecordFailure increments the failure count and reports whether the account
// is now locked.
func (l *Lockout) RecordFailure(ctx context.Context, email string) (bool, error) {
	key := failureKey(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("auth: record failure: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.lockFor).Err(); err != nil {
			return false, fmt.Errorf("auth: expire failures: %w", err)
		}
	}
	if count < l.maxFailures {
		return false, nil
	}
	pipe := l.redis.TxPipeline()
	pipe.Set(ctx, lockKey(email), count, l.lockFor)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("auth: lock account: %w", err)
	}
	return true, nil
}

// Reset clears failures after a successful login.
func (l *Lockout) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, failureKey(email)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: reset failures: %w", err)
	}
	return nil
}

func failureKey(email string) string { return "auth:failures:" + normalizeEmail(email) }
func lockKey(email string) string    { return "auth:lock:" + normalizeEmail(email) }
