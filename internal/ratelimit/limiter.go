// Package ratelimit implements a sliding-window request limiter on Redis.
//
// Each identifier owns one key holding a JSON list of request timestamps in
// unix milliseconds. Check is a read-modify-write and is not atomic:
// concurrent callers can both be admitted near the limit. Throttling is
// advisory, so that race is accepted.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxRequests = 30
	DefaultWindow      = 60 * time.Second
	keyPrefix          = "ratelimit:"
)

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter checks identifiers against a sliding window.
type Limiter struct {
	redis *redis.Client
	now   func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(client *redis.Client, opts ...Option) *Limiter {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	l := &Limiter{redis: client, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a request for identifier when it fits in the window.
// maxRequests <= 0 or window <= 0 fall back to 30 per 60s.
func (l *Limiter) Check(ctx context.Context, identifier string, maxRequests int, window time.Duration) (Result, error) {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	now := l.now()
	nowMS := now.UnixMilli()
	cutoff := nowMS - window.Milliseconds()
	key := keyPrefix + identifier

	stamps, err := l.load(ctx, key)
	if err != nil {
		return Result{}, err
	}

	live := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			live = append(live, ts)
		}
	}

	if len(live) >= maxRequests {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   time.UnixMilli(live[0] + window.Milliseconds()),
		}, nil
	}

	live = append(live, nowMS)
	data, err := json.Marshal(live)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: marshal window: %w", err)
	}
	if err := l.redis.Set(ctx, key, data, window).Err(); err != nil {
		return Result{}, fmt.Errorf("ratelimit: persist window: %w", err)
	}

	return Result{
		Allowed:   true,
		Remaining: maxRequests - len(live),
		ResetAt:   time.UnixMilli(live[0] + window.Milliseconds()),
	}, nil
}

// Reset drops the window for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, keyPrefix+identifier).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, key string) ([]int64, error) {
	data, err := l.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("ratelimit: load window: %w", err)
	}
	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		// A corrupt window is treated as empty and overwritten.
		return nil, nil
	}
	return stamps, nil
}
