package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per identity in Redis.
// Key format: login:failures:<lowercased identity>
type LoginThrottle struct {
	client      *redis.Client
	maxFailures int64
	window      time.Duration
}

// NewLoginThrottle creates a LoginThrottle that blocks an identity after
// maxFailures failures within window.
func NewLoginThrottle(client *redis.Client, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Blocked reports whether identity has reached the failure limit.
func (t *LoginThrottle) Blocked(ctx context.Context, identity string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(identity)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the failure counter. The window starts at the
// first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identity string) error {
	key := t.key(identity)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identity string) error {
	return t.client.Del(ctx, t.key(identity)).Err()
}

func (t *LoginThrottle) key(identity string) string {
	return "login:failures:" + strings.ToLower(strings.TrimSpace(identity))
}
