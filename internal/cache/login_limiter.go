package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisLoginLimiter counts failed logins per identifier in a fixed window.
type RedisLoginLimiter struct {
	client      *redisv9.Client
	maxFailures int
	window      time.Duration
}

func NewRedisLoginLimiter(client *redisv9.Client, maxFailures int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, maxFailures: maxFailures, window: window}
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, id string) (bool, error) {
	if l.maxFailures <= 0 {
		return true, nil
	}
	count, err := l.client.Get(ctx, limiterKey(id)).Int()
	if err == redisv9.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get login failures failed: %w", err)
	}
	return count < l.maxFailures, nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, id string) error {
	if l.maxFailures <= 0 {
		return nil
	}
	key := limiterKey(id)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record login failure failed: %w", err)
	}
	return nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, id string) error {
	if err := l.client.Del(ctx, limiterKey(id)).Err(); err != nil {
		return fmt.Errorf("redis reset login failures failed: %w", err)
	}
	return nil
}

func limiterKey(id string) string {
	return fmt.Sprintf("mentor:login:failures:%s", strings.ToLower(id))
}

type failureWindow struct {
	count     int
	expiresAt time.Time
}

// MemoryLoginLimiter is the single-process variant of RedisLoginLimiter.
type MemoryLoginLimiter struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	now         func() time.Time
	failures    map[string]failureWindow
}

func NewMemoryLoginLimiter(maxFailures int, window time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		maxFailures: maxFailures,
		window:      window,
		now:         time.Now,
		failures:    make(map[string]failureWindow),
	}
}

func (l *MemoryLoginLimiter) Allow(ctx context.Context, id string) (bool, error) {
	if l.maxFailures <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.current(strings.ToLower(id))
	return !ok || w.count < l.maxFailures, nil
}

func (l *MemoryLoginLimiter) RecordFailure(ctx context.Context, id string) error {
	if l.maxFailures <= 0 {
		return nil
	}
	key := strings.ToLower(id)
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.current(key)
	if !ok {
		w = failureWindow{expiresAt: l.now().Add(l.window)}
	}
	w.count++
	l.failures[key] = w
	return nil
}

func (l *MemoryLoginLimiter) Reset(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, strings.ToLower(id))
	return nil
}

func (l *MemoryLoginLimiter) current(key string) (failureWindow, bool) {
	w, ok := l.failures[key]
	if ok && !l.now().Before(w.expiresAt) {
		delete(l.failures, key)
		return failureWindow{}, false
	}
	return w, ok
}
