package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// limiter decides whether a client may make another request.
type limiter interface {
	allow(ctx context.Context, key string) (bool, error)
}

// memoryLimiter is a per-process sliding window limiter.
type memoryLimiter struct {
	requests  map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
	limit     int
	window    time.Duration
	mu        sync.Mutex
}

func newMemoryLimiter(limit int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
		limit:    limit,
		window:   window,
	}
}

func (rl *memoryLimiter) allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false, nil
	}

	rl.requests[key] = append(valid, now)
	return true, nil
}

// sweep drops clients with no request after cutoff.
func (rl *memoryLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.requests, key)
		}
	}
}

// redisLimiter is a fixed-window limiter shared by every server instance.
type redisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func newRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *redisLimiter {
	return &redisLimiter{rdb: rdb, prefix: "tzmeet:rl", limit: limit, window: window}
}

func (rl *redisLimiter) allow(ctx context.Context, key string) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		if count, err = strconv.ParseInt(v, 10, 64); err != nil {
			return false, fmt.Errorf("rate limit script result %q: %w", v, err)
		}
	default:
		return false, fmt.Errorf("unexpected rate limit script result type %T", res)
	}
	return count <= int64(rl.limit), nil
}

// clientIP returns the address rate limits are keyed on. X-Forwarded-For is
// read only when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
