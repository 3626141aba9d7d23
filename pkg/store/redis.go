package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

// Redis is a holiday store shared between server instances.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
	prefix string
	ttl    time.Duration
}

// NewRedis wraps rdb. An empty prefix defaults to "tzmeet:holidays".
func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "tzmeet:holidays"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *Redis) key(countryCode string, year int) string {
	return r.prefix + ":" + Key(countryCode, year)
}

// Get returns the stored records of a pair.
func (r *Redis) Get(ctx context.Context, countryCode string, year int) ([]holiday.Record, bool, error) {
	data, err := r.rdb.Get(ctx, r.key(countryCode, year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var recs []holiday.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, false, fmt.Errorf("decoding stored holidays: %w", err)
	}
	return recs, true, nil
}

// Set stores the records of a pair with the store TTL.
func (r *Redis) Set(ctx context.Context, countryCode string, year int, records []holiday.Record) error {
	if records == nil {
		records = []holiday.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding holidays: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(countryCode, year), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	r.logger.Debug("holiday store set", "backend", "redis", "country", countryCode, "year", year, "count", len(records))
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
