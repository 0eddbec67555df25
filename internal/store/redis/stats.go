// Package redis stores rate-limit counters in Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
)

const (
	// DefaultStatsTTL is how long per-minute and per-tier counters live.
	DefaultStatsTTL = 24 * time.Hour

	fieldAllowed = "allowed"
	fieldDenied  = "denied"
)

// StatsStore implements ratelimit.StatsStore with HINCRBY counters.
// The total hash is cumulative and never expires.
type StatsStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var (
	_ ratelimit.StatsStore  = (*StatsStore)(nil)
	_ ratelimit.StatsReader = (*StatsStore)(nil)
)

// NewStatsStore creates a stats store. An empty prefix or non-positive ttl
// selects the defaults.
func NewStatsStore(client *redis.Client, prefix string, ttl time.Duration) *StatsStore {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsStore{
		client: client,
		prefix: normalizePrefix(prefix),
		ttl:    ttl,
	}
}

// Record increments the counters for ev in one pipeline.
func (s *StatsStore) Record(ctx context.Context, ev ratelimit.StatsEvent) error {
	if s == nil || s.client == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := fieldDenied
	if ev.Allowed {
		field = fieldAllowed
	}

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, TotalKey(s.prefix), field, 1)

	minuteKey := MinuteKey(s.prefix, at)
	pipe.HIncrBy(ctx, minuteKey, field, 1)
	pipe.Expire(ctx, minuteKey, s.ttl)

	if ev.Tier != "" {
		tierKey := TierKey(s.prefix, ev.Tier)
		pipe.HIncrBy(ctx, tierKey, field, 1)
		pipe.Expire(ctx, tierKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit stats: %w", err)
	}
	return nil
}

// Totals reads the cumulative counters.
func (s *StatsStore) Totals(ctx context.Context) (ratelimit.Counters, error) {
	vals, err := s.client.HGetAll(ctx, TotalKey(s.prefix)).Result()
	if err != nil {
		return ratelimit.Counters{}, fmt.Errorf("failed to read rate limit stats: %w", err)
	}
	return countersFrom(vals), nil
}

func countersFrom(vals map[string]string) ratelimit.Counters {
	var c ratelimit.Counters
	c.Allowed, _ = strconv.ParseInt(vals[fieldAllowed], 10, 64)
	c.Denied, _ = strconv.ParseInt(vals[fieldDenied], 10, 64)
	return c
}

// Ping checks the connection, for readiness probes.
func (s *StatsStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
