package ratelimit

import (
	"context"
	"sync"
	"time"
)

// StatsEvent is one admission decision. It never carries the partition key:
// feed keys embed bearer tokens.
type StatsEvent struct {
	Tier    string // rejecting tier, or "" when admitted
	Allowed bool
	Path    string
	At      time.Time
}

// StatsStore records decisions. Implementations are best-effort: callers
// ignore errors and a failing store never affects a request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// StatsReader exposes cumulative counters, for the health endpoint.
type StatsReader interface {
	Totals(ctx context.Context) (Counters, error)
}

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// MemoryStatsStore keeps counters in process. It is used when Redis is not
// configured, and by tests.
type MemoryStatsStore struct {
	mu     sync.Mutex
	total  Counters
	byTier map[string]int64
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{byTier: make(map[string]int64)}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Allowed {
		s.total.Allowed++
		return nil
	}
	s.total.Denied++
	s.byTier[ev.Tier]++
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Totals implements StatsReader.
func (s *MemoryStatsStore) Totals(context.Context) (Counters, error) {
	return s.Total(), nil
}

// DeniedByTier returns a copy of the rejection counters per tier.
func (s *MemoryStatsStore) DeniedByTier() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byTier))
	for k, v := range s.byTier {
		out[k] = v
	}
	return out
}
