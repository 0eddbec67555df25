// Package scheduler runs the gateway's periodic background jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweepable is a bucket family that can drop its idle buckets.
type Sweepable interface {
	Sweep(now time.Time) int
	Len() int
}

// BucketSweeper periodically sweeps rate-limit bucket families so memory stays
// proportional to recently active keys.
type BucketSweeper struct {
	families map[string]Sweepable
	logger   logger.Logger
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewBucketSweeper creates a sweeper over the named families.
func NewBucketSweeper(families map[string]Sweepable, log logger.Logger, interval time.Duration) *BucketSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &BucketSweeper{
		families: families,
		logger:   log,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *BucketSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call more than once,
// but only after Start.
func (s *BucketSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// Sweep runs one pass over every family and returns the buckets removed.
func (s *BucketSweeper) Sweep() int {
	now := s.now()
	total := 0

	for name, fam := range s.families {
		removed := fam.Sweep(now)
		total += removed
		if removed > 0 {
			s.logger.Debug("Swept idle rate limit buckets",
				logger.String("tier", name),
				logger.Int("removed", removed),
				logger.Int("live", fam.Len()))
		}
	}
	return total
}
