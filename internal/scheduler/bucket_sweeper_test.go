package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
)

func TestBucketSweeper_Sweep(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	feed := ratelimit.NewLimiter(ratelimit.Policy{Name: "feed", Burst: 10, Refill: time.Minute, IdleTTL: 15 * time.Minute}, ratelimit.HashFeedKey)
	ip := ratelimit.NewLimiter(ratelimit.Policy{Name: "ip", Burst: 5, Refill: 2 * time.Second, IdleTTL: 15 * time.Minute}, ratelimit.HashString)

	// idle for 20 minutes and full again
	feed.Allow(domain.FeedRequest{Host: "a.example", Token: "t"}.Key(), t0)
	ip.Allow("10.0.0.1", t0)
	// recently active
	ip.Allow("10.0.0.2", t0.Add(19*time.Minute))

	s := NewBucketSweeper(map[string]Sweepable{"feed": feed, "ip": ip}, logger.NewNop(), time.Minute)
	s.now = func() time.Time { return t0.Add(20 * time.Minute) }

	if removed := s.Sweep(); removed != 2 {
		t.Errorf("Sweep() removed %d buckets, want 2", removed)
	}
	if feed.Len() != 0 {
		t.Errorf("feed family has %d buckets, want 0", feed.Len())
	}
	if ip.Len() != 1 {
		t.Errorf("ip family has %d buckets, want 1", ip.Len())
	}
}

type countingFamily struct{ sweeps atomic.Int32 }

func (c *countingFamily) Sweep(time.Time) int { c.sweeps.Add(1); return 0 }
func (c *countingFamily) Len() int            { return 0 }

func TestBucketSweeper_StartStop(t *testing.T) {
	fam := &countingFamily{}
	s := NewBucketSweeper(map[string]Sweepable{"x": fam}, logger.NewNop(), 10*time.Millisecond)

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for fam.sweeps.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if fam.sweeps.Load() < 2 {
		t.Fatalf("sweeper ran %d times, want at least 2", fam.sweeps.Load())
	}

	after := fam.sweeps.Load()
	time.Sleep(50 * time.Millisecond)
	if fam.sweeps.Load() != after {
		t.Error("sweeper kept running after Stop")
	}
}

func TestBucketSweeper_StopsOnContextCancel(t *testing.T) {
	s := NewBucketSweeper(nil, logger.NewNop(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit on context cancellation")
	}
}

func TestNewBucketSweeperDefaultInterval(t *testing.T) {
	if s := NewBucketSweeper(nil, logger.NewNop(), 0); s.interval != DefaultSweepInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultSweepInterval)
	}
}
