package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
)

const (
	// DefaultStatsQueue is the number of pending events before new ones are dropped.
	DefaultStatsQueue = 1024
	// DefaultStatsWriteTimeout bounds one write to the backing store.
	DefaultStatsWriteTimeout = 250 * time.Millisecond
)

// StatsDrain moves stats writes off the request path. Record only enqueues;
// a single worker forwards events to the backing store. When the queue is
// full the event is dropped and counted.
type StatsDrain struct {
	store   ratelimit.StatsStore
	logger  logger.Logger
	timeout time.Duration

	events  chan ratelimit.StatsEvent
	dropped atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

var (
	_ ratelimit.StatsStore  = (*StatsDrain)(nil)
	_ ratelimit.StatsReader = (*StatsDrain)(nil)
)

// NewStatsDrain wraps store. A non-positive size selects DefaultStatsQueue.
func NewStatsDrain(store ratelimit.StatsStore, log logger.Logger, size int) *StatsDrain {
	if size <= 0 {
		size = DefaultStatsQueue
	}
	return &StatsDrain{
		store:   store,
		logger:  log,
		timeout: DefaultStatsWriteTimeout,
		events:  make(chan ratelimit.StatsEvent, size),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Record enqueues ev without blocking. It never fails.
func (s *StatsDrain) Record(_ context.Context, ev ratelimit.StatsEvent) error {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of events lost to a full queue.
func (s *StatsDrain) Dropped() int64 { return s.dropped.Load() }

// Totals reads through to the backing store when it can report counters.
func (s *StatsDrain) Totals(ctx context.Context) (ratelimit.Counters, error) {
	reader, ok := s.store.(ratelimit.StatsReader)
	if !ok {
		return ratelimit.Counters{}, nil
	}
	return reader.Totals(ctx)
}

// Start launches the worker. It returns immediately.
func (s *StatsDrain) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case ev := <-s.events:
				s.write(ev)
			case <-s.stopCh:
				s.flush()
				return
			case <-ctx.Done():
				s.flush()
				return
			}
		}
	}()
}

// Stop ends the worker after writing what is already queued, and waits for it.
// Safe to call more than once, but only after Start.
func (s *StatsDrain) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

func (s *StatsDrain) flush() {
	for {
		select {
		case ev := <-s.events:
			s.write(ev)
		default:
			if n := s.dropped.Load(); n > 0 {
				s.logger.Warn("Rate limit stats dropped", logger.Int64("events", n))
			}
			return
		}
	}
}

func (s *StatsDrain) write(ev ratelimit.StatsEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Record(ctx, ev); err != nil {
		s.logger.Debug("Failed to record rate limit stats", logger.Error(err))
	}
}
