// Package ratelimit holds the token-bucket families used to protect the gateway
// and the upstream instances, and the ordered chain that composes them.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
)

const shardCount = 32

// Policy describes one bucket family.
type Policy struct {
	Name    string        // tier name, ex: "feed", "ip"
	Burst   int           // bucket capacity
	Refill  time.Duration // one token is added every Refill
	IdleTTL time.Duration // minimum idle time before a full bucket may be swept
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Tier       string        // tier that produced the decision
	Limit      int           // bucket capacity of that tier
	Remaining  int           // whole tokens left after the check
	RetryAfter time.Duration // zero when allowed
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, with a minimum of 1.
func (d Decision) RetryAfterSeconds() int {
	sec := int(math.Ceil(d.RetryAfter.Seconds()))
	if sec < 1 {
		sec = 1
	}
	return sec
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type shard[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// Limiter is a family of token buckets keyed by K.
//
// Keys are spread over fixed shards; a shard lock is only held for the map
// lookup. The read-modify-write of a bucket is serialized by the bucket's own
// rate.Limiter, so concurrent checks on the same key never both take the last
// token, while checks on unrelated keys do not contend.
type Limiter[K comparable] struct {
	policy Policy
	limit  rate.Limit
	hash   func(K) uint64
	shards [shardCount]shard[K]
}

// NewLimiter builds a bucket family. hash must be deterministic for equal keys.
func NewLimiter[K comparable](p Policy, hash func(K) uint64) *Limiter[K] {
	if p.Burst < 1 {
		p.Burst = 1
	}
	if p.Refill <= 0 {
		p.Refill = time.Second
	}
	if p.IdleTTL <= 0 {
		p.IdleTTL = 15 * time.Minute
	}

	l := &Limiter[K]{
		policy: p,
		limit:  rate.Every(p.Refill),
		hash:   hash,
	}
	for i := range l.shards {
		l.shards[i].entries = make(map[K]*entry, 64)
	}
	return l
}

// Policy returns the family's (normalized) policy.
func (l *Limiter[K]) Policy() Policy { return l.policy }

func (l *Limiter[K]) shardFor(key K) *shard[K] {
	return &l.shards[l.hash(key)%shardCount]
}

func (l *Limiter[K]) bucket(key K, now time.Time) *rate.Limiter {
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		e = &entry{lim: rate.NewLimiter(l.limit, l.policy.Burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// Allow takes one token from key's bucket at instant now.
// On rejection the decision carries the time until one token is available,
// (1 - tokens) / rate.
func (l *Limiter[K]) Allow(key K, now time.Time) Decision {
	lim := l.bucket(key, now)

	dec := Decision{Tier: l.policy.Name, Limit: l.policy.Burst}
	if lim.AllowN(now, 1) {
		dec.Allowed = true
		dec.Remaining = wholeTokens(lim.TokensAt(now))
		return dec
	}

	tokens := lim.TokensAt(now)
	needed := 1 - tokens
	if needed < 0 {
		needed = 0
	}
	// rate is one token per Refill, so needed/rate == needed*Refill.
	dec.RetryAfter = time.Duration(needed * float64(l.policy.Refill))
	dec.Remaining = wholeTokens(tokens)
	return dec
}

// Stage binds key to this family so it can take part in a Chain.
func (l *Limiter[K]) Stage(key K) Stage {
	return Stage{
		Tier:  l.policy.Name,
		Allow: func(now time.Time) Decision { return l.Allow(key, now) },
	}
}

// Sweep drops buckets idle for at least IdleTTL that have refilled to full
// capacity. Such a bucket is indistinguishable from a fresh one, so sweeping
// never changes an admission decision. It returns the number removed.
func (l *Limiter[K]) Sweep(now time.Time) int {
	full := float64(l.policy.Burst)
	removed := 0

	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) < l.policy.IdleTTL {
				continue
			}
			if e.lim.TokensAt(now) < full {
				continue
			}
			delete(s.entries, k)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of live buckets.
func (l *Limiter[K]) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

func wholeTokens(tokens float64) int {
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// HashString hashes string keys (client addresses).
func HashString(s string) uint64 { return xxhash.Sum64String(s) }

// HashFeedKey picks the shard of a feed key from its digest.
func HashFeedKey(k domain.FeedKey) uint64 { return xxhash.Sum64(k.Bytes()) }
