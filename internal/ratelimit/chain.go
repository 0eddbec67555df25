package ratelimit

import "time"

// Stage is one admission check bound to its key.
type Stage struct {
	Tier  string
	Allow func(now time.Time) Decision
}

// Chain evaluates stages in order and stops at the first rejection.
//
// The stages are independent buckets, not one joint admission: a token taken
// by an earlier stage is not refunded when a later stage rejects. Under bursts
// this slightly over-charges the earlier tier.
type Chain []Stage

// Evaluate runs the chain at instant now. The returned decision is the
// rejecting stage's, or the last stage's when every stage admits.
func (c Chain) Evaluate(now time.Time) Decision {
	last := Decision{Allowed: true}
	for _, s := range c {
		d := s.Allow(now)
		if !d.Allowed {
			return d
		}
		last = d
	}
	return last
}
