package mw

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
	"github.com/MrSnakeDoc/bookmarkrss/internal/utils"
)

// TierKey labels rejections caused by a request with no usable feed key.
const TierKey = "key"

const statsTimeout = 250 * time.Millisecond

type RateLimitConfig struct {
	Feed       *ratelimit.Limiter[domain.FeedKey]
	IP         *ratelimit.Limiter[string]
	Stats      ratelimit.StatsStore // optional
	TrustProxy bool                 // resolve the client IP from proxy headers when true
	Now        func() time.Time     // defaults to time.Now
	Logger     logger.Logger
}

type feedRequestKey struct{}

// FeedRequestFrom returns the feed request parsed by RateLimit.
func FeedRequestFrom(ctx context.Context) (domain.FeedRequest, bool) {
	req, ok := ctx.Value(feedRequestKey{}).(domain.FeedRequest)
	return req, ok
}

// RateLimit admits a feed request only if both its per-feed and its per-ip
// bucket have a token, checked in that order. A token taken from the feed
// bucket is not given back when the ip bucket rejects.
//
// Requests without a usable host/token pair are rejected with 429 as well,
// with a distinct message. Admitted requests carry the parsed FeedRequest in
// their context.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	keyRetry := strconv.Itoa(ratelimit.Decision{RetryAfter: cfg.Feed.Policy().Refill}.RetryAfterSeconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := cfg.Now()

			req, err := domain.ParseFeedRequest(r.URL.Query())
			if err != nil {
				cfg.Logger.Info("Rejected feed request without a usable key", logger.Error(err))
				cfg.record(r, ratelimit.StatsEvent{Tier: TierKey, Path: r.URL.Path, At: now})
				w.Header().Set("Retry-After", keyRetry)
				w.Header().Set("X-RateLimit-Tier", TierKey)
				http.Error(w, err.Error(), http.StatusTooManyRequests)
				return
			}

			ip := utils.ClientIP(r, cfg.TrustProxy)
			dec := ratelimit.Chain{cfg.Feed.Stage(req.Key()), cfg.IP.Stage(ip)}.Evaluate(now)

			ev := ratelimit.StatsEvent{Allowed: dec.Allowed, Path: r.URL.Path, At: now}
			if !dec.Allowed {
				ev.Tier = dec.Tier
			}
			cfg.record(r, ev)

			w.Header().Set("X-RateLimit-Tier", dec.Tier)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				cfg.Logger.Info("Rate limit exceeded",
					logger.String("tier", dec.Tier),
					logger.String("instance", req.Host),
					logger.String("remote_ip", ip),
					logger.Duration("retry_after", dec.RetryAfter))
				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfterSeconds()))
				http.Error(w, domain.ErrRateLimited.Error(), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), feedRequestKey{}, req)))
		})
	}
}

func (cfg RateLimitConfig) record(r *http.Request, ev ratelimit.StatsEvent) {
	if cfg.Stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), statsTimeout)
	defer cancel()
	if err := cfg.Stats.Record(ctx, ev); err != nil {
		cfg.Logger.Debug("Failed to record rate limit stats", logger.Error(err))
	}
}
