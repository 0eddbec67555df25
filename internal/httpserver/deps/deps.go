package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/feed"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
)

// FeedBuilder renders the RSS document for one feed request.
type FeedBuilder interface {
	Build(ctx context.Context, req domain.FeedRequest, opts feed.Options) (string, error)
}

// Pinger is an optional backing service probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the feed and landing page
	AllowedCIDRS []string         // IPs allowed to access healthz/readyz endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	Feeds        FeedBuilder                        // fetch -> decode -> render pipeline
	FeedLimiter  *ratelimit.Limiter[domain.FeedKey] // per-feed tier
	IPLimiter    *ratelimit.Limiter[string]         // per-ip tier
	Stats        ratelimit.StatsStore               // best-effort decision counters
	StatsBackend Pinger                             // nil when stats are kept in memory
}

// Now returns d.TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
