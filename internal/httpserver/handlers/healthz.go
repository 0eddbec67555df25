package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
)

type healthzResponse struct {
	Status        string              `json:"status"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Version       string              `json:"version,omitempty"`
	Commit        string              `json:"commit,omitempty"`
	BuildDate     string              `json:"build_date,omitempty"`
	GoVersion     string              `json:"go_version,omitempty"`
	Buckets       map[string]int      `json:"buckets,omitempty"`
	Decisions     *ratelimit.Counters `json:"decisions,omitempty"`
}

// Healthz reports liveness, build information and rate limiter activity.
// It never fails on a stats backend error; counters are simply omitted.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			Buckets:       bucketCounts(d),
			Decisions:     decisionTotals(r.Context(), d),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func bucketCounts(d deps.Deps) map[string]int {
	out := make(map[string]int, 2)
	if d.FeedLimiter != nil {
		out[d.FeedLimiter.Policy().Name] = d.FeedLimiter.Len()
	}
	if d.IPLimiter != nil {
		out[d.IPLimiter.Policy().Name] = d.IPLimiter.Len()
	}
	return out
}

func decisionTotals(ctx context.Context, d deps.Deps) *ratelimit.Counters {
	reader, ok := d.Stats.(ratelimit.StatsReader)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	c, err := reader.Totals(ctx)
	if err != nil {
		d.Logger.Debug("Failed to read rate limit stats", logger.Error(err))
		return nil
	}
	return &c
}
