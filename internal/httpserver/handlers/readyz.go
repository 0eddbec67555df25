package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
)

const pingTimeout = 2 * time.Second

type componentStatus struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Buckets *int   `json:"buckets,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports readiness. Stats storage is optional: a Redis outage
// degrades the gateway but never makes it unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"feed_limiter": limiterStatus(d.FeedLimiter != nil, func() int { return d.FeedLimiter.Len() }),
			"ip_limiter":   limiterStatus(d.IPLimiter != nil, func() int { return d.IPLimiter.Len() }),
			"stats":        checkStats(r.Context(), d),
		}

		resp := readyzResponse{
			Ready:      components["feed_limiter"].OK && components["ip_limiter"].OK && d.Feeds != nil,
			Mode:       determineMode(components),
			Components: components,
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if !resp.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func limiterStatus(ok bool, size func() int) componentStatus {
	if !ok {
		return componentStatus{OK: false, Error: "not initialized"}
	}
	n := size()
	return componentStatus{OK: true, Buckets: &n}
}

func checkStats(ctx context.Context, d deps.Deps) componentStatus {
	if d.StatsBackend == nil {
		return componentStatus{OK: true, Mode: "memory"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.StatsBackend.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "redis",
			Impact: "stats-not-recorded",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "redis"}
}

func determineMode(components map[string]componentStatus) string {
	for _, name := range []string{"feed_limiter", "ip_limiter"} {
		if !components[name].OK {
			return "critical"
		}
	}
	if !components["stats"].OK {
		return "degraded"
	}
	return "optimal"
}
