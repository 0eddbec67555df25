package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/mw"
)

func init() { Register("feed", registerFeed) }

func registerFeed(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Feed:       d.FeedLimiter,
		IP:         d.IPLimiter,
		Stats:      d.Stats,
		TrustProxy: d.TrustProxy,
		Now:        d.TimeNow,
		Logger:     d.Logger,
	})
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), limit).Get("/feed", handlers.Feed(d))
}
