package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/feed"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/mw"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
	"github.com/MrSnakeDoc/bookmarkrss/internal/rss"
)

// Feed serves GET /feed. The rate limiter in front of it has already parsed
// and admitted the request.
func Feed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := mw.FeedRequestFrom(r.Context())
		if !ok {
			var err error
			if req, err = domain.ParseFeedRequest(r.URL.Query()); err != nil {
				d.Logger.Info("Feed request rejected", logger.Error(err))
				writeError(w, d, err)
				return
			}
		}

		body, err := d.Feeds.Build(r.Context(), req, feed.Options{
			GatewayHost: r.Host,
			Client:      r.URL.Query().Get("client"),
		})
		if err != nil {
			d.Logger.Error("Feed request failed",
				logger.String("instance", req.Host),
				logger.Error(err))
			writeError(w, d, err)
			return
		}

		w.Header().Set("Content-Type", rss.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Header().Set("Cache-Control", "private, no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, body); err != nil {
			d.Logger.Debug("Failed to write feed", logger.Error(err))
		}
	}
}

// ErrorResponse maps an error kind to its status code and one-line body.
func ErrorResponse(err error) (int, string) {
	var statusErr *domain.UpstreamStatusError
	switch {
	case errors.Is(err, domain.ErrKeyExtraction):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.ErrRateLimited.Error()
	case errors.As(err, &statusErr):
		return http.StatusInternalServerError, statusErr.Error()
	case errors.Is(err, domain.ErrUpstreamTransport):
		return http.StatusInternalServerError, domain.ErrUpstreamTransport.Error()
	case errors.Is(err, domain.ErrUpstreamTooLarge):
		return http.StatusInternalServerError, domain.ErrUpstreamTooLarge.Error()
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return http.StatusInternalServerError, domain.ErrUpstreamMalformed.Error()
	case errors.Is(err, domain.ErrTimestampInvalid):
		return http.StatusInternalServerError, domain.ErrTimestampInvalid.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// writeError answers with the mapped status. Every 429 carries Retry-After,
// one feed refill period.
func writeError(w http.ResponseWriter, d deps.Deps, err error) {
	status, msg := ErrorResponse(err)
	if status == http.StatusTooManyRequests {
		refill := time.Minute
		if d.FeedLimiter != nil {
			refill = d.FeedLimiter.Policy().Refill
		}
		w.Header().Set("Retry-After", strconv.Itoa(ratelimit.Decision{RetryAfter: refill}.RetryAfterSeconds()))
	}
	http.Error(w, msg, status)
}
