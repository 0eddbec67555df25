// Package feed runs the per-request pipeline: fetch the bookmark list, decode
// it, render it. Each step short-circuits on failure.
package feed

import (
	"context"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/mastodon"
	"github.com/MrSnakeDoc/bookmarkrss/internal/rss"
)

// Fetcher downloads the raw bookmark list for a feed.
type Fetcher interface {
	FetchBookmarks(ctx context.Context, req domain.FeedRequest, gatewayHost string) ([]byte, error)
}

// Service builds feeds. It holds no per-request state.
type Service struct {
	fetcher Fetcher
	clients *rss.ClientTable
	log     logger.Logger
}

func NewService(fetcher Fetcher, clients *rss.ClientTable, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{fetcher: fetcher, clients: clients, log: log}
}

// Options are the per-request knobs that do not identify the feed.
type Options struct {
	GatewayHost string // inbound Host header, for the upstream User-Agent
	Client      string // optional "Open in" client name
}

// Build returns the rendered RSS document for req.
func (s *Service) Build(ctx context.Context, req domain.FeedRequest, opts Options) (string, error) {
	body, err := s.fetcher.FetchBookmarks(ctx, req, opts.GatewayHost)
	if err != nil {
		return "", err
	}

	bookmarks, err := mastodon.DecodeBookmarks(body)
	if err != nil {
		return "", err
	}

	return rss.Render(req.Host, bookmarks, rss.Options{Client: s.client(opts.Client)})
}

func (s *Service) client(name string) *rss.Client {
	if name == "" || name == "none" {
		return nil
	}
	c := s.clients.Lookup(name)
	if c == nil {
		s.log.Warn("Unknown open-in client ignored", logger.String("client", name))
	}
	return c
}
