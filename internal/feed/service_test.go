package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/rss"
)

type fakeFetcher struct {
	body  string
	err   error
	calls int
	gotUA string
}

func (f *fakeFetcher) FetchBookmarks(_ context.Context, _ domain.FeedRequest, gatewayHost string) ([]byte, error) {
	f.calls++
	f.gotUA = gatewayHost
	return []byte(f.body), f.err
}

var testReq = domain.FeedRequest{Host: "m.example", Token: "t"}

func TestServiceBuild(t *testing.T) {
	f := &fakeFetcher{body: `[{"id":"1","url":"https://m.example/1","created_at":"2023-01-01T00:00:00Z","content":"hi","account":{"username":"a","acct":"a"}}]`}
	svc := NewService(f, rss.DefaultClients(), nil)

	out, err := svc.Build(context.Background(), testReq, Options{GatewayHost: "rss.example", Client: "phanpy"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if f.gotUA != "rss.example" {
		t.Errorf("gateway host passed to fetcher = %q", f.gotUA)
	}
	if !strings.Contains(out, `<link><![CDATA[https://m.example]]></link>`) {
		t.Error("channel link not rendered for the request host")
	}
	if !strings.Contains(out, "Open in Phanpy") {
		t.Error("open-in link missing")
	}
}

func TestServiceBuildUnknownClientIgnored(t *testing.T) {
	f := &fakeFetcher{body: `[{"id":"1","url":"https://m.example/1","created_at":"2023-01-01T00:00:00Z","content":"hi"}]`}
	svc := NewService(f, rss.DefaultClients(), nil)

	for _, client := range []string{"", "none", "nope"} {
		out, err := svc.Build(context.Background(), testReq, Options{Client: client})
		if err != nil {
			t.Fatalf("Build(client=%q) error = %v", client, err)
		}
		if strings.Contains(out, "Open in") {
			t.Errorf("Build(client=%q) rendered an open-in link", client)
		}
	}
}

func TestServiceBuildShortCircuits(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		want    error
	}{
		{"fetch fails", &fakeFetcher{err: domain.ErrUpstreamTooLarge}, domain.ErrUpstreamTooLarge},
		{"status fails", &fakeFetcher{err: &domain.UpstreamStatusError{Status: 503}}, domain.ErrUpstreamTransport},
		{"decode fails", &fakeFetcher{body: `{"error":"x"}`}, domain.ErrUpstreamMalformed},
		{"render fails", &fakeFetcher{body: `[{"url":"u","created_at":"not-a-date","content":""}]`}, domain.ErrTimestampInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.fetcher, rss.DefaultClients(), nil)
			out, err := svc.Build(context.Background(), testReq, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
			if out != "" {
				t.Errorf("Build() returned output on failure: %q", out)
			}
			if tt.fetcher.calls != 1 {
				t.Errorf("fetcher called %d times, want 1", tt.fetcher.calls)
			}
		})
	}
}
