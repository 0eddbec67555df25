package domain

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestParseFeedRequest(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantHost  string
		wantError bool
	}{
		{
			name:     "valid request",
			query:    "host=mastodon.social&token=abc",
			wantHost: "mastodon.social",
		},
		{
			name:     "host is lowercased",
			query:    "host=Mastodon.Social&token=abc",
			wantHost: "mastodon.social",
		},
		{
			name:     "host with port",
			query:    "host=localhost:8443&token=abc",
			wantHost: "localhost:8443",
		},
		{
			name:      "missing host",
			query:     "token=abc",
			wantError: true,
		},
		{
			name:      "missing token",
			query:     "host=mastodon.social",
			wantError: true,
		},
		{
			name:      "empty token",
			query:     "host=mastodon.social&token=",
			wantError: true,
		},
		{
			name:      "host with scheme",
			query:     "host=https://mastodon.social&token=abc",
			wantError: true,
		},
		{
			name:      "host with path",
			query:     "host=evil.example/redirect%3F&token=abc",
			wantError: true,
		},
		{
			name:      "host with userinfo",
			query:     "host=user@evil.example&token=abc",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery(%q) error = %v", tt.query, err)
			}

			req, err := ParseFeedRequest(q)
			if tt.wantError {
				if !errors.Is(err, ErrKeyExtraction) {
					t.Fatalf("ParseFeedRequest() error = %v, want ErrKeyExtraction", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFeedRequest() unexpected error = %v", err)
			}
			if req.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", req.Host, tt.wantHost)
			}
		})
	}
}

func TestParseFeedRequestLengthLimits(t *testing.T) {
	longHost := strings.Repeat("a", MaxHostLength-len(".example")) + ".example"

	tests := []struct {
		name      string
		host      string
		token     string
		wantError bool
	}{
		{"token at limit", "m.example", strings.Repeat("t", MaxTokenLength), false},
		{"token over limit", "m.example", strings.Repeat("t", MaxTokenLength+1), true},
		{"huge token", "m.example", strings.Repeat("t", 64<<10), true},
		{"host at limit", longHost, "t", false},
		{"host over limit", "a" + longHost, "t", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFeedRequest(url.Values{"host": {tt.host}, "token": {tt.token}})
			if tt.wantError && !errors.Is(err, ErrKeyExtraction) {
				t.Fatalf("error = %v, want ErrKeyExtraction", err)
			}
			if !tt.wantError && err != nil {
				t.Fatalf("unexpected error = %v", err)
			}
		})
	}
}

func TestFeedKeyIsFixedSizeDigest(t *testing.T) {
	token := strings.Repeat("secret", 500)
	k := FeedRequest{Host: "a.example", Token: token}.Key()

	if got := len(k.Bytes()); got != 32 {
		t.Errorf("len(Bytes()) = %d, want 32", got)
	}
	if bytes.Contains(k.Bytes(), []byte("secret")) {
		t.Error("key should not carry the token")
	}

	// The separator keeps the split point significant.
	ab := FeedRequest{Host: "ab", Token: "c"}.Key()
	a := FeedRequest{Host: "a", Token: "bc"}.Key()
	if ab == a {
		t.Error(`("ab", "c") and ("a", "bc") should give different keys`)
	}
}

func TestFeedKeyEquality(t *testing.T) {
	a := FeedRequest{Host: "a.example", Token: "t1"}.Key()
	b := FeedRequest{Host: "a.example", Token: "t1"}.Key()
	c := FeedRequest{Host: "a.example", Token: "t2"}.Key()

	if a != b {
		t.Error("keys built from equal requests should be equal")
	}
	if a == c {
		t.Error("keys with different tokens should differ")
	}

	m := map[FeedKey]int{a: 1}
	if m[b] != 1 {
		t.Error("equal keys should address the same map entry")
	}
}

func TestUpstreamStatusErrorIsTransport(t *testing.T) {
	var err error = &UpstreamStatusError{Status: 401}

	if !errors.Is(err, ErrUpstreamTransport) {
		t.Error("UpstreamStatusError should match ErrUpstreamTransport")
	}
	if errors.Is(err, ErrUpstreamMalformed) {
		t.Error("UpstreamStatusError should not match ErrUpstreamMalformed")
	}
	if got, want := err.Error(), "request to your mastodon instance failed: status 401"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
