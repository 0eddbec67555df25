package domain

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// Length ceilings for the query parameters that make up a feed key.
const (
	MaxHostLength  = 253 + 6 // DNS name plus ":65535"
	MaxTokenLength = 4 << 10
)

// FeedRequest identifies which upstream feed a request is for.
// It is built per request from the query string and never persisted.
type FeedRequest struct {
	Host  string // upstream hostname, no scheme (ex: mastodon.social)
	Token string // opaque bearer token
}

// FeedKey partitions the per-feed rate limiter. It is a SHA-256 digest of
// host, a NUL byte and token: fixed-size, comparable, and free of the bearer
// token itself. Two keys are equal exactly when both host and token are.
type FeedKey struct {
	digest [sha256.Size]byte
}

// Key returns the rate-limit partition key for r.
func (r FeedRequest) Key() FeedKey {
	h := sha256.New()
	h.Write([]byte(r.Host))
	h.Write([]byte{0})
	h.Write([]byte(r.Token))

	var k FeedKey
	h.Sum(k.digest[:0])
	return k
}

// Bytes returns the digest, for shard hashing.
func (k FeedKey) Bytes() []byte { return k.digest[:] }

// ParseFeedRequest extracts a FeedRequest from query parameters.
// It fails with ErrKeyExtraction when host or token is missing, empty or
// too long, or when host is not a bare hostname.
func ParseFeedRequest(q url.Values) (FeedRequest, error) {
	host := strings.TrimSpace(q.Get("host"))
	token := q.Get("token")

	if host == "" {
		return FeedRequest{}, fmt.Errorf("%w: missing host parameter", ErrKeyExtraction)
	}
	if token == "" {
		return FeedRequest{}, fmt.Errorf("%w: missing token parameter", ErrKeyExtraction)
	}
	if len(host) > MaxHostLength {
		return FeedRequest{}, fmt.Errorf("%w: host parameter too long", ErrKeyExtraction)
	}
	if len(token) > MaxTokenLength {
		return FeedRequest{}, fmt.Errorf("%w: token parameter too long", ErrKeyExtraction)
	}
	if !IsHostname(host) {
		return FeedRequest{}, fmt.Errorf("%w: host must be a hostname without scheme or path", ErrKeyExtraction)
	}

	return FeedRequest{Host: strings.ToLower(host), Token: token}, nil
}

// IsHostname reports whether s looks like "name.example" or "name.example:8443".
// Schemes, paths, userinfo and query strings are rejected.
func IsHostname(s string) bool {
	if s == "" || len(s) > MaxHostLength {
		return false
	}

	name, port := s, ""
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		name, port = s[:i], s[i+1:]
		if port == "" || len(port) > 5 {
			return false
		}
		for _, c := range port {
			if c < '0' || c > '9' {
				return false
			}
		}
	}

	if name == "" || name[0] == '.' || name[0] == '-' || name[len(name)-1] == '-' {
		return false
	}

	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return false
		}
	}
	return !strings.Contains(name, "..")
}
