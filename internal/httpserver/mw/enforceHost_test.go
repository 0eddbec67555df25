package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
)

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"rss.example.com", "rss.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"a.b.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"badexample.com", "*.example.com", false},
		{"other.com", "rss.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestEnforceHost(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{"passthrough", nil, "anything.example", http.StatusNoContent},
		{"exact with port", []string{"rss.example.com"}, "RSS.example.com:8443", http.StatusNoContent},
		{"wildcard", []string{"*.example.com"}, "feeds.example.com", http.StatusNoContent},
		{"rejected", []string{"rss.example.com"}, "evil.example", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			rec := httptest.NewRecorder()
			EnforceHost(tt.allowed, logger.NewNop())(ok).ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, logger.NewNop())(ok)

	for remote, want := range map[string]int{
		"10.1.1.1:1":    http.StatusNoContent,
		"192.168.0.1:1": http.StatusForbidden,
	} {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", remote, rec.Code, want)
		}
	}
}
