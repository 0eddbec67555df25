package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr v4", "10.0.0.1:4321", nil, false, "10.0.0.1"},
		{"remote addr v6", "[2001:db8::1]:4321", nil, false, "2001:db8::1"},
		{"mapped v4 is unmapped", "[::ffff:10.0.0.1]:4321", nil, false, "10.0.0.1"},
		{"headers ignored without trust", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.2.3.4"}, false, "10.0.0.1"},
		{"cf header first", "10.0.0.1:1", map[string]string{"CF-Connecting-IP": "5.6.7.8", "X-Forwarded-For": "1.2.3.4"}, true, "5.6.7.8"},
		{"xff left-most", "10.0.0.1:1", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 9.9.9.9"}, true, "1.2.3.4"},
		{"x-real-ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "4.4.4.4"}, true, "4.4.4.4"},
		{"garbage header skipped", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "4.4.4.4"}, true, "4.4.4.4"},
		{"all headers garbage", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "nope"}, true, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/feed", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.5 ", "", "bogus", "2001:db8::/32"})
	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.1.2.3", true},
		{"192.168.1.5", true},
		{"192.168.1.6", false},
		{"::ffff:10.0.0.1", true},
		{"2001:db8::42", true},
		{"2001:db9::1", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() || !NewIPMatcher([]string{"", "junk"}).IsEmpty() {
		t.Error("matcher without valid entries should be empty")
	}
}

func TestParseHostNoPort(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"1.2.3.4":          "1.2.3.4",
		"1.2.3.4:80":       "1.2.3.4",
		"[2001:db8::1]:80": "2001:db8::1",
		"[2001:db8::1]":    "2001:db8::1",
	}
	for in, want := range tests {
		if got := ParseHostNoPort(in); got != want {
			t.Errorf("ParseHostNoPort(%q) = %q, want %q", in, got, want)
		}
	}
}
