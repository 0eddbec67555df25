package redis

import (
	"strings"
	"time"
)

// DefaultKeyPrefix namespaces every stats key.
const DefaultKeyPrefix = "bookmarkrss:ratelimit"

// minuteLayout buckets counters per UTC minute, ex: 202301010000.
const minuteLayout = "200601021504"

// TotalKey returns the hash holding cumulative allowed/denied counters.
func TotalKey(prefix string) string {
	return prefix + ":total"
}

// TierKey returns the hash holding counters for one tier.
func TierKey(prefix, tier string) string {
	return prefix + ":tier:" + tier
}

// MinuteKey returns the hash holding counters for the minute containing at.
func MinuteKey(prefix string, at time.Time) string {
	return prefix + ":minute:" + at.UTC().Format(minuteLayout)
}

// normalizePrefix strips surrounding colons and falls back to the default.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return DefaultKeyPrefix
	}
	return prefix
}
