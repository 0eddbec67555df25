package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key, ex: listen_port -> BOOKMARKRSS_LISTEN_PORT.
const EnvPrefix = "BOOKMARKRSS"

type Config struct {
	ListenPort      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request budget enforced by the router

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Upstream fetch
	UpstreamTimeout  time.Duration // overall budget for one bookmarks fetch
	UpstreamMaxBytes int64         // response body ceiling

	// Rate limiting
	FeedBurst            int           // per-feed bucket capacity
	FeedRefill           time.Duration // one per-feed token every FeedRefill
	IPBurst              int           // per-ip bucket capacity
	IPRefill             time.Duration // one per-ip token every IPRefill
	LimiterIdleTTL       time.Duration // full buckets idle for longer are dropped
	LimiterSweepInterval time.Duration // how often idle buckets are swept

	// Redis (optional, rate-limit stats only)
	RedisAddr           string        // empty disables stats persistence
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	StatsPrefix         string        // key prefix for rate-limit counters
	StatsTTL            time.Duration // expiry of per-minute counters

	AllowedHosts []string // optional, restrict /feed to specific Host headers
	AllowedCIDRS []string // optional, restrict /healthz and /readyz to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

// Load reads the configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		// Server settings
		ListenPort:      v.GetString("listen_port"),
		ShutdownTimeout: durationOr(v, "shutdown_timeout", 5*time.Second),
		RequestTimeout:  durationOr(v, "request_timeout", 15*time.Second),

		// Logging
		LogLevel:  v.GetString("log_level"),
		PrettyLog: v.GetBool("pretty_log"),

		// Upstream
		UpstreamTimeout:  durationOr(v, "upstream_timeout", 5*time.Second),
		UpstreamMaxBytes: v.GetInt64("upstream_max_bytes"),

		// Rate limiting
		FeedBurst:            v.GetInt("feed_burst"),
		FeedRefill:           durationOr(v, "feed_refill", time.Minute),
		IPBurst:              v.GetInt("ip_burst"),
		IPRefill:             durationOr(v, "ip_refill", 2*time.Second),
		LimiterIdleTTL:       durationOr(v, "limiter_idle_ttl", 15*time.Minute),
		LimiterSweepInterval: durationOr(v, "limiter_sweep_interval", time.Minute),

		// Redis settings
		RedisAddr:           v.GetString("redis_addr"),
		RedisUser:           v.GetString("redis_username"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		RedisDT:             durationOr(v, "redis_dial_timeout", 5*time.Second),
		RedisRT:             durationOr(v, "redis_read_timeout", 3*time.Second),
		RedisWT:             durationOr(v, "redis_write_timeout", 3*time.Second),
		RedisMaxWait:        durationOr(v, "redis_max_wait", 10*time.Second),
		RedisPingTimeout:    durationOr(v, "redis_ping_timeout", 5*time.Second),
		RedisPoolSize:       v.GetInt("redis_pool_size"),
		RedisConnectTimeout: durationOr(v, "redis_connect_timeout", 30*time.Second),
		RedisRetryInterval:  durationOr(v, "redis_retry_interval", 2*time.Second),
		RedisWarnThreshold:  v.GetInt("redis_warn_threshold"),
		StatsPrefix:         strings.Trim(v.GetString("stats_prefix"), ":"),
		StatsTTL:            durationOr(v, "stats_ttl", 24*time.Hour),

		// Access restrictions
		AllowedHosts: splitAndTrim(v.GetString("allowed_hosts")),
		AllowedCIDRS: splitAndTrim(v.GetString("allowed_cidrs")),
		TrustProxy:   v.GetBool("trust_proxy"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_log", true)
	v.SetDefault("upstream_max_bytes", int64(5<<20))
	v.SetDefault("feed_burst", 10)
	v.SetDefault("ip_burst", 5)
	v.SetDefault("redis_username", "default")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_warn_threshold", 3)
	v.SetDefault("stats_prefix", "bookmarkrss:ratelimit")
	v.SetDefault("trust_proxy", false)
}

func (c *Config) validate() error {
	if c.UpstreamMaxBytes <= 0 {
		return fmt.Errorf("invalid upstream_max_bytes %d (must be positive)", c.UpstreamMaxBytes)
	}
	if c.FeedBurst < 1 {
		return fmt.Errorf("invalid feed_burst %d (must be >= 1)", c.FeedBurst)
	}
	if c.IPBurst < 1 {
		return fmt.Errorf("invalid ip_burst %d (must be >= 1)", c.IPBurst)
	}
	for key, d := range map[string]time.Duration{
		"feed_refill":      c.FeedRefill,
		"ip_refill":        c.IPRefill,
		"upstream_timeout": c.UpstreamTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %v (must be positive)", key, d)
		}
	}
	return nil
}

// durationOr returns the duration stored under key, or def when it is unset
// or does not parse.
func durationOr(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
