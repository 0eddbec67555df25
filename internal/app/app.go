package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarkrss/internal/config"
	"github.com/MrSnakeDoc/bookmarkrss/internal/feed"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver"
	"github.com/MrSnakeDoc/bookmarkrss/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/mastodon"
	"github.com/MrSnakeDoc/bookmarkrss/internal/ratelimit"
	"github.com/MrSnakeDoc/bookmarkrss/internal/redis"
	"github.com/MrSnakeDoc/bookmarkrss/internal/rss"
	"github.com/MrSnakeDoc/bookmarkrss/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/bookmarkrss/internal/store/redis"
	"github.com/MrSnakeDoc/bookmarkrss/internal/utils"
	"github.com/MrSnakeDoc/bookmarkrss/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sweeper     *scheduler.BucketSweeper
	statsDrain  *scheduler.StatsDrain // nil without Redis
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	feedLimiter := ratelimit.NewLimiter(ratelimit.Policy{
		Name:    "feed",
		Burst:   cfg.FeedBurst,
		Refill:  cfg.FeedRefill,
		IdleTTL: cfg.LimiterIdleTTL,
	}, ratelimit.HashFeedKey)
	ipLimiter := ratelimit.NewLimiter(ratelimit.Policy{
		Name:    "ip",
		Burst:   cfg.IPBurst,
		Refill:  cfg.IPRefill,
		IdleTTL: cfg.LimiterIdleTTL,
	}, ratelimit.HashString)

	sweeper := scheduler.NewBucketSweeper(map[string]scheduler.Sweepable{
		"feed": feedLimiter,
		"ip":   ipLimiter,
	}, loggerClient, cfg.LimiterSweepInterval)

	client := mastodon.NewClient(mastodon.Options{
		Timeout:  cfg.UpstreamTimeout,
		MaxBytes: cfg.UpstreamMaxBytes,
		Product:  version.Product(),
		Logger:   loggerClient,
	})

	// Stats are optional: without Redis they stay in memory.
	var (
		stats       ratelimit.StatsStore = ratelimit.NewMemoryStatsStore()
		backend     deps.Pinger
		redisClient *goredis.Client
		statsDrain  *scheduler.StatsDrain
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("Redis unavailable, keeping rate limit stats in memory",
				logger.Error(err))
			redisClient = nil
		} else {
			store := redisstore.NewStatsStore(redisClient, cfg.StatsPrefix, cfg.StatsTTL)
			statsDrain = scheduler.NewStatsDrain(store, loggerClient, scheduler.DefaultStatsQueue)
			stats, backend = statsDrain, store
			loggerClient.Info("Redis initialized successfully")
		}
	} else {
		loggerClient.Info("Redis not configured, keeping rate limit stats in memory")
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Feeds:        feed.NewService(client, rss.DefaultClients(), loggerClient),
		FeedLimiter:  feedLimiter,
		IPLimiter:    ipLimiter,
		Stats:        stats,
		StatsBackend: backend,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		sweeper:     sweeper,
		statsDrain:  statsDrain,
	}, nil
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting bookmarkrss %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("bookmarkrss %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.sweeper.Start(ctx)
	a.logger.Info("bucket sweeper started",
		logger.Duration("interval", a.cfg.LimiterSweepInterval),
		logger.Int("feed_burst", a.cfg.FeedBurst),
		logger.Int("ip_burst", a.cfg.IPBurst))

	if a.statsDrain != nil {
		// Stopped explicitly once the server has drained.
		a.statsDrain.Start(context.Background())
		a.logger.Info("rate limit stats writer started")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.stopBackground()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.stopBackground()
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// After the server: in-flight requests may still record stats.
	a.stopBackground()

	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}

	a.logger.Info("✅ bookmarkrss stopped cleanly")
	return nil
}

func (a *App) stopBackground() {
	a.sweeper.Stop()
	if a.statsDrain != nil {
		a.statsDrain.Stop()
	}
}
