package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/animelink/internal/cache"
	"github.com/example/animelink/internal/config"
	"github.com/example/animelink/internal/fetch"
	"github.com/example/animelink/internal/hianime"
	"github.com/example/animelink/internal/history"
	"github.com/example/animelink/internal/jikan"
	"github.com/example/animelink/internal/platform/analytics"
	"github.com/example/animelink/internal/platform/logging"
	"github.com/example/animelink/internal/platform/natsconn"
	"github.com/example/animelink/internal/platform/ratelimit"
	"github.com/example/animelink/internal/recommend"
	"github.com/example/animelink/internal/resolver"
	"github.com/example/animelink/internal/retry"
	"github.com/example/animelink/internal/watch"
)

// app wires the components once per process, on first use.
type app struct {
	configPath string
	jsonOut    bool

	once      sync.Once
	closeOnce sync.Once
	err       error

	cfg       config.Config
	log       *zap.Logger
	backend   cache.Backend
	durable   *cache.Durable
	ephemeral *cache.Ephemeral
	nc        *nats.Conn
	events    *analytics.Publisher

	catalog   *hianime.Client
	meta      *jikan.Client
	resolver  *resolver.Resolver
	watch     *watch.Service
	recommend *recommend.Service
	history   *history.History
}

func newApp() *app { return &app{} }

func (a *app) ensure(ctx context.Context) error {
	a.once.Do(func() { a.err = a.build(ctx) })
	return a.err
}

func (a *app) build(ctx context.Context) error {
	cfg, err := config.Load(strings.TrimSpace(a.configPath))
	if err != nil {
		return err
	}
	a.cfg = cfg

	var logOpts []logging.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logging.WithFile(cfg.LogFile))
	}
	log, err := logging.New(cfg.LogLevel, logOpts...)
	if err != nil {
		return err
	}
	a.log = log

	backend, err := cache.NewBackend(ctx, cfg.Backend())
	if err != nil {
		return err
	}
	a.backend = backend
	a.durable = cache.NewDurable(backend,
		cache.WithNamespace(cfg.CacheNamespace),
		cache.WithDefaultTTL(cfg.CacheTTL),
		cache.WithLogger(log),
	)
	if n, err := a.durable.ClearExpired(ctx); err != nil {
		log.Warn("startup cache sweep failed", zap.String("backend", backend.Name()), zap.Error(err))
	} else {
		log.Debug("startup cache sweep", zap.String("backend", backend.Name()), zap.Int("evicted", n))
	}

	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Log: log})
	switch {
	case errors.Is(err, natsconn.ErrDisabled):
	case err != nil:
		log.Warn("nats unavailable, continuing without invalidation and analytics", zap.Error(err))
	default:
		a.nc = nc
	}
	a.events = analytics.New(natsconn.JetStream(a.nc, log), log)
	a.ephemeral = cache.NewEphemeral(cfg.MemoryCacheTTL,
		cache.WithEphemeralLogger(log),
		cache.WithInvalidation(a.nc, cfg.CacheInvalidateSubject),
	)

	catalogHTTP := fetch.New(fetch.Config{
		ProxyURL:  cfg.HiAnimeProxyURL,
		UserAgent: cfg.HiAnimeUserAgent,
		Timeout:   cfg.RequestTimeout,
	},
		fetch.WithCircuitBreaker(fetch.NewBreaker("hianime", cfg.Breaker(), log)),
		fetch.WithLogger(log),
	)
	metaHTTP := fetch.New(fetch.Config{UserAgent: jikan.DefaultUserAgent, Timeout: cfg.RequestTimeout},
		fetch.WithLimiter(ratelimit.NewRPS(cfg.JikanRPS)),
		fetch.WithLogger(log),
	)
	a.catalog = hianime.New(cfg.HiAnimeBaseURL, catalogHTTP, hianime.WithLogger(log))
	a.meta = jikan.New(cfg.JikanBaseURL, metaHTTP, jikan.WithLogger(log))

	a.resolver = resolver.New(a.catalog,
		resolver.WithLogger(log),
		resolver.WithCache(a.durable, a.ephemeral),
		resolver.WithPublisher(a.events),
	)
	a.watch = watch.New(a.meta, a.resolver, a.catalog,
		watch.WithLogger(log),
		watch.WithCache(a.ephemeral),
		watch.WithPolicies(cfg.QueryPolicy(), cfg.PollPolicy()),
		watch.WithPublisher(a.events),
	)
	a.recommend = recommend.New(a.meta, recommend.WithLogger(log), recommend.WithCache(a.durable))
	a.history = history.New(a.durable, history.WithLogger(log))
	return nil
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.ephemeral != nil {
			_ = a.ephemeral.Close()
		}
		if a.nc != nil {
			_ = a.nc.Drain()
		}
		if a.backend != nil {
			_ = a.backend.Close()
		}
		if a.log != nil {
			_ = a.log.Sync()
		}
	})
}

func (a *app) queryPolicy() retry.Policy {
	p := a.cfg.QueryPolicy()
	p.Log = a.log
	return p
}
