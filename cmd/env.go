package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vheissu/abn-checker/internal/cache"
	"github.com/Vheissu/abn-checker/internal/config"
	"github.com/Vheissu/abn-checker/internal/fetcher"
	"github.com/Vheissu/abn-checker/internal/lookup"
	"github.com/Vheissu/abn-checker/internal/metrics"
	"github.com/Vheissu/abn-checker/internal/store"
)

// lookupEnv holds the store, cache, and lookup service shared by the
// lookup, serve, and cache commands.
type lookupEnv struct {
	Store    store.Store // nil when caching is disabled
	Cache    *cache.Cache
	Service  *lookup.Service
	Registry *prometheus.Registry
}

// Close releases resources held by the environment.
func (e *lookupEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close cache store", zap.Error(err))
		}
	}
}

// initStore opens and migrates the configured cache backend.
func initStore(ctx context.Context, cc config.CacheConfig) (store.Store, error) {
	st, err := store.Open(ctx, cc)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s cache", cc.Driver)
	}
	if m, ok := st.(store.Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate cache")
		}
	}
	return st, nil
}

// initLookup builds the lookup service from cfg. With noCache set the cache
// backend is never opened and every lookup goes upstream.
func initLookup(ctx context.Context, noCache bool) (*lookupEnv, error) {
	cc := cfg.Cache
	if noCache {
		cc.Driver = config.DriverNone
	}

	st, err := initStore(ctx, cc)
	if err != nil {
		return nil, err
	}

	f, err := fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Lookup))
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrap(err, "init fetcher")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := cache.New(st, cfg.Lookup.CacheDuration())
	svc := lookup.New(f, c, metrics.New(reg), lookup.OptionsFromConfig(cfg.Lookup))

	zap.L().Debug("lookup environment ready",
		zap.String("cache_driver", cc.Driver),
		zap.Bool("cache_enabled", c.Enabled()),
		zap.String("base_url", cfg.Lookup.BaseURL),
	)

	return &lookupEnv{Store: st, Cache: c, Service: svc, Registry: reg}, nil
}
