package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/matzehuels/templatestudio/pkg/cache"
	"github.com/matzehuels/templatestudio/pkg/config"
	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/pipeline"
	"github.com/matzehuels/templatestudio/pkg/render"
	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
	"github.com/matzehuels/templatestudio/pkg/templates/sanremo"
)

// fetchBackoff is the delay before the first image fetch retry.
const fetchBackoff = 500 * time.Millisecond

// services is everything a command needs to render templates.
type services struct {
	registry *template.Registry
	cache    cache.Cache
	fonts    *fonts.Set
	fetcher  *render.Fetcher
	raster   *render.Rasterizer
	exporter *export.Exporter
	runner   *pipeline.Runner
}

// newServices wires the rendering stack from the loaded configuration.
func (c *CLI) newServices(ctx context.Context, noCache bool) (*services, error) {
	cfg := c.Config
	store, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Backend == config.BackendRedis {
		// Redis may be shared with other applications.
		keyer = cache.NewScopedKeyer(keyer, config.AppName+":")
	}

	fs := fonts.Embedded()
	if cfg.Fonts.Dir != "" {
		fs = fonts.Load(cfg.Fonts.Dir, c.Logger)
	}

	fetcher := render.NewFetcher(
		render.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout.Duration}),
		render.WithCache(store, keyer, cfg.Cache.TTL.Duration),
		render.WithRetry(cfg.Fetch.Attempts, fetchBackoff),
		render.WithFetchLogger(c.Logger),
	)
	raster := render.NewRasterizer(fs, fetcher, c.Logger)
	exporter := export.New(fs, raster,
		export.WithConfig(cfg.Export),
		export.WithLogger(c.Logger),
	)

	runner := pipeline.NewRunner(store, keyer, fetcher, raster, c.Logger)
	runner.ImageTimeout = cfg.Export.ImageTimeout.Duration
	runner.SettleTimeout = cfg.Export.SettleTimeout.Duration

	return &services{
		registry: sanremo.Registry(),
		cache:    store,
		fonts:    fs,
		fetcher:  fetcher,
		raster:   raster,
		exporter: exporter,
		runner:   runner,
	}, nil
}

// Close releases the cache backend.
func (s *services) Close() error {
	return s.cache.Close()
}

// newSession starts an editing session whose exports fetch images through
// the shared fetcher.
func (c *CLI) newSession(svc *services, templateID string) (*session.Session, error) {
	return session.New(svc.registry, templateID,
		session.WithLoader(svc.fetcher),
		session.WithLogger(c.Logger),
	)
}

func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.RedisAddr)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}
