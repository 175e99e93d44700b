package pipeline

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/templatestudio/pkg/cache"
	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/render"
	"github.com/matzehuels/templatestudio/pkg/scene"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// Defaults for preview rendering.
const (
	DefaultImageTimeout  = export.DefaultImageTimeout
	DefaultSettleTimeout = export.DefaultSettleTimeout

	// DefaultConcurrency bounds how many gallery thumbnails render at once.
	DefaultConcurrency = 4
)

// Runner renders previews with caching.
//
// The Runner is stateless except for its dependencies, so one Runner can
// serve concurrent requests.
type Runner struct {
	Cache         cache.Cache
	Keyer         cache.Keyer
	Loader        scene.Loader
	Raster        *render.Rasterizer
	Fonts         *fonts.Set
	Logger        *log.Logger
	ImageTimeout  time.Duration
	SettleTimeout time.Duration
	Concurrency   int
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If raster is nil, one using the embedded fonts and no fetcher is created.
// Previews wait for the rasterizer's font set.
// A nil loader leaves every image unloaded.
func NewRunner(c cache.Cache, keyer cache.Keyer, loader scene.Loader, raster *render.Rasterizer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if raster == nil {
		raster = render.NewRasterizer(fonts.Embedded(), nil, logger)
	}
	return &Runner{
		Cache:         c,
		Keyer:         keyer,
		Loader:        loader,
		Raster:        raster,
		Fonts:         raster.Fonts(),
		Logger:        logger,
		ImageTimeout:  DefaultImageTimeout,
		SettleTimeout: DefaultSettleTimeout,
		Concurrency:   DefaultConcurrency,
	}
}

// Preview renders def with values at scale and returns the PNG and whether
// it came from the cache.
func (r *Runner) Preview(ctx context.Context, def *template.Definition, values template.Props, scale float64) ([]byte, bool, error) {
	if scale <= 0 || scale > 1 {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "preview scale %g must be in (0, 1]", scale)
	}
	resolved := def.Resolve(values)
	key := r.Keyer.PreviewKey(def.ID, valuesHash(resolved), scale)

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}

	start := time.Now()
	data, err := r.render(ctx, def, resolved, scale)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLPreview); err != nil {
		r.Logger.Warn("cannot cache preview", "template", def.ID, "err", err)
	}
	r.Logger.Debug("rendered preview", "template", def.ID, "scale", scale,
		"bytes", len(data), "duration", time.Since(start))
	return data, false, nil
}

func (r *Runner) render(ctx context.Context, def *template.Definition, values template.Props, scale float64) ([]byte, error) {
	doc := def.Document(values, scene.WithLogger(r.Logger))
	defer doc.Close()
	if err := r.Fonts.WaitReady(ctx); err != nil {
		return nil, err
	}
	// Unmounted documents never load, so there is nothing to wait for.
	if r.Loader != nil {
		doc.Mount(ctx, r.Loader)
		if err := export.AwaitImages(ctx, doc.Images(), r.ImageTimeout, r.Logger); err != nil {
			return nil, err
		}
	}

	opts := render.Options{Width: def.Width, Height: def.Height, Scale: scale}
	if _, err := r.Raster.Rasterize(ctx, doc.Root(), opts); err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, r.SettleTimeout)
	err := doc.WaitSettled(sctx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "settling preview")
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			r.Logger.Warn("preview did not settle in time", "template", def.ID)
		}
	}

	img, err := r.Raster.Rasterize(ctx, doc.Root(), opts)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(img)
}

// Thumbnail is one rendered gallery entry.
type Thumbnail struct {
	Template *template.Definition
	PNG      []byte
	Cached   bool
}

// Gallery renders the default-valued gallery thumbnail of every definition,
// preserving order. The first failure cancels the rest.
func (r *Runner) Gallery(ctx context.Context, defs []*template.Definition) ([]Thumbnail, error) {
	out := make([]Thumbnail, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, def := range defs {
		g.Go(func() error {
			data, hit, err := r.Preview(gctx, def, nil, def.GalleryScale)
			if err != nil {
				return err
			}
			out[i] = Thumbnail{Template: def, PNG: data, Cached: hit}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// valuesHash identifies a resolved property bag. encoding/json sorts map
// keys, so equal bags hash equally.
func valuesHash(p template.Props) string {
	data, _ := json.Marshal(p)
	return cache.Hash(data)
}
