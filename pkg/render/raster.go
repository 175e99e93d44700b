package render

import (
	"bytes"
	"context"
	"image"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// Rasterizer paints a scene tree into pixels.
type Rasterizer struct {
	fonts   *fonts.Set
	fetcher ResourceFetcher
	logger  *log.Logger
}

// NewRasterizer returns a rasterizer using the given fonts. The fetcher is
// only used by cache-busting passes and may be nil, in which case those
// passes draw the bytes the elements already hold.
func NewRasterizer(fs *fonts.Set, fetcher ResourceFetcher, logger *log.Logger) *Rasterizer {
	if logger == nil {
		logger = log.Default()
	}
	if fs == nil {
		fs = fonts.Embedded()
	}
	return &Rasterizer{fonts: fs, fetcher: fetcher, logger: logger}
}

// Fonts returns the set text is shaped with.
func (r *Rasterizer) Fonts() *fonts.Set { return r.fonts }

// Rasterize paints root and returns an image of exactly [Options.OutputSize].
//
// Loaded image elements are decoded on first use, which fires their load
// hooks. Pending and failed elements are drawn as nothing, like a broken
// image. With CacheBust set, every loaded image is refetched and a failed
// refetch fails the pass.
func (r *Rasterizer) Rasterize(ctx context.Context, root scene.Node, opts Options) (*image.NRGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Fetch.Mode == "" {
		opts.Fetch.Mode = ModeCORS
	}
	if opts.Fetch.Credentials == "" {
		opts.Fetch.Credentials = CredentialsOmit
	}

	p := &painter{
		ctx:     ctx,
		r:       r,
		opts:    opts,
		sources: make(map[*scene.Element]image.Image),
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	if err := p.draw(dc, root); err != nil {
		return nil, err
	}

	out := imaging.Clone(dc.Image())
	w, h := opts.OutputSize()
	if w != opts.Width || h != opts.Height {
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}
	return out, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDelivery, err, "encode png")
	}
	return buf.Bytes(), nil
}

// source returns the pixels to draw for el, or nil for an element that
// renders as a broken image.
func (p *painter) source(el *scene.Element) (image.Image, error) {
	if img, ok := p.sources[el]; ok {
		return img, nil
	}
	if el.State() != scene.Loaded {
		p.r.logger.Debug("skipping unloaded image", "src", el.Src(), "state", el.State())
		p.sources[el] = nil
		return nil, nil
	}

	var (
		img image.Image
		err error
	)
	if p.opts.CacheBust && p.r.fetcher != nil {
		img, err = p.refetch(el)
	} else {
		img, err = el.Decode()
		if err != nil {
			err = errors.Wrap(errors.ErrCodeRasterize, err, "decode %s", el.Src())
		}
	}
	if err != nil {
		return nil, err
	}
	p.sources[el] = img
	return img, nil
}

func (p *painter) refetch(el *scene.Element) (image.Image, error) {
	// Keep hook semantics identical to an uncached pass.
	if _, err := el.Decode(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, err, "decode %s", el.Src())
	}

	res, err := p.r.fetcher.Fetch(p.ctx, el.Src(), FetchRequest{
		FetchOptions: p.opts.Fetch,
		CacheBust:    true,
		IncludeQuery: p.opts.IncludeQueryParams,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, err, "refetch %s", el.Src())
	}
	if res.Tainted {
		return nil, errors.New(errors.ErrCodeRasterize, "image %s is not CORS-enabled and would taint the raster", el.Src())
	}
	img, err := imaging.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRasterize, err, "decode refetched %s", el.Src())
	}
	return img, nil
}
