package export

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/templatestudio/pkg/config"
	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/observability"
	"github.com/matzehuels/templatestudio/pkg/render"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// Stage names, in execution order.
const (
	StageFonts   = "fonts"
	StageImages  = "images"
	StageWarmUp  = "warmup"
	StageSettle  = "settle"
	StageCapture = "capture"
	StageDeliver = "deliver"
)

// Defaults for [Exporter] timings.
const (
	DefaultImageTimeout  = 10 * time.Second
	DefaultSettleTimeout = 2 * time.Second
	DefaultSettleDelay   = 100 * time.Millisecond
)

// Surface is a composition that can be exported. [*scene.Document]
// implements it.
type Surface interface {
	Name() string
	Size() (width, height int)
	Root() scene.Node
	Images() []*scene.Element
}

// Settler is implemented by surfaces that can report when every derived
// state change has been rendered.
type Settler interface {
	WaitSettled(ctx context.Context) error
}

// Request is one export.
type Request struct {
	Surface Surface

	// Filename is the delivered file name. ".png" is appended when missing.
	// Empty means the surface name.
	Filename string
}

// Result describes a delivered export.
type Result struct {
	ID       string
	Filename string
	Width    int
	Height   int
	Images   int
	Size     int
	Duration time.Duration
}

// Exporter runs the export pipeline. It is safe for concurrent use on
// different surfaces.
type Exporter struct {
	fonts         *fonts.Set
	raster        *render.Rasterizer
	logger        *log.Logger
	imageTimeout  time.Duration
	settleTimeout time.Duration
	settleDelay   time.Duration
}

// Option configures an [Exporter].
type Option func(*Exporter)

// WithLogger sets the exporter logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithImageTimeout bounds the wait for each image.
func WithImageTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.imageTimeout = d
		}
	}
}

// WithSettleTimeout bounds the wait for a [Settler].
func WithSettleTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.settleTimeout = d
		}
	}
}

// WithSettleDelay sets the fixed delay used for surfaces that are not a
// [Settler].
func WithSettleDelay(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.settleDelay = d
		}
	}
}

// WithConfig applies the [export] section of the configuration file.
func WithConfig(c config.ExportConfig) Option {
	return func(e *Exporter) {
		WithImageTimeout(c.ImageTimeout.Duration)(e)
		WithSettleTimeout(c.SettleTimeout.Duration)(e)
		WithSettleDelay(c.SettleDelay.Duration)(e)
	}
}

// New returns an exporter. A nil font set uses the embedded fonts.
func New(fs *fonts.Set, r *render.Rasterizer, opts ...Option) *Exporter {
	if fs == nil {
		fs = fonts.Embedded()
	}
	e := &Exporter{
		fonts:         fs,
		raster:        r,
		logger:        log.Default(),
		imageTimeout:  DefaultImageTimeout,
		settleTimeout: DefaultSettleTimeout,
		settleDelay:   DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.raster == nil {
		e.raster = render.NewRasterizer(fs, nil, e.logger)
	}
	return e
}

// Filename normalizes an export file name: ".png" is appended unless the
// name already ends with it in any case, and the result must be a plain
// base name.
func Filename(name string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	if err := errors.ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// Export runs the pipeline for req and delivers the PNG to sink.
func (e *Exporter) Export(ctx context.Context, req Request, sink Sink) (res *Result, err error) {
	s := req.Surface
	if s == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to export")
	}
	if sink == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no export destination")
	}
	name := req.Filename
	if name == "" {
		name = s.Name()
	}
	filename, err := Filename(name)
	if err != nil {
		return nil, err
	}
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeRasterize, "surface %s has no size (%dx%d)", s.Name(), w, h)
	}

	res = &Result{ID: uuid.NewString(), Filename: filename, Width: w, Height: h}
	logger := e.logger.With("template", s.Name(), "export", res.ID)
	start := time.Now()
	hooks := observability.Export()
	hooks.OnExportStart(ctx, s.Name(), w, h)
	defer func() {
		res.Duration = time.Since(start)
		hooks.OnExportComplete(ctx, s.Name(), res.Size, res.Duration, err)
		if err != nil {
			logger.Error("export failed", "duration", res.Duration, "err", err)
			res = nil
		}
	}()

	run := func(stage string, fn func() error) error {
		t := time.Now()
		err := fn()
		d := time.Since(t)
		hooks.OnStageComplete(ctx, s.Name(), stage, d, err)
		if err == nil {
			logger.Debug("stage complete", "stage", stage, "duration", d)
		}
		return err
	}

	if err := run(StageFonts, func() error { return e.fonts.WaitReady(ctx) }); err != nil {
		return res, err
	}
	if err := run(StageImages, func() error {
		imgs := s.Images()
		res.Images = len(imgs)
		return AwaitImages(ctx, imgs, e.imageTimeout, logger)
	}); err != nil {
		return res, err
	}

	opts := render.Options{Width: w, Height: h, PixelRatio: 1}
	if err := run(StageWarmUp, func() error {
		_, err := e.raster.Rasterize(ctx, s.Root(), opts)
		return coded(errors.ErrCodeRasterize, err, "warm-up capture")
	}); err != nil {
		return res, err
	}
	if err := run(StageSettle, func() error { return e.settle(ctx, s, logger) }); err != nil {
		return res, err
	}

	opts.CacheBust = true
	opts.IncludeQueryParams = true
	opts.Fetch = render.FetchOptions{Mode: render.ModeCORS, Credentials: render.CredentialsOmit}
	var data []byte
	if err := run(StageCapture, func() error {
		img, err := e.raster.Rasterize(ctx, s.Root(), opts)
		if err != nil {
			return coded(errors.ErrCodeRasterize, err, "final capture")
		}
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			return errors.New(errors.ErrCodeRasterize, "capture is %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
		}
		data, err = render.EncodePNG(img)
		return err
	}); err != nil {
		return res, err
	}

	if err := run(StageDeliver, func() error {
		return coded(errors.ErrCodeDelivery, sink.Deliver(ctx, filename, data), "deliver %s", filename)
	}); err != nil {
		return res, err
	}
	res.Size = len(data)
	logger.Info("exported", "file", filename, "width", w, "height", h,
		"bytes", res.Size, "images", res.Images, "duration", time.Since(start))
	return res, nil
}

// AwaitImages waits until every element has loaded or failed. Elements
// still pending after timeout are left to draw as broken images; only ctx
// ends the wait with an error.
func AwaitImages(ctx context.Context, imgs []*scene.Element, timeout time.Duration, logger *log.Logger) error {
	if len(imgs) == 0 {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, el := range imgs {
		if el.Complete() && el.NaturalHeight() != 0 {
			continue
		}
		g.Go(func() error {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			select {
			case <-el.Done():
				return nil
			case <-timer.C:
				logger.Warn("image did not load in time", "src", el.Src(), "timeout", timeout)
				return nil
			case <-gctx.Done():
				return errors.Wrap(errors.ErrCodeTimeout, gctx.Err(), "waiting for %s", el.Src())
			}
		})
	}
	return g.Wait()
}

func (e *Exporter) settle(ctx context.Context, s Surface, logger *log.Logger) error {
	st, ok := s.(Settler)
	if !ok {
		t := time.NewTimer(e.settleDelay)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "settling")
		}
	}

	sctx, cancel := context.WithTimeout(ctx, e.settleTimeout)
	defer cancel()
	err := st.WaitSettled(sctx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "settling")
	case stderrors.Is(err, context.DeadlineExceeded):
		// Derived state may land after the capture; export what is rendered.
		logger.Warn("surface did not settle in time, capturing current state", "timeout", e.settleTimeout)
		return nil
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "settling")
	}
}

// coded wraps err with code unless it already carries one.
func coded(code errors.Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(code, err, format, args...)
}
