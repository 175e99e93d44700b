package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newRasterizer(t *testing.T, fetcher ResourceFetcher) *Rasterizer {
	t.Helper()
	fs := fonts.Embedded()
	if err := fs.WaitReady(context.Background()); err != nil {
		t.Fatalf("fonts: %v", err)
	}
	return NewRasterizer(fs, fetcher, nil)
}

func near(t *testing.T, img image.Image, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	if diff(got.R, want.R) > 3 || diff(got.G, want.G) > 3 || diff(got.B, want.B) > 3 || diff(got.A, want.A) > 3 {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}

func loadedElement(t *testing.T, src string, data []byte) *scene.Element {
	t.Helper()
	el := scene.NewElement(src, true)
	el.Resolve(scene.Resource{Data: data}, nil)
	return el
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		opts Options
		w, h int
	}{
		{Options{Width: 1080, Height: 1920}, 1080, 1920},
		{Options{Width: 1080, Height: 1920, PixelRatio: 1}, 1080, 1920},
		{Options{Width: 1080, Height: 1920, Scale: 0.2}, 216, 384},
		{Options{Width: 1920, Height: 1080, Scale: 0.35}, 672, 378},
		{Options{Width: 100, Height: 50, PixelRatio: 2}, 200, 100},
	}
	for _, tt := range tests {
		w, h := tt.opts.OutputSize()
		if w != tt.w || h != tt.h {
			t.Errorf("OutputSize(%+v) = %dx%d, want %dx%d", tt.opts, w, h, tt.w, tt.h)
		}
	}
}

func TestRasterizeRejectsEmptySurface(t *testing.T) {
	r := newRasterizer(t, nil)
	_, err := r.Rasterize(context.Background(), &scene.Box{}, Options{Width: 0, Height: 100})
	if !errors.Is(err, errors.ErrCodeRasterize) {
		t.Errorf("err = %v, want RASTERIZE", err)
	}
}

func TestRasterizeBoxAndGradient(t *testing.T) {
	r := newRasterizer(t, nil)
	root := &scene.Box{
		Frame: scene.Rect{W: 100, H: 200},
		Fill:  color.NRGBA{R: 17, G: 24, B: 39, A: 255},
		Children: []scene.Node{
			&scene.Box{
				Frame: scene.Rect{W: 100, H: 200},
				Gradient: &scene.Gradient{Angle: 180, Stops: []scene.Stop{
					{Offset: 0, Color: color.NRGBA{R: 255, A: 255}},
					{Offset: 1, Color: color.NRGBA{B: 255, A: 255}},
				}},
			},
		},
	}

	img, err := r.Rasterize(context.Background(), root, Options{Width: 100, Height: 200})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 200 {
		t.Fatalf("size = %v, want 100x200", b)
	}
	near(t, img, 50, 0, color.NRGBA{R: 255, B: 1, A: 255})
	near(t, img, 50, 199, color.NRGBA{R: 1, B: 255, A: 255})
}

func TestRasterizeImageDecodesAndFiresHooks(t *testing.T) {
	r := newRasterizer(t, nil)
	el := loadedElement(t, "https://cdn.example.com/a.png", solidPNG(t, 10, 10, color.NRGBA{G: 200, A: 255}))

	fired := make(chan struct{})
	el.OnLoad("dominant", func(*scene.Element) { close(fired) })

	root := &scene.Image{Frame: scene.Rect{W: 40, H: 40}, Element: el}
	img, err := r.Rasterize(context.Background(), root, Options{Width: 40, Height: 40})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	near(t, img, 20, 20, color.NRGBA{G: 200, A: 255})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("load hook did not fire")
	}
}

func TestRasterizeBrokenImagesDrawNothing(t *testing.T) {
	r := newRasterizer(t, nil)
	failed := scene.NewElement("https://cdn.example.com/404.png", true)
	failed.Resolve(scene.Resource{}, errors.New(errors.ErrCodeNetwork, "404"))
	pending := scene.NewElement("https://cdn.example.com/slow.png", true)

	root := &scene.Box{Frame: scene.Rect{W: 10, H: 10}, Children: []scene.Node{
		&scene.Image{Frame: scene.Rect{W: 10, H: 10}, Element: failed},
		&scene.Image{Frame: scene.Rect{W: 10, H: 10}, Element: pending},
	}}
	img, err := r.Rasterize(context.Background(), root, Options{Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	near(t, img, 5, 5, color.NRGBA{})
}

func TestRasterizeCacheBustRefetches(t *testing.T) {
	var hits atomic.Int32
	var lastQuery atomic.Value
	fresh := solidPNG(t, 4, 4, color.NRGBA{R: 250, G: 100, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastQuery.Store(r.URL.RawQuery)
		if r.Header.Get("Cookie") != "" {
			t.Error("cache-busting fetch must not send credentials")
		}
		w.Write(fresh)
	}))
	defer srv.Close()

	src := srv.URL + "/cover.jpg?size=1900"
	stale := loadedElement(t, src, solidPNG(t, 4, 4, color.NRGBA{B: 255, A: 255}))
	r := newRasterizer(t, NewFetcher(WithRetry(1, 0)))
	root := &scene.Image{Frame: scene.Rect{W: 8, H: 8}, Element: stale}

	warm, err := r.Rasterize(context.Background(), root, Options{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	near(t, warm, 4, 4, color.NRGBA{B: 255, A: 255})
	if hits.Load() != 0 {
		t.Fatal("warm-up pass must not fetch")
	}

	final, err := r.Rasterize(context.Background(), root, Options{
		Width: 8, Height: 8, CacheBust: true, IncludeQueryParams: true,
	})
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	near(t, final, 4, 4, color.NRGBA{R: 250, G: 100, A: 255})

	q, _ := lastQuery.Load().(string)
	if !strings.HasPrefix(q, "size=1900&_=") {
		t.Errorf("query = %q, want original params followed by cache bust", q)
	}
}

func TestRasterizeFailedRefetchIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	el := loadedElement(t, srv.URL+"/gone.png", solidPNG(t, 2, 2, color.White))
	r := newRasterizer(t, NewFetcher(WithRetry(1, 0)))
	_, err := r.Rasterize(context.Background(), &scene.Image{Frame: scene.Rect{W: 2, H: 2}, Element: el},
		Options{Width: 2, Height: 2, CacheBust: true})
	if !errors.Is(err, errors.ErrCodeRasterize) {
		t.Errorf("err = %v, want RASTERIZE", err)
	}
}

func TestRasterizeText(t *testing.T) {
	r := newRasterizer(t, nil)
	count := func(img *image.NRGBA) int {
		n := 0
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] > 0 {
				n++
			}
		}
		return n
	}

	opts := Options{Width: 300, Height: 60}
	text := &scene.Text{Frame: scene.Rect{W: 300, H: 60}, Content: "Mattone", Size: 40, Align: scene.AlignCenter, Tracking: 2}
	img, err := r.Rasterize(context.Background(), text, opts)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if count(img) == 0 {
		t.Error("text drew no pixels")
	}

	text.Content = ""
	img, err = r.Rasterize(context.Background(), text, opts)
	if err != nil {
		t.Fatalf("Rasterize empty text: %v", err)
	}
	if count(img) != 0 {
		t.Error("empty text should draw nothing")
	}
}

func TestRasterizeScaledPreview(t *testing.T) {
	r := newRasterizer(t, nil)
	root := &scene.Box{Frame: scene.Rect{W: 1080, H: 1920}, Fill: color.NRGBA{R: 16, G: 185, B: 129, A: 255}}
	img, err := r.Rasterize(context.Background(), root, Options{Width: 1080, Height: 1920, Scale: 0.2})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 216 || b.Dy() != 384 {
		t.Errorf("preview size = %v, want 216x384", b)
	}
	near(t, img, 100, 200, color.NRGBA{R: 16, G: 185, B: 129, A: 255})
}

func TestRasterizeCancelled(t *testing.T) {
	r := newRasterizer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Rasterize(ctx, &scene.Box{Frame: scene.Rect{W: 1, H: 1}}, Options{Width: 1, Height: 1})
	if !errors.Is(err, errors.ErrCodeRasterize) {
		t.Errorf("err = %v, want RASTERIZE", err)
	}
}

func TestWrap(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }
	got := wrap("Cantautora italiana nacida en Roma", 12, measure)
	want := []string{"Cantautora", "italiana", "nacida en", "Roma"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrap = %q, want %q", got, want)
	}

	if got := ellipsize("Nuove Proposte", 8, measure); got != "Nuove…" {
		t.Errorf("ellipsize = %q", got)
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 3 || cfg.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", cfg.Width, cfg.Height)
	}
}
