package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/observability"
	"github.com/matzehuels/templatestudio/pkg/render"
	"github.com/matzehuels/templatestudio/pkg/scene"
	"github.com/matzehuels/templatestudio/pkg/templates/sanremo"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// stubFetcher serves the same bytes for every request and records URLs.
type stubFetcher struct {
	mu   sync.Mutex
	data []byte
	err  error
	reqs []render.FetchRequest
}

func (f *stubFetcher) Load(ctx context.Context, req scene.LoadRequest) (scene.Resource, error) {
	return scene.Resource{Data: f.data}, nil
}

func (f *stubFetcher) Fetch(ctx context.Context, src string, req render.FetchRequest) (scene.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return scene.Resource{}, f.err
	}
	return scene.Resource{Data: f.data}, nil
}

func (f *stubFetcher) requests() []render.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]render.FetchRequest(nil), f.reqs...)
}

// stageRecorder records export hook events.
type stageRecorder struct {
	observability.NoopExportHooks
	mu     sync.Mutex
	stages []string
	errs   []error
}

func (r *stageRecorder) OnStageComplete(_ context.Context, _, stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *stageRecorder) OnExportComplete(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func recordStages(t *testing.T) *stageRecorder {
	t.Helper()
	rec := &stageRecorder{}
	observability.SetExportHooks(rec)
	t.Cleanup(observability.Reset)
	return rec
}

func newExporter(t *testing.T, f render.ResourceFetcher, opts ...Option) *Exporter {
	t.Helper()
	fs := fonts.Embedded()
	if err := fs.WaitReady(context.Background()); err != nil {
		t.Fatalf("fonts: %v", err)
	}
	return New(fs, render.NewRasterizer(fs, f, nil), opts...)
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sanremo_story", "sanremo_story.png", false},
		{"sanremo_story.png", "sanremo_story.png", false},
		{"Cover.PNG", "Cover.PNG", false},
		{"photo.jpg", "photo.jpg.png", false},
		{"", "", true},
		{"../escape", "", true},
		{"dir/file", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Filename(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Filename(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidFilename) {
					t.Errorf("err code = %s, want INVALID_FILENAME", errors.GetCode(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportStory(t *testing.T) {
	rec := recordStages(t)
	f := &stubFetcher{data: solidPNG(t, color.NRGBA{R: 255, A: 255})}

	doc := sanremo.Story().Document(nil)
	defer doc.Close()
	doc.Mount(context.Background(), f)

	sink := &MemorySink{}
	res, err := newExporter(t, f).Export(context.Background(), Request{Surface: doc}, sink)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := []string{StageFonts, StageImages, StageWarmUp, StageSettle, StageCapture, StageDeliver}
	if diff := cmp.Diff(want, rec.stages); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	if len(rec.errs) != 1 || rec.errs[0] != nil {
		t.Errorf("export completions = %v, want one success", rec.errs)
	}

	name, data := sink.Last()
	if name != "sanremo_story.png" || res.Filename != name {
		t.Errorf("filename = %q (result %q), want sanremo_story.png", name, res.Filename)
	}
	if b := decodePNG(t, data).Bounds(); b.Dx() != 1080 || b.Dy() != 1920 {
		t.Errorf("png is %dx%d, want 1080x1920", b.Dx(), b.Dy())
	}
	if res.Images != 2 || res.Size != len(data) || res.ID == "" {
		t.Errorf("result = %+v", res)
	}

	// The warm-up pass decoded the photo, and the capture saw its color.
	if v, _ := doc.State("dominant"); v != "#ff0000" {
		t.Errorf("dominant = %v, want #ff0000", v)
	}

	reqs := f.requests()
	if len(reqs) == 0 {
		t.Fatal("final capture did not refetch images")
	}
	for _, r := range reqs {
		if !r.CacheBust || !r.IncludeQuery || r.Mode != render.ModeCORS || r.Credentials != render.CredentialsOmit {
			t.Errorf("capture fetch = %+v", r)
		}
	}
}

func TestExportWithoutImages(t *testing.T) {
	doc := scene.New("blank", 40, 30, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{Frame: scene.Rect{W: 40, H: 30}, Fill: color.White}
	}), nil)

	sink := &MemorySink{}
	res, err := newExporter(t, nil).Export(context.Background(), Request{Surface: doc, Filename: "blank"}, sink)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Images != 0 {
		t.Errorf("Images = %d, want 0", res.Images)
	}
	name, data := sink.Last()
	if name != "blank.png" {
		t.Errorf("filename = %q", name)
	}
	if b := decodePNG(t, data).Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("png is %dx%d, want 40x30", b.Dx(), b.Dy())
	}
}

func TestExportImageTimeout(t *testing.T) {
	doc := scene.New("slow", 20, 20, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Image{Frame: scene.Rect{W: 20, H: 20}, Element: r.Image("photo", "https://cdn.example.com/slow.png", true)}
	}), nil)
	defer doc.Close()
	doc.Mount(context.Background(), scene.LoaderFunc(func(ctx context.Context, req scene.LoadRequest) (scene.Resource, error) {
		<-ctx.Done()
		return scene.Resource{}, ctx.Err()
	}))

	start := time.Now()
	exp := newExporter(t, &stubFetcher{}, WithImageTimeout(50*time.Millisecond))
	if _, err := exp.Export(context.Background(), Request{Surface: doc}, &MemorySink{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("export took %v", d)
	}
	if el := doc.Images()[0]; el.Complete() {
		t.Error("slow image should still be pending")
	}
}

func TestAwaitImagesSharesOneTimeout(t *testing.T) {
	doc := scene.New("stuck", 30, 10, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{Frame: scene.Rect{W: 30, H: 10}, Children: []scene.Node{
			&scene.Image{Frame: scene.Rect{W: 10, H: 10}, Element: r.Image("a", "https://cdn.example.com/a.png", true)},
			&scene.Image{Frame: scene.Rect{X: 10, W: 10, H: 10}, Element: r.Image("b", "https://cdn.example.com/b.png", true)},
			&scene.Image{Frame: scene.Rect{X: 20, W: 10, H: 10}, Element: r.Image("c", "https://cdn.example.com/c.png", true)},
		}}
	}), nil)
	defer doc.Close()
	doc.Mount(context.Background(), scene.LoaderFunc(func(ctx context.Context, req scene.LoadRequest) (scene.Resource, error) {
		<-ctx.Done()
		return scene.Resource{}, ctx.Err()
	}))
	imgs := doc.Images()
	if len(imgs) != 3 {
		t.Fatalf("got %d images, want 3", len(imgs))
	}

	const timeout = 150 * time.Millisecond
	start := time.Now()
	if err := AwaitImages(context.Background(), imgs, timeout, nil); err != nil {
		t.Fatalf("AwaitImages: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Errorf("returned after %v, before the %v timeout", elapsed, timeout)
	}
	if elapsed >= 2*timeout {
		t.Errorf("returned after %v, images were awaited one after another", elapsed)
	}
	for _, el := range imgs {
		if el.Complete() {
			t.Errorf("%s completed without loading", el.Src())
		}
	}
}

func TestAwaitImagesNone(t *testing.T) {
	start := time.Now()
	if err := AwaitImages(context.Background(), nil, 10*time.Second, nil); err != nil {
		t.Fatalf("AwaitImages: %v", err)
	}
	if d := time.Since(start); d > 20*time.Millisecond {
		t.Errorf("no images took %v", d)
	}
}

func TestExportCancelledDuringImages(t *testing.T) {
	doc := scene.New("slow", 20, 20, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Image{Frame: scene.Rect{W: 20, H: 20}, Element: r.Image("photo", "https://cdn.example.com/slow.png", true)}
	}), nil)
	defer doc.Close()
	doc.Mount(context.Background(), scene.LoaderFunc(func(ctx context.Context, req scene.LoadRequest) (scene.Resource, error) {
		<-ctx.Done()
		return scene.Resource{}, ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	sink := &MemorySink{}
	_, err := newExporter(t, nil).Export(ctx, Request{Surface: doc}, sink)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("err = %v, want TIMEOUT", err)
	}
	if name, _ := sink.Last(); name != "" {
		t.Error("nothing should be delivered")
	}
}

// stuckSurface never settles.
type stuckSurface struct {
	*scene.Document
	waited chan struct{}
}

func (s stuckSurface) WaitSettled(ctx context.Context) error {
	close(s.waited)
	<-ctx.Done()
	return ctx.Err()
}

func TestExportSettleTimeoutProceeds(t *testing.T) {
	doc := scene.New("stuck", 10, 10, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{Frame: scene.Rect{W: 10, H: 10}}
	}), nil)
	s := stuckSurface{Document: doc, waited: make(chan struct{})}

	exp := newExporter(t, nil, WithSettleTimeout(20*time.Millisecond))
	if _, err := exp.Export(context.Background(), Request{Surface: s}, &MemorySink{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	select {
	case <-s.waited:
	default:
		t.Error("settle signal was never awaited")
	}
}

// plainSurface hides the document's settle signal.
type plainSurface struct{ doc *scene.Document }

func (p plainSurface) Name() string             { return p.doc.Name() }
func (p plainSurface) Size() (int, int)         { return p.doc.Size() }
func (p plainSurface) Root() scene.Node         { return p.doc.Root() }
func (p plainSurface) Images() []*scene.Element { return p.doc.Images() }

func TestExportFixedSettleDelay(t *testing.T) {
	rec := &durationRecorder{}
	observability.SetExportHooks(rec)
	t.Cleanup(observability.Reset)

	doc := scene.New("plain", 10, 10, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{Frame: scene.Rect{W: 10, H: 10}}
	}), nil)
	exp := newExporter(t, nil, WithSettleDelay(30*time.Millisecond))
	if _, err := exp.Export(context.Background(), Request{Surface: plainSurface{doc}}, &MemorySink{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if rec.settle < 30*time.Millisecond {
		t.Errorf("settle took %v, want at least the fixed delay", rec.settle)
	}
}

type durationRecorder struct {
	observability.NoopExportHooks
	settle time.Duration
}

func (r *durationRecorder) OnStageComplete(_ context.Context, _, stage string, d time.Duration, _ error) {
	if stage == StageSettle {
		r.settle = d
	}
}

func TestExportFailedRefetchIsFatal(t *testing.T) {
	rec := recordStages(t)
	f := &stubFetcher{data: solidPNG(t, color.White)}

	doc := sanremo.Post().Document(nil)
	defer doc.Close()
	doc.Mount(context.Background(), f)
	f.err = errors.New(errors.ErrCodeNetwork, "cdn down")

	sink := &MemorySink{}
	res, err := newExporter(t, f).Export(context.Background(), Request{Surface: doc}, sink)
	if !errors.Is(err, errors.ErrCodeRasterize) {
		t.Fatalf("err = %v, want RASTERIZE", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if name, _ := sink.Last(); name != "" {
		t.Error("nothing should be delivered")
	}
	if got := rec.stages[len(rec.stages)-1]; got != StageCapture {
		t.Errorf("last stage = %s, want capture", got)
	}
	if len(rec.errs) != 1 || rec.errs[0] == nil {
		t.Errorf("export completions = %v, want one failure", rec.errs)
	}
}

func TestExportRejectsBadRequests(t *testing.T) {
	exp := newExporter(t, nil)
	doc := scene.New("x", 10, 10, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{}
	}), nil)
	empty := scene.New("empty", 0, 10, scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
		return &scene.Box{}
	}), nil)

	tests := []struct {
		name string
		req  Request
		sink Sink
		code errors.Code
	}{
		{"no surface", Request{}, &MemorySink{}, errors.ErrCodeInvalidInput},
		{"no sink", Request{Surface: doc}, nil, errors.ErrCodeInvalidInput},
		{"bad filename", Request{Surface: doc, Filename: "../x"}, &MemorySink{}, errors.ErrCodeInvalidFilename},
		{"no size", Request{Surface: empty}, &MemorySink{}, errors.ErrCodeRasterize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exp.Export(context.Background(), tt.req, tt.sink)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := FileSink{Dir: dir}
	if err := sink.Deliver(context.Background(), "a.png", []byte("png")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	got, err := os.ReadFile(sink.Path("a.png"))
	if err != nil || string(got) != "png" {
		t.Fatalf("read back = %q, %v", got, err)
	}
	assertNoTempFiles(t, dir)
}

func TestFileSinkFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory in the way makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(dir, "taken.png", "inner"), 0o755); err != nil {
		t.Fatal(err)
	}

	err := FileSink{Dir: dir}.Deliver(context.Background(), "taken.png", []byte("png"))
	if !errors.Is(err, errors.ErrCodeDelivery) {
		t.Fatalf("err = %v, want DELIVERY", err)
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestHTTPSink(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := (HTTPSink{W: rec}).Deliver(context.Background(), "sanremo_post.png", []byte("png")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="sanremo_post.png"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "png" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
