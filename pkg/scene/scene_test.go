package scene

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func staticLoader(data []byte) Loader {
	return LoaderFunc(func(ctx context.Context, req LoadRequest) (Resource, error) {
		return Resource{Data: data}, nil
	})
}

// photoComponent renders one image whose load hook stores its width in state.
func photoComponent(hooks *atomic.Int32) Component {
	return ComponentFunc(func(r *Renderer) Node {
		el := r.Image("photo", r.Props().String("src"), true)
		doc := r.Document()
		el.OnLoad("measure", func(el *Element) {
			hooks.Add(1)
			doc.SetState("width", el.NaturalWidth())
		})
		return &Box{
			Frame: Rect{W: 100, H: 100},
			Children: []Node{
				&Image{Frame: Rect{W: 100, H: 100}, Element: el},
				&Text{Content: r.Props().String("title")},
			},
		}
	})
}

func waitDone(t *testing.T, el *Element) {
	t.Helper()
	select {
	case <-el.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("element never finished loading")
	}
}

func TestMountLoadsImages(t *testing.T) {
	var hooks atomic.Int32
	doc := New("photo", 100, 100, photoComponent(&hooks), Props{"src": "https://cdn.example.com/a.png"})
	defer doc.Close()

	imgs := doc.Images()
	if len(imgs) != 1 {
		t.Fatalf("Images() = %d elements, want 1", len(imgs))
	}
	el := imgs[0]
	if el.Complete() {
		t.Fatal("element should be pending before Mount")
	}

	doc.Mount(context.Background(), staticLoader(pngBytes(t, 4, 3, color.White)))
	waitDone(t, el)

	if el.State() != Loaded {
		t.Fatalf("state = %v, want loaded", el.State())
	}
	if el.NaturalWidth() != 4 || el.NaturalHeight() != 3 {
		t.Errorf("natural size = %dx%d, want 4x3", el.NaturalWidth(), el.NaturalHeight())
	}
	if el.Decoded() != nil {
		t.Error("loading must not decode")
	}
	if hooks.Load() != 0 {
		t.Error("hooks must not fire before decode")
	}
}

func TestFailedLoadCompletes(t *testing.T) {
	el := NewElement("https://cdn.example.com/missing.png", true)
	el.Resolve(Resource{}, errors.New("404"))

	waitDone(t, el)
	if !el.Complete() || el.State() != Failed {
		t.Errorf("state = %v, want failed", el.State())
	}
	if el.NaturalHeight() != 0 {
		t.Error("failed element should have no natural height")
	}
	if _, err := el.Decode(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Decode err = %v, want ErrNotLoaded", err)
	}
}

func TestCorruptImageFails(t *testing.T) {
	el := NewElement("https://cdn.example.com/a.png", false)
	el.Resolve(Resource{Data: []byte("<html>not an image</html>")}, nil)
	if el.State() != Failed {
		t.Errorf("state = %v, want failed", el.State())
	}
}

func TestDecodeFiresHooksOnceAndSettles(t *testing.T) {
	var hooks atomic.Int32
	doc := New("photo", 100, 100, photoComponent(&hooks), Props{"src": "https://cdn.example.com/a.png"})
	defer doc.Close()
	doc.Mount(context.Background(), staticLoader(pngBytes(t, 7, 5, color.Black)))

	el := doc.Images()[0]
	waitDone(t, el)

	for range 3 {
		if _, err := el.Decode(); err != nil {
			t.Fatalf("Decode: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := doc.WaitSettled(ctx); err != nil {
		t.Fatalf("WaitSettled: %v", err)
	}

	if got := hooks.Load(); got != 1 {
		t.Errorf("hook ran %d times, want 1", got)
	}
	if v, _ := doc.State("width"); v != 7 {
		t.Errorf("state width = %v, want 7", v)
	}
	// The re-render caused by the hook reuses the loaded element.
	if doc.Images()[0] != el {
		t.Error("re-render should reuse the element")
	}
}

func TestOnLoadAfterDecodeFiresImmediately(t *testing.T) {
	el := NewElement("https://cdn.example.com/a.png", true)
	el.Resolve(Resource{Data: pngBytes(t, 2, 2, color.White)}, nil)
	if _, err := el.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	fired := make(chan struct{})
	el.OnLoad("late", func(*Element) { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("late hook never fired")
	}
}

func TestReconcileElements(t *testing.T) {
	var hooks atomic.Int32
	doc := New("photo", 100, 100, photoComponent(&hooks), Props{"src": "https://cdn.example.com/a.png"})
	first := doc.Images()[0]

	doc.SetProps(Props{"src": "https://cdn.example.com/a.png", "title": "changed"})
	if doc.Images()[0] != first {
		t.Error("unchanged src should keep the element")
	}

	doc.SetProps(Props{"src": "https://cdn.example.com/b.png"})
	if doc.Images()[0] == first {
		t.Error("new src should create a new element")
	}
}

func TestSetStateSameValueSkipsRender(t *testing.T) {
	var hooks atomic.Int32
	doc := New("photo", 100, 100, photoComponent(&hooks), nil)

	doc.SetState("dominant", "#ff0000")
	n := doc.Renders()
	doc.SetState("dominant", "#ff0000")
	if doc.Renders() != n {
		t.Error("equal state should not re-render")
	}
	doc.SetState("dominant", "#00ff00")
	if doc.Renders() != n+1 {
		t.Error("changed state should re-render")
	}
}

func TestWaitSettledTimesOut(t *testing.T) {
	var hooks atomic.Int32
	doc := New("photo", 100, 100, photoComponent(&hooks), nil)

	release := make(chan struct{})
	doc.Go(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := doc.WaitSettled(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitSettled err = %v, want deadline exceeded", err)
	}
}

func TestPropsAccessors(t *testing.T) {
	p := Props{"name": "Angelica", "size": 12.5, "count": 3, "raw": " 4.5 ", "empty": ""}

	tests := []struct {
		key     string
		wantStr string
		wantNum float64
	}{
		{"name", "Angelica", 0},
		{"size", "12.5", 12.5},
		{"count", "3", 3},
		{"raw", " 4.5 ", 4.5},
		{"empty", "", 0},
		{"missing", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := p.String(tt.key); got != tt.wantStr {
				t.Errorf("String = %q, want %q", got, tt.wantStr)
			}
			if got := p.Float(tt.key); got != tt.wantNum {
				t.Errorf("Float = %v, want %v", got, tt.wantNum)
			}
		})
	}
}

func TestWalkOrder(t *testing.T) {
	a, b := NewElement("a", false), NewElement("b", false)
	root := &Box{Children: []Node{
		&Image{Element: a},
		&Box{Children: []Node{&Image{Element: b}, &Image{Element: a}}},
	}}

	got := Images(root)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Images = %v, want [a b]", got)
	}
}
