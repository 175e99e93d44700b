package scene

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"

	// Image formats a template may reference.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// LoadState is the load progress of an [Element].
type LoadState int

const (
	Pending LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// ErrNotLoaded is returned by [Element.Decode] for pending or failed elements.
var ErrNotLoaded = errors.New("scene: image not loaded")

// LoadRequest describes one image fetch.
type LoadRequest struct {
	Src string
	// CrossOrigin requests the image in CORS mode. A CORS-mode load that the
	// server does not permit fails instead of producing a tainted image.
	CrossOrigin bool
}

// Resource is the result of a successful load.
type Resource struct {
	Data []byte
	// Tainted marks pixels that must not be read back, e.g. a cross-origin
	// image loaded without CORS permission.
	Tainted bool
}

// Loader fetches image bytes.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) (Resource, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context, req LoadRequest) (Resource, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, req LoadRequest) (Resource, error) {
	return f(ctx, req)
}

type hook struct {
	key   string
	fn    func(*Element)
	fired bool
}

// Element is a loadable image, the counterpart of an <img> element.
type Element struct {
	src         string
	crossOrigin bool
	done        chan struct{}
	schedule    func(func())

	mu      sync.Mutex
	state   LoadState
	started bool
	data    []byte
	tainted bool
	err     error
	width   int
	height  int
	decoded image.Image
	hooks   []*hook
}

// NewElement returns a pending element that is not attached to a document.
// Its load hooks run on their own goroutines.
func NewElement(src string, crossOrigin bool) *Element {
	return newElement(src, crossOrigin, func(fn func()) { go fn() })
}

func newElement(src string, crossOrigin bool, schedule func(func())) *Element {
	return &Element{
		src:         src,
		crossOrigin: crossOrigin,
		done:        make(chan struct{}),
		schedule:    schedule,
	}
}

// Src returns the image URL.
func (e *Element) Src() string { return e.src }

// CrossOrigin reports whether the element loads in CORS mode.
func (e *Element) CrossOrigin() bool { return e.crossOrigin }

// Done is closed once the element has either loaded or failed.
func (e *Element) Done() <-chan struct{} { return e.done }

// State returns the current load state.
func (e *Element) State() LoadState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Complete reports whether loading has finished, successfully or not.
func (e *Element) Complete() bool {
	return e.State() != Pending
}

// Err returns the load error of a failed element.
func (e *Element) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// NaturalWidth returns the intrinsic width, or 0 until loaded.
func (e *Element) NaturalWidth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width
}

// NaturalHeight returns the intrinsic height, or 0 until loaded.
func (e *Element) NaturalHeight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height
}

// Tainted reports whether the pixels are unreadable.
func (e *Element) Tainted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tainted
}

// Bytes returns the loaded encoded bytes.
func (e *Element) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data
}

// Decoded returns the decoded pixels, or nil before the first [Element.Decode].
func (e *Element) Decoded() image.Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decoded
}

// begin marks the element as being fetched. It reports false if a fetch was
// already started.
func (e *Element) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return false
	}
	e.started = true
	return true
}

// Resolve completes loading with either a resource or an error and fires
// the load-or-error event. Only the first call has an effect.
func (e *Element) Resolve(res Resource, err error) {
	e.mu.Lock()
	if e.state != Pending {
		e.mu.Unlock()
		return
	}
	e.started = true
	if err == nil {
		cfg, _, cerr := image.DecodeConfig(bytes.NewReader(res.Data))
		if cerr != nil {
			err = cerr
		} else {
			e.width, e.height = cfg.Width, cfg.Height
		}
	}
	if err != nil {
		e.state = Failed
		e.err = err
	} else {
		e.state = Loaded
		e.data = res.Data
		e.tainted = res.Tainted
	}
	e.mu.Unlock()
	close(e.done)
}

// Decode returns the decoded pixels, decoding on first use. The first
// successful decode fires every registered load hook.
func (e *Element) Decode() (image.Image, error) {
	e.mu.Lock()
	if e.state != Loaded {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if e.decoded != nil {
		img := e.decoded
		e.mu.Unlock()
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(e.data))
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.decoded = img
	due := e.due()
	e.mu.Unlock()

	e.fire(due)
	return img, nil
}

// OnLoad registers fn under key. It runs once, after the first successful
// decode; registering under a key that already fired only replaces the
// function. Registering on an element that is already decoded fires the
// new hook right away.
func (e *Element) OnLoad(key string, fn func(*Element)) {
	e.mu.Lock()
	for _, h := range e.hooks {
		if h.key == key {
			h.fn = fn
			e.mu.Unlock()
			return
		}
	}
	e.hooks = append(e.hooks, &hook{key: key, fn: fn})
	var due []func(*Element)
	if e.decoded != nil {
		due = e.due()
	}
	e.mu.Unlock()

	e.fire(due)
}

// due marks unfired hooks as fired and returns them. Callers hold e.mu.
func (e *Element) due() []func(*Element) {
	var out []func(*Element)
	for _, h := range e.hooks {
		if !h.fired {
			h.fired = true
			out = append(out, h.fn)
		}
	}
	return out
}

func (e *Element) fire(fns []func(*Element)) {
	for _, fn := range fns {
		e.schedule(func() { fn(e) })
	}
}
