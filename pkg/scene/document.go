package scene

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Props is a property bag: field key to value.
type Props map[string]any

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns p[key] as a string. Missing keys yield "".
func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns p[key] as a number. Missing or malformed values yield 0.
func (p Props) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

// Component renders a composition from the renderer's props and state.
type Component interface {
	Render(r *Renderer) Node
}

// ComponentFunc adapts a function to [Component].
type ComponentFunc func(r *Renderer) Node

// Render calls f.
func (f ComponentFunc) Render(r *Renderer) Node { return f(r) }

// Option configures a [Document].
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithState seeds component-local state.
func WithState(key string, v any) Option {
	return func(d *Document) { d.state[key] = v }
}

// Document hosts a component instance: props, local state, the rendered
// tree and the image elements it references.
type Document struct {
	name      string
	width     int
	height    int
	component Component
	logger    *log.Logger

	mu       sync.Mutex
	props    Props
	state    map[string]any
	root     Node
	renders  int
	elements map[string]*Element
	loader   Loader
	loadCtx  context.Context
	cancel   context.CancelFunc

	track   sync.Mutex
	pending int
	idle    chan struct{}
}

// New creates a document of the given pixel size and renders it once.
// Nothing is loaded until [Document.Mount].
func New(name string, width, height int, c Component, props Props, opts ...Option) *Document {
	d := &Document{
		name:      name,
		width:     width,
		height:    height,
		component: c,
		logger:    log.Default(),
		props:     props.Clone(),
		state:     make(map[string]any),
		elements:  make(map[string]*Element),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.mu.Lock()
	d.render()
	d.mu.Unlock()
	return d
}

// Name identifies the document in logs and default file names.
func (d *Document) Name() string { return d.name }

// Size returns the declared composition size in pixels.
func (d *Document) Size() (int, int) { return d.width, d.height }

// Logger returns the document logger.
func (d *Document) Logger() *log.Logger { return d.logger }

// Mount attaches a loader and starts loading every image element, now and
// after future re-renders. Loads are cancelled by ctx or [Document.Close].
func (d *Document) Mount(ctx context.Context, loader Loader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.loadCtx, d.cancel = context.WithCancel(ctx)
	d.loader = loader
	for _, el := range d.elements {
		d.startLoad(el)
	}
}

// Close cancels in-flight loads.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Root returns the current composition tree.
func (d *Document) Root() Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Images returns the elements referenced by the current tree.
func (d *Document) Images() []*Element {
	return Images(d.Root())
}

// Renders returns how many times the component has rendered.
func (d *Document) Renders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders
}

// Props returns a copy of the current props.
func (d *Document) Props() Props {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props.Clone()
}

// SetProps replaces the props and re-renders.
func (d *Document) SetProps(p Props) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props = p.Clone()
	d.render()
}

// State returns a component-local state value.
func (d *Document) State(key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[key]
	return v, ok
}

// SetState stores a component-local state value and re-renders. Setting a
// comparable value equal to the current one does not re-render.
func (d *Document) SetState(key string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.state[key]; ok && equal(old, v) {
		return
	}
	d.state[key] = v
	d.render()
}

func equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Go runs fn as a tracked derivation. [Document.WaitSettled] waits for it.
func (d *Document) Go(fn func()) {
	d.track.Lock()
	if d.pending == 0 {
		d.idle = make(chan struct{})
	}
	d.pending++
	d.track.Unlock()

	go func() {
		defer d.finish()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("derivation panicked", "document", d.name, "panic", r)
			}
		}()
		fn()
	}()
}

func (d *Document) finish() {
	d.track.Lock()
	defer d.track.Unlock()
	d.pending--
	if d.pending == 0 {
		close(d.idle)
	}
}

// WaitSettled blocks until no derivation is running. Re-renders happen
// synchronously inside SetState, so a settled document has rendered every
// state change its derivations made.
func (d *Document) WaitSettled(ctx context.Context) error {
	for {
		d.track.Lock()
		if d.pending == 0 {
			d.track.Unlock()
			return nil
		}
		idle := d.idle
		d.track.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// render re-renders the component. Callers hold d.mu.
func (d *Document) render() {
	r := &Renderer{doc: d, seen: make(map[string]bool)}
	d.root = d.component.Render(r)
	d.renders++

	for id := range d.elements {
		if !r.seen[id] {
			delete(d.elements, id)
		}
	}
}

// element reconciles an image element. Callers hold d.mu.
func (d *Document) element(id, src string, crossOrigin bool) *Element {
	if el, ok := d.elements[id]; ok && el.src == src && el.crossOrigin == crossOrigin {
		return el
	}
	el := newElement(src, crossOrigin, d.Go)
	d.elements[id] = el
	d.startLoad(el)
	return el
}

// startLoad fetches el if the document is mounted. Callers hold d.mu.
func (d *Document) startLoad(el *Element) {
	if d.loader == nil || !el.begin() {
		return
	}
	ctx, loader, logger := d.loadCtx, d.loader, d.logger
	go func() {
		res, err := loader.Load(ctx, LoadRequest{Src: el.src, CrossOrigin: el.crossOrigin})
		el.Resolve(res, err)
		if err := el.Err(); err != nil {
			logger.Warn("image failed to load", "document", d.name, "src", el.src, "err", err)
			return
		}
		logger.Debug("image loaded", "document", d.name, "src", el.src,
			"width", el.NaturalWidth(), "height", el.NaturalHeight())
	}()
}

// Renderer is handed to [Component.Render]. It exposes the props and state
// of the document being rendered.
type Renderer struct {
	doc  *Document
	seen map[string]bool
}

// Props returns the props being rendered. Do not modify.
func (r *Renderer) Props() Props { return r.doc.props }

// Size returns the document size.
func (r *Renderer) Size() (int, int) { return r.doc.width, r.doc.height }

// State returns a state value or fallback when unset.
func (r *Renderer) State(key string, fallback any) any {
	if v, ok := r.doc.state[key]; ok {
		return v
	}
	return fallback
}

// Image returns the element for id, reusing the previous render's element
// when its source is unchanged.
func (r *Renderer) Image(id, src string, crossOrigin bool) *Element {
	r.seen[id] = true
	return r.doc.element(id, src, crossOrigin)
}

// Document returns the document being rendered, for use inside load hooks.
// Calling document methods during Render deadlocks.
func (r *Renderer) Document() *Document { return r.doc }
