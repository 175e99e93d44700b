// Package session holds template editing sessions.
//
// A [Session] is the state behind one editor: the selected template and the
// values committed so far. Values are committed one field at a time, as a
// form does when an input loses focus, and are parsed by field kind on the
// way in. Selecting another template discards them.
//
// Exports run through [Session.Export], which allows one export at a time
// per session:
//
//	s, _ := session.New(registry, "sanremo_story")
//	_ = s.Commit("artistName", "Angelica Bove")
//	res, err := s.Export(ctx, exporter, export.FileSink{Dir: "out"})
//	if errors.Is(err, errors.ErrCodeExportInProgress) {
//	    // another export of this session is still running
//	}
//
// A [Manager] keeps sessions in memory for the local studio server. Nothing
// is persisted.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/scene"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// ErrExportInProgress is returned by [Session.Export] while another export
// of the same session is running.
var ErrExportInProgress = errors.New(errors.ErrCodeExportInProgress, "an export is already in progress")

// Exporter runs one export. [*export.Exporter] implements it.
type Exporter interface {
	Export(ctx context.Context, req export.Request, sink export.Sink) (*export.Result, error)
}

// Session is one editor's template selection and committed values.
type Session struct {
	ID        string
	CreatedAt time.Time

	registry *template.Registry
	loader   scene.Loader
	logger   *log.Logger

	mu        sync.Mutex
	def       *template.Definition
	values    template.Props
	updatedAt time.Time

	exporting atomic.Bool
}

// Option configures a [Session].
type Option func(*Session)

// WithLoader sets the loader used to fetch images of exported documents.
// Without one, images never load and draw as broken images.
func WithLoader(l scene.Loader) Option {
	return func(s *Session) { s.loader = l }
}

// WithLogger sets the logger handed to documents.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session editing templateID.
func New(reg *template.Registry, templateID string, opts ...Option) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		registry:  reg,
		logger:    log.Default(),
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Select(templateID); err != nil {
		return nil, err
	}
	return s, nil
}

// Select switches to templateID and resets the values to its defaults.
// An unknown ID leaves the session unchanged.
func (s *Session) Select(templateID string) error {
	def, err := s.registry.Get(templateID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = def
	s.values = def.DefaultProps()
	s.touch()
	return nil
}

// Template returns the selected template.
func (s *Session) Template() *template.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// Commit parses raw according to the field's kind and stores it. Unknown
// keys and invalid input are rejected and leave the value unchanged.
func (s *Session) Commit(key, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.parse(key, raw)
	if err != nil {
		return err
	}
	s.values[key] = v
	s.touch()
	return nil
}

// Apply commits every value of p. Either all values are applied or, on the
// first invalid one, none are.
func (s *Session) Apply(p template.Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parsed := make(template.Props, len(p))
	for k, v := range p {
		pv, err := s.parse(k, format(v))
		if err != nil {
			return err
		}
		parsed[k] = pv
	}
	for k, v := range parsed {
		s.values[k] = v
	}
	s.touch()
	return nil
}

func (s *Session) parse(key, raw string) (any, error) {
	f, ok := s.def.Field(key)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidField, "template %s has no field %q", s.def.ID, key)
	}
	return f.Parse(raw)
}

func format(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Values returns a copy of the committed values.
func (s *Session) Values() template.Props {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

// Resolved returns the values merged over the template defaults.
func (s *Session) Resolved() template.Props {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def.Resolve(s.values)
}

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() { s.updatedAt = time.Now() }

// Document builds a new, unmounted document of the current values. The
// caller owns it and must Close it.
func (s *Session) Document() *scene.Document {
	s.mu.Lock()
	def, values := s.def, s.values.Clone()
	s.mu.Unlock()
	return def.Document(values, scene.WithLogger(s.logger))
}

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool {
	return s.exporting.Load()
}

// Export renders the current values and delivers them to sink under the
// template's file name. While an export runs, further calls return
// [ErrExportInProgress] without doing anything.
func (s *Session) Export(ctx context.Context, exp Exporter, sink export.Sink) (*export.Result, error) {
	return s.ExportAs(ctx, exp, sink, "")
}

// ExportAs is like [Session.Export] with a caller-chosen file name. An empty
// name means the template's file name.
func (s *Session) ExportAs(ctx context.Context, exp Exporter, sink export.Sink, filename string) (*export.Result, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer s.exporting.Store(false)

	if filename == "" {
		filename = s.Template().Filename()
	}
	doc := s.Document()
	defer doc.Close()
	if s.loader != nil {
		doc.Mount(ctx, s.loader)
	}
	return exp.Export(ctx, export.Request{Surface: doc, Filename: filename}, sink)
}
