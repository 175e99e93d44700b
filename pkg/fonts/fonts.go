// Package fonts provides the typefaces used by the rasterizer.
//
// A [Set] loads the embedded Go fonts (regular, medium, bold, italic) and,
// optionally, .ttf/.otf files from a directory. Loading happens in the
// background, like a browser's font loading; the exporter's font barrier is
// [Set.WaitReady].
package fonts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/templatestudio/pkg/errors"
)

// Weight selects a face within the set.
type Weight int

const (
	Regular Weight = iota
	Medium
	Bold
	Italic
)

func (w Weight) String() string {
	switch w {
	case Medium:
		return "medium"
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	default:
		return "regular"
	}
}

var embedded = map[Weight][]byte{
	Regular: goregular.TTF,
	Medium:  gomedium.TTF,
	Bold:    gobold.TTF,
	Italic:  goitalic.TTF,
}

// Set is a collection of parsed fonts keyed by weight.
type Set struct {
	ready chan struct{}
	fonts map[Weight]*opentype.Font
	err   error
}

// Load starts loading the embedded fonts plus any font files in dir (which
// may be empty) and returns immediately. Files override the embedded face
// whose weight name appears in the file name ("Inter-Bold.ttf" replaces
// [Bold]); files without a weight name replace [Regular].
func Load(dir string, logger *log.Logger) *Set {
	if logger == nil {
		logger = log.Default()
	}
	s := &Set{ready: make(chan struct{})}
	go func() {
		defer close(s.ready)
		s.fonts, s.err = load(dir, logger)
	}()
	return s
}

var (
	embeddedSet     *Set
	embeddedSetOnce sync.Once
)

// Embedded returns a shared set holding only the embedded Go fonts.
func Embedded() *Set {
	embeddedSetOnce.Do(func() {
		embeddedSet = Load("", nil)
	})
	return embeddedSet
}

func load(dir string, logger *log.Logger) (map[Weight]*opentype.Font, error) {
	sources := make(map[Weight][]byte, len(embedded))
	for w, data := range embedded {
		sources[w] = data
	}

	if dir != "" {
		files, err := fontFiles(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFontLoad, err, "read font dir %s", dir)
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeFontLoad, err, "read font %s", path)
			}
			w := weightFromName(filepath.Base(path))
			logger.Debug("font override", "file", filepath.Base(path), "weight", w)
			sources[w] = data
		}
	}

	var mu sync.Mutex
	out := make(map[Weight]*opentype.Font, len(sources))
	var g errgroup.Group
	for w, data := range sources {
		g.Go(func() error {
			f, err := opentype.Parse(data)
			if err != nil {
				return errors.Wrap(errors.ErrCodeFontLoad, err, "parse %s font", w)
			}
			mu.Lock()
			out[w] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func fontFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".ttf", ".otf":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func weightFromName(name string) Weight {
	lower := strings.ToLower(name)
	for _, w := range []Weight{Bold, Medium, Italic} {
		if strings.Contains(lower, w.String()) {
			return w
		}
	}
	return Regular
}

// Ready returns a channel closed once loading finished, successfully or not.
func (s *Set) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until loading finished and returns the load error, if any.
func (s *Set) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.err
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeFontLoad, ctx.Err(), "waiting for fonts")
	}
}

// Face returns a new face of the given weight and pixel size. Faces are not
// safe for concurrent use, so every caller gets its own. Face must only be
// called after the set is ready; an unknown weight falls back to [Regular].
func (s *Set) Face(w Weight, size float64) (font.Face, error) {
	select {
	case <-s.ready:
	default:
		return nil, errors.New(errors.ErrCodeFontLoad, "fonts not ready")
	}
	if s.err != nil {
		return nil, s.err
	}

	f, ok := s.fonts[w]
	if !ok {
		f = s.fonts[Regular]
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFontLoad, err, "%s face at %.1fpx", w, size)
	}
	return face, nil
}
