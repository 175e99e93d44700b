// Package template defines template metadata and the registry that holds it.
//
// A [Definition] pairs a [scene.Component] with the fixed pixel size it is
// exported at, its default property bag and the field descriptors the
// editing UI generates a form from. Definitions are immutable once
// registered; a [Registry] is built once at start-up and passed to whatever
// needs it.
package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// Props is a template property bag.
type Props = scene.Props

// Kind is the input kind of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindNumber   Kind = "number"
	KindImage    Kind = "image"
)

// Bounds constrains a number field. Step is a UI hint only.
type Bounds struct {
	Min, Max, Step float64
}

// Field describes one editable property.
type Field struct {
	Key         string
	Label       string
	Kind        Kind
	Placeholder string
	Bounds      *Bounds
	Rows        int
}

// Parse converts raw form input into a property value for this field.
// Empty text is a valid value. Numbers must parse and respect the bounds;
// image references must be empty or an http(s) URL.
func (f Field) Parse(raw string) (any, error) {
	switch f.Kind {
	case KindNumber:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeInvalidField, "%s must be a number", f.Label)
		}
		if b := f.Bounds; b != nil && (v < b.Min || v > b.Max) {
			return nil, errors.New(errors.ErrCodeInvalidField, "%s must be between %g and %g", f.Label, b.Min, b.Max)
		}
		return v, nil
	case KindImage:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return raw, nil
		}
		if err := errors.ValidateImageURL(raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// Definition is an immutable template record.
type Definition struct {
	ID        string
	Name      string
	Component scene.Component
	Defaults  Props
	Fields    []Field
	Width     int
	Height    int

	// GalleryScale and PreviewScale size the on-screen thumbnails. They are
	// never applied to exports.
	GalleryScale float64
	PreviewScale float64
}

// Field returns the descriptor for key.
func (d *Definition) Field(key string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultProps returns a fresh copy of the default property bag.
func (d *Definition) DefaultProps() Props {
	return d.Defaults.Clone()
}

// Resolve merges values over the defaults, dropping keys that are not fields.
func (d *Definition) Resolve(values Props) Props {
	out := d.DefaultProps()
	for k, v := range values {
		if _, ok := d.Field(k); ok {
			out[k] = v
		}
	}
	return out
}

// Document builds a scene document rendering this template with values.
func (d *Definition) Document(values Props, opts ...scene.Option) *scene.Document {
	return scene.New(d.ID, d.Width, d.Height, d.Component, d.Resolve(values), opts...)
}

func (d *Definition) clone() *Definition {
	c := *d
	c.Defaults = d.Defaults.Clone()
	c.Fields = make([]Field, len(d.Fields))
	for i, f := range d.Fields {
		if f.Bounds != nil {
			b := *f.Bounds
			f.Bounds = &b
		}
		c.Fields[i] = f
	}
	return &c
}

// Filename is the default export file name.
func (d *Definition) Filename() string {
	return d.ID + ".png"
}

func (d *Definition) validate() error {
	bad := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidTemplate, "template %q: %s", d.ID, fmt.Sprintf(format, args...))
	}

	if err := errors.ValidateTemplateID(d.ID); err != nil {
		return err
	}
	switch {
	case d.Name == "":
		return bad("missing name")
	case d.Component == nil:
		return bad("missing component")
	case d.Width <= 0 || d.Height <= 0:
		return bad("size %dx%d must be positive", d.Width, d.Height)
	case d.GalleryScale <= 0 || d.GalleryScale > 1:
		return bad("gallery scale %g must be in (0, 1]", d.GalleryScale)
	case d.PreviewScale <= 0 || d.PreviewScale > 1:
		return bad("preview scale %g must be in (0, 1]", d.PreviewScale)
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Key == "" {
			return bad("field with empty key")
		}
		if seen[f.Key] {
			return bad("duplicate field %q", f.Key)
		}
		seen[f.Key] = true

		switch f.Kind {
		case KindText, KindTextarea, KindNumber, KindImage:
		default:
			return bad("field %q has unknown kind %q", f.Key, f.Kind)
		}
		if _, ok := d.Defaults[f.Key]; !ok {
			return bad("field %q has no default value", f.Key)
		}
		if f.Bounds != nil && f.Bounds.Min > f.Bounds.Max {
			return bad("field %q has min > max", f.Key)
		}
	}
	return nil
}
