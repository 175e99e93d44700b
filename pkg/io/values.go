package io

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// Format is a values file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Values is the content of a values file.
type Values struct {
	Template string      `json:"template,omitempty" yaml:"template,omitempty"`
	Values   scene.Props `json:"values" yaml:"values"`
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "unsupported values file %s (want .json, .yaml or .yml)", filepath.Base(path))
	}
}

// ReadValues decodes a values document from r. ReadValues does not close r.
func ReadValues(r io.Reader, format Format) (*Values, error) {
	var v Values
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&v)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&v)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported values format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s values", format)
	}
	if v.Template != "" {
		if err := errors.ValidateTemplateID(v.Template); err != nil {
			return nil, err
		}
	}
	if v.Values, err = normalize(v.Values); err != nil {
		return nil, err
	}
	return &v, nil
}

// normalize checks that every value is a scalar and turns numbers into
// float64.
func normalize(p scene.Props) (scene.Props, error) {
	out := make(scene.Props, len(p))
	for k, v := range p {
		switch n := v.(type) {
		case string, float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case uint64:
			out[k] = float64(n)
		case nil:
			out[k] = ""
		default:
			return nil, errors.New(errors.ErrCodeInvalidField, "value %q must be a string or a number, got %T", k, v)
		}
	}
	return out, nil
}

// ImportValues reads the values file at path. The format follows the file
// extension.
func ImportValues(path string) (*Values, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "values file %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	return ReadValues(f, format)
}

// WriteValues encodes v as indented JSON.
func WriteValues(v *Values, w io.Writer) error {
	out := *v
	if out.Values == nil {
		out.Values = scene.Props{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode values")
	}
	return nil
}

// ExportValues writes v to path as JSON.
func ExportValues(v *Values, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	if err := WriteValues(v, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "close %s", path)
	}
	return nil
}
