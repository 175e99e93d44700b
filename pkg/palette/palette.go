// Package palette derives accent colors from image content.
//
// [Dominant] is a pure function over pixels: the square root of the
// alpha-weighted mean of squared channel values, computed on a copy
// downsampled to at most 100×100. The square-root mean keeps saturated
// regions from being washed out the way a plain arithmetic mean would.
//
// Templates call it from an image load hook and store the result in the
// document state; every error here is recoverable and callers keep the
// previous color (see [Fallback]).
package palette

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Fallback is the accent color used until an image has been sampled.
const Fallback = "#10b981"

// sampleSize bounds the downsampled copy on each axis.
const sampleSize = 100

var (
	// ErrEmptyImage is returned for a nil image or one with zero natural dimensions.
	ErrEmptyImage = errors.New("palette: image has no pixels")

	// ErrTransparent is returned when every sampled pixel is fully transparent.
	ErrTransparent = errors.New("palette: image is fully transparent")

	// ErrTainted is returned when the pixels may not be read, e.g. an image
	// loaded cross-origin without CORS permission.
	ErrTainted = errors.New("palette: image is tainted by cross-origin data")
)

// Source is a loaded image element whose pixels may or may not be readable.
type Source interface {
	Decoded() image.Image
	Tainted() bool
}

// FromSource samples a loaded image element.
func FromSource(src Source) (colorful.Color, error) {
	if src.Tainted() {
		return colorful.Color{}, ErrTainted
	}
	return Dominant(src.Decoded())
}

// Dominant returns the dominant color of img.
func Dominant(img image.Image) (colorful.Color, error) {
	if img == nil {
		return colorful.Color{}, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return colorful.Color{}, ErrEmptyImage
	}

	var sample *image.NRGBA
	if b.Dx() > sampleSize || b.Dy() > sampleSize {
		sample = imaging.Fit(img, sampleSize, sampleSize, imaging.Box)
	} else {
		sample = imaging.Clone(img)
	}

	var r, g, bl, weight float64
	pix := sample.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		a := float64(pix[i+3])
		if a == 0 {
			continue
		}
		cr, cg, cb := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		r += cr * cr * a
		g += cg * cg * a
		bl += cb * cb * a
		weight += a
	}
	if weight == 0 {
		return colorful.Color{}, ErrTransparent
	}

	return colorful.Color{
		R: math.Sqrt(r/weight) / 255,
		G: math.Sqrt(g/weight) / 255,
		B: math.Sqrt(bl/weight) / 255,
	}, nil
}

// Hex formats c as #rrggbb.
func Hex(c colorful.Color) string {
	return c.Clamped().Hex()
}

// ParseHex parses #rrggbb or #rgb.
func ParseHex(s string) (colorful.Color, error) {
	return colorful.Hex(s)
}

// MustParseHex is like [ParseHex] but panics on malformed input. It is meant
// for package-level color literals.
func MustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
