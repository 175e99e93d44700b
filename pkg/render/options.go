package render

import "github.com/matzehuels/templatestudio/pkg/errors"

// Fetch modes, after the fetch API.
const (
	ModeCORS   = "cors"
	ModeNoCORS = "no-cors"
)

// Credentials policies, after the fetch API.
const (
	CredentialsOmit    = "omit"
	CredentialsInclude = "include"
)

// FetchOptions controls how a capture fetches embedded resources.
type FetchOptions struct {
	Mode        string
	Credentials string
}

// Options configures one rasterization pass.
type Options struct {
	// Width and Height are the composition size in pixels.
	Width, Height int

	// PixelRatio multiplies the output size. Zero means 1.
	PixelRatio float64

	// Scale shrinks the output for gallery and preview thumbnails. Zero
	// means 1. Exports never scale.
	Scale float64

	// CacheBust refetches every image with a unique query parameter,
	// bypassing every cache.
	CacheBust bool

	// IncludeQueryParams keeps query strings in image cache keys.
	IncludeQueryParams bool

	Fetch FetchOptions
}

// factor is the total output scale.
func (o Options) factor() float64 {
	f := 1.0
	if o.PixelRatio > 0 {
		f *= o.PixelRatio
	}
	if o.Scale > 0 {
		f *= o.Scale
	}
	return f
}

// OutputSize returns the pixel size Rasterize produces for o.
func (o Options) OutputSize() (int, int) {
	f := o.factor()
	return max(1, int(float64(o.Width)*f+0.5)), max(1, int(float64(o.Height)*f+0.5))
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return errors.New(errors.ErrCodeRasterize, "surface has no size (%dx%d)", o.Width, o.Height)
	}
	if o.PixelRatio < 0 || o.Scale < 0 || o.Scale > 1 {
		return errors.New(errors.ErrCodeRasterize, "invalid pixel ratio %.2f or scale %.2f", o.PixelRatio, o.Scale)
	}
	return nil
}
