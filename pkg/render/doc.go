// Package render turns scene trees into pixels.
//
// # Rasterizer
//
// [Rasterizer.Rasterize] paints a [scene.Node] tree with fogleman/gg and
// disintegration/imaging: rounded boxes with fills, CSS-style linear
// gradients, borders, shadows and backdrop blur; cover-fitted images with
// zoom, blur and opacity; tracked, wrapped text; blurred ambient orbs.
//
//	r := render.NewRasterizer(fontSet, fetcher, logger)
//	img, err := r.Rasterize(ctx, doc.Root(), render.Options{Width: 1080, Height: 1920})
//	data, err := render.EncodePNG(img)
//
// The output is always exactly [Options.OutputSize]. Thumbnails use
// [Options.Scale]; exports never do.
//
// # Fetcher
//
// [Fetcher] downloads images for documents (as a [scene.Loader]) and for
// cache-busting capture passes. It caches bytes through pkg/cache, retries
// transient failures through pkg/httputil, never sends credentials unless
// asked to, and can enforce CORS headers.
package render
