// Package export captures a rendered template as a pixel-exact PNG.
//
// An export runs six stages in strict order:
//
//  1. fonts: wait until the font set is ready.
//  2. images: wait for every image element of the surface to load or fail,
//     each bounded by an image timeout. Images that time out are drawn as
//     broken images.
//  3. warmup: rasterize once and discard the result. Decoding images fires
//     their load hooks, which is how templates derive the dominant color.
//  4. settle: wait for the surface to report that derived state has been
//     rendered, or for a short fixed delay when it cannot report that.
//  5. capture: rasterize again with every image refetched under a
//     cache-busting URL, in CORS mode without credentials.
//  6. deliver: encode as PNG and hand the bytes to a [Sink].
//
// A failure at any stage aborts the export with one coded error. Nothing is
// retried and a [FileSink] never leaves a partial file behind.
//
//	exp := export.New(fontSet, rasterizer, export.WithLogger(logger))
//	res, err := exp.Export(ctx, export.Request{Surface: doc}, export.FileSink{Dir: "out"})
//
// The exporter itself has no re-entrancy guard. Callers serialize exports
// per surface; pkg/session does this with its exporting flag.
package export
