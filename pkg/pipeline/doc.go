// Package pipeline renders scaled template previews and gallery thumbnails.
//
// Previews follow the export pipeline up to the capture, but rasterize at a
// reduced scale and never bust caches:
//
//  1. Wait for fonts and for every image to load or fail.
//  2. Rasterize once at the preview scale so image load hooks fire.
//  3. Wait for the document to settle.
//  4. Rasterize again and encode the PNG.
//
// Results are cached by template, resolved values and scale, so re-opening a
// template in the studio does not re-render it.
//
//	runner := pipeline.NewRunner(c, nil, fetcher, rasterizer, logger)
//	png, hit, err := runner.Preview(ctx, def, values, def.PreviewScale)
//
// [Runner.Gallery] renders the gallery thumbnails of many templates
// concurrently.
//
// Exports never go through this package; see pkg/export.
package pipeline
