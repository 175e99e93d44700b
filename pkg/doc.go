// Package pkg provides the core libraries for Template Studio.
//
// # Overview
//
// Template Studio fills social media templates with text and images and
// exports them as PNG files of exact pixel size. The pkg directory is
// organized into these areas:
//
//  1. [scene], [template], [templates] - Compositions: retained element
//     trees, template definitions and the built-in templates
//  2. [render], [fonts], [palette] - Pixels: rasterizing, fonts and
//     dominant-color extraction
//  3. [export], [pipeline] - Orchestration: full-size exports and cached
//     previews
//  4. [session], [io] - Editing state and values files
//  5. [cache], [config], [errors], [observability], [httputil], [buildinfo] -
//     Infrastructure
//
// # Architecture
//
// The typical data flow of an export:
//
//	Template definition + field values
//	         ↓
//	    [session] (validate and commit values)
//	         ↓
//	    [scene] document (mount, load images, derive dominant color)
//	         ↓
//	    [export] (fonts → images → warm-up → settle → capture → deliver)
//	         ↓
//	    PNG file or HTTP download
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/templatestudio/pkg/export"
//	    "github.com/matzehuels/templatestudio/pkg/render"
//	    "github.com/matzehuels/templatestudio/pkg/session"
//	    "github.com/matzehuels/templatestudio/pkg/templates/sanremo"
//	)
//
//	fetcher := render.NewFetcher()
//	exp := export.New(nil, render.NewRasterizer(nil, fetcher, nil))
//
//	sess, _ := session.New(sanremo.Registry(), sanremo.PostID, session.WithLoader(fetcher))
//	_ = sess.Commit("artistName", "Someone")
//	res, err := sess.Export(context.Background(), exp, export.FileSink{Dir: "out"})
package pkg
