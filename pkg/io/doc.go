// Package io reads and writes template values files.
//
// A values file pairs an optional template ID with a flat property bag:
//
//	{
//	  "template": "sanremo_story",
//	  "values": {
//	    "artistName": "Angelica Bove",
//	    "song": "Mattone"
//	  }
//	}
//
// The same shape is accepted as YAML:
//
//	template: sanremo_post
//	values:
//	  artistName: Angelica Bove
//	  song: Mattone
//
// Values must be strings or numbers. Numbers are always returned as float64,
// whichever format they were read from. Keys are not checked against a
// template here; pkg/session validates them when the bag is applied.
//
// Use [ImportValues] and [ExportValues] for files, [ReadValues] and
// [WriteValues] for streams. Files are always written as indented JSON.
package io
