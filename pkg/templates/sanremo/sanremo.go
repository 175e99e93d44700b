// Package sanremo provides the built-in Sanremo artist templates: a
// 1080×1920 story, a 1080×1080 post and a 1920×1080 landscape post.
//
// All three share one visual language: a blurred copy of the artist photo
// as backdrop, a gradient and ambient light orbs tinted with the photo's
// dominant color, the framed photo itself and text set over it. The
// dominant color is derived from the backdrop image once it decodes and
// stays at [palette.Fallback] until then.
package sanremo

import (
	"github.com/matzehuels/templatestudio/pkg/template"
)

// Template IDs.
const (
	StoryID    = "sanremo_story"
	PostID     = "sanremo_post"
	Post16x9ID = "sanremo_post_16x9"
)

const (
	defaultArtist = "Angelica Bove"
	defaultImage  = "https://cdn-images.dzcdn.net/images/cover/53992fc379156c33299fee1870060c14/0x1900-000000-80-0-0.jpg"
	defaultBio1   = "Cantautora italiana nacida en Roma. Su proyecto se inscribe dentro del pop italiano contemporáneo con un enfoque autoral e íntimo."
	defaultBio2   = "Hace su debut en el Ariston como parte de las Nuove Proposte tras participaciones previas en Sanremo Giovani."
	defaultCat    = "Nuove Proposte"
	defaultSong   = "Mattone"
)

var (
	fieldArtist = template.Field{Key: "artistName", Label: "Artist Name", Kind: template.KindText, Placeholder: defaultArtist}
	fieldImage  = template.Field{Key: "artistImageUrl", Label: "Artist Image URL", Kind: template.KindImage, Placeholder: "https://..."}
	fieldCat    = template.Field{Key: "category", Label: "Category", Kind: template.KindText, Placeholder: defaultCat}
	fieldSong   = template.Field{Key: "song", Label: "Song Title", Kind: template.KindText, Placeholder: defaultSong}
)

// Story is the 1080×1920 story template.
func Story() *template.Definition {
	return &template.Definition{
		ID:        StoryID,
		Name:      "Sanremo Story",
		Component: story{},
		Defaults: template.Props{
			"artistName":     defaultArtist,
			"artistImageUrl": defaultImage,
			"bio1":           defaultBio1,
			"bio2":           defaultBio2,
			"category":       defaultCat,
			"song":           defaultSong,
		},
		Fields: []template.Field{
			fieldArtist,
			fieldImage,
			{Key: "bio1", Label: "Biography Paragraph 1", Kind: template.KindTextarea, Rows: 3, Placeholder: "First paragraph of artist bio..."},
			{Key: "bio2", Label: "Biography Paragraph 2", Kind: template.KindTextarea, Rows: 3, Placeholder: "Second paragraph of artist bio..."},
			fieldCat,
			fieldSong,
		},
		Width:        1080,
		Height:       1920,
		GalleryScale: 0.2,
		PreviewScale: 0.3,
	}
}

func postDefaults() template.Props {
	return template.Props{
		"artistName":     defaultArtist,
		"artistImageUrl": defaultImage,
		"bio":            defaultBio1,
		"category":       defaultCat,
		"song":           defaultSong,
	}
}

func postFields() []template.Field {
	return []template.Field{
		fieldArtist,
		fieldImage,
		{Key: "bio", Label: "Biography", Kind: template.KindTextarea, Rows: 4, Placeholder: "Short artist bio..."},
		fieldCat,
		fieldSong,
	}
}

// Post is the 1080×1080 square post template.
func Post() *template.Definition {
	return &template.Definition{
		ID:           PostID,
		Name:         "Sanremo Post",
		Component:    post{},
		Defaults:     postDefaults(),
		Fields:       postFields(),
		Width:        1080,
		Height:       1080,
		GalleryScale: 0.4,
		PreviewScale: 0.6,
	}
}

// Post16x9 is the 1920×1080 landscape post template.
func Post16x9() *template.Definition {
	return &template.Definition{
		ID:           Post16x9ID,
		Name:         "Sanremo Post 16:9",
		Component:    post16x9{},
		Defaults:     postDefaults(),
		Fields:       postFields(),
		Width:        1920,
		Height:       1080,
		GalleryScale: 0.2,
		PreviewScale: 0.35,
	}
}

// Definitions returns fresh copies of all built-in templates in gallery order.
func Definitions() []*template.Definition {
	return []*template.Definition{Story(), Post(), Post16x9()}
}

// Registry returns a registry of the built-in templates.
func Registry() *template.Registry {
	return template.MustRegistry(Definitions()...)
}
