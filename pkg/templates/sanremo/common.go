package sanremo

import (
	"image/color"
	"unicode/utf8"

	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/palette"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

// stateDominant is the document state key holding the accent color.
const stateDominant = "dominant"

// longName is the rune count above which the artist name is set smaller.
const longName = 17

var (
	gray900 = color.NRGBA{R: 17, G: 24, B: 39, A: 255}
	slate   = color.NRGBA{R: 15, G: 23, B: 42, A: 255}
)

func white(a float64) color.NRGBA {
	return color.NRGBA{R: 255, G: 255, B: 255, A: alpha(a)}
}

func black(a float64) color.NRGBA {
	return color.NRGBA{A: alpha(a)}
}

func alpha(a float64) uint8 {
	return uint8(a*255 + 0.5)
}

func fade(c color.NRGBA, a float64) color.NRGBA {
	c.A = alpha(a)
	return c
}

// accent parses the dominant color and applies alpha. Malformed state falls
// back to the default accent.
func accent(hex string, a float64) color.NRGBA {
	c, err := palette.ParseHex(hex)
	if err != nil {
		c = palette.MustParseHex(palette.Fallback)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha(a)}
}

func dominant(r *scene.Renderer) string {
	if s, ok := r.State(stateDominant, palette.Fallback).(string); ok {
		return s
	}
	return palette.Fallback
}

// trackDominant samples el once it decodes and stores the result as the
// accent color. Sampling failures keep the current color.
func trackDominant(r *scene.Renderer, el *scene.Element) {
	doc := r.Document()
	el.OnLoad(stateDominant, func(el *scene.Element) {
		c, err := palette.FromSource(el)
		if err != nil {
			doc.Logger().Warn("cannot derive dominant color", "template", doc.Name(), "src", el.Src(), "err", err)
			return
		}
		hex := palette.Hex(c)
		doc.Logger().Debug("dominant color", "template", doc.Name(), "color", hex)
		doc.SetState(stateDominant, hex)
	})
}

func nameSize(name string, long, normal float64) float64 {
	if utf8.RuneCountInString(name) > longName {
		return long
	}
	return normal
}

type orbSpec struct {
	cx, cy, radius float64
}

// backdrop returns the layers shared by every Sanremo template: blurred
// photo, dominant gradient, a softer second photo layer and ambient orbs.
func backdrop(r *scene.Renderer, src string, orbs []orbSpec) []scene.Node {
	w, h := r.Size()
	full := scene.Rect{W: float64(w), H: float64(h)}
	accentHex := dominant(r)

	var nodes []scene.Node
	var bg *scene.Element
	if src != "" {
		bg = r.Image("background", src, true)
		trackDominant(r, bg)
		nodes = append(nodes, &scene.Image{Frame: full, Element: bg, Scale: 1.1, Blur: 16})
	}
	nodes = append(nodes, &scene.Box{
		Frame: full,
		Gradient: &scene.Gradient{Angle: 180, Stops: []scene.Stop{
			{Offset: 0, Color: accent(accentHex, float64(0x99)/255)},
			{Offset: 0.5, Color: fade(slate, 0.85)},
			{Offset: 1, Color: black(0.95)},
		}},
	})
	if bg != nil {
		nodes = append(nodes, &scene.Image{Frame: full, Element: bg, Scale: 1.05, Blur: 40, Opacity: 0.4})
	}
	for _, o := range orbs {
		nodes = append(nodes, &scene.Orb{
			CX:      o.cx,
			CY:      o.cy,
			Radius:  o.radius,
			Color:   accent(accentHex, 1),
			Blur:    64,
			Opacity: 0.1,
		})
	}
	return nodes
}

// framedPhoto is the artist photo in a frosted frame with an accent glow.
// frame is the outer frame; the photo sits inside a 10px padding.
func framedPhoto(r *scene.Renderer, src string, frame scene.Rect) []scene.Node {
	accentHex := dominant(r)
	var children []scene.Node
	if src != "" {
		children = append(children, &scene.Image{Frame: frame.Inset(10), Element: r.Image("portrait", src, true), Radius: 12})
	}
	return []scene.Node{
		&scene.Box{
			Frame: frame.Inset(-4),
			Gradient: &scene.Gradient{Angle: 135, Stops: []scene.Stop{
				{Offset: 0, Color: accent(accentHex, 1)},
				{Offset: 1, Color: black(0.2)},
			}},
			Radius:  16,
			Blur:    12,
			Opacity: 0.2,
		},
		&scene.Box{
			Frame:        frame,
			Fill:         black(0.2),
			BackdropBlur: 4,
			Radius:       16,
			Border:       &scene.Border{Width: 1, Color: white(0.1)},
			Children:     children,
		},
	}
}

func wordmark(text string, frame scene.Rect, size float64, align scene.Align, c color.Color) *scene.Text {
	return &scene.Text{
		Frame:     frame,
		Content:   text,
		Weight:    fonts.Bold,
		Size:      size,
		Color:     c,
		Align:     align,
		Tracking:  size * 0.08,
		Uppercase: true,
	}
}

// appendText appends t unless it has nothing to draw.
func appendText(nodes []scene.Node, t *scene.Text) []scene.Node {
	if t.Content == "" {
		return nodes
	}
	return append(nodes, t)
}
