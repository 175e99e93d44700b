package scene

import (
	"image/color"

	"github.com/matzehuels/templatestudio/pkg/fonts"
)

// Rect is an axis-aligned rectangle in composition pixels.
type Rect struct {
	X, Y, W, H float64
}

// Inset returns r shrunk by d on every side. Negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Node is an element of the composition tree.
type Node interface {
	Bounds() Rect
}

// Stop is one color stop of a [Gradient]. Offset is in [0, 1].
type Stop struct {
	Offset float64
	Color  color.Color
}

// Gradient is a linear gradient. Angle follows CSS: 180 runs top to bottom,
// 135 runs from the top-left to the bottom-right corner.
type Gradient struct {
	Angle float64
	Stops []Stop
}

// Border is a solid stroke drawn inside the node's frame.
type Border struct {
	Width float64
	Color color.Color
}

// Shadow is a blurred copy of the node's outline drawn behind it.
type Shadow struct {
	Color  color.Color
	Blur   float64
	Spread float64
}

// Box is a rectangle that may be filled, stroked and blurred, and that
// contains child nodes. A zero Opacity means fully opaque.
type Box struct {
	Frame    Rect
	Fill     color.Color
	Gradient *Gradient
	Radius   float64
	Border   *Border
	Shadow   *Shadow
	Opacity  float64

	// Blur blurs the box itself, BackdropBlur blurs whatever was painted
	// underneath it before the fill is applied.
	Blur         float64
	BackdropBlur float64

	// Clip restricts children to the frame.
	Clip     bool
	Children []Node
}

func (b *Box) Bounds() Rect { return b.Frame }

// Image draws an [Element] with object-fit: cover semantics.
// Zero Opacity means fully opaque, zero Scale means 1.
type Image struct {
	Frame   Rect
	Element *Element
	Scale   float64
	Blur    float64
	Opacity float64
	Radius  float64
	Border  *Border
}

func (i *Image) Bounds() Rect { return i.Frame }

// Align is horizontal text alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Text is a block of text laid out inside Frame.W. Frame.H is the height
// reserved by the layout; text is not clipped to it.
type Text struct {
	Frame   Rect
	Content string
	Weight  fonts.Weight
	Size    float64
	Color   color.Color
	Align   Align

	// Tracking is extra space between letters, in pixels.
	Tracking float64
	// LineHeight is a multiple of Size; zero means 1.2.
	LineHeight float64
	Uppercase  bool
	Wrap       bool
	MaxLines   int
}

func (t *Text) Bounds() Rect { return t.Frame }

// Orb is a blurred disc used for ambient light.
type Orb struct {
	CX, CY  float64
	Radius  float64
	Color   color.Color
	Blur    float64
	Opacity float64
}

func (o *Orb) Bounds() Rect {
	return Rect{X: o.CX - o.Radius, Y: o.CY - o.Radius, W: 2 * o.Radius, H: 2 * o.Radius}
}

// Walk visits n and its descendants depth first in paint order. Returning
// false from fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if b, ok := n.(*Box); ok {
		for _, c := range b.Children {
			Walk(c, fn)
		}
	}
}

// Images returns the distinct elements referenced by image nodes under n,
// in paint order.
func Images(n Node) []*Element {
	var out []*Element
	seen := make(map[*Element]bool)
	Walk(n, func(n Node) bool {
		if img, ok := n.(*Image); ok && img.Element != nil && !seen[img.Element] {
			seen[img.Element] = true
			out = append(out, img.Element)
		}
		return true
	})
	return out
}
