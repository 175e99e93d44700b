package sanremo

import (
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

type post struct{}

var postOrbs = []orbSpec{
	{cx: 290, cy: 236, radius: 128},
	{cx: 876, cy: 366, radius: 96},
	{cx: 328, cy: 644, radius: 112},
}

func (post) Render(r *scene.Renderer) scene.Node {
	p := r.Props()
	w, h := r.Size()
	src := p.String("artistImageUrl")
	name := p.String("artistName")
	accentHex := dominant(r)

	nodes := backdrop(r, src, postOrbs)
	nodes = append(nodes,
		wordmark("Sanremo", scene.Rect{Y: 56, W: float64(w), H: 48}, 40, scene.AlignCenter, white(1)),
	)
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: 64, Y: 120, W: float64(w) - 128, H: 100},
		Content:    name,
		Weight:     fonts.Bold,
		Size:       nameSize(name, 64, 80),
		Color:      white(1),
		Align:      scene.AlignCenter,
		LineHeight: 1.05,
		Wrap:       true,
		MaxLines:   1,
	})
	nodes = append(nodes, framedPhoto(r, src, scene.Rect{X: (float64(w) - 340) / 2, Y: 240, W: 340, H: 340})...)
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: (float64(w) - 836) / 2, Y: 612, W: 836, H: 130},
		Content:    p.String("bio"),
		Weight:     fonts.Regular,
		Size:       30,
		Color:      white(0.9),
		Align:      scene.AlignCenter,
		LineHeight: 1.4,
		Wrap:       true,
		MaxLines:   3,
	})
	nodes = append(nodes, pill(r, scene.Rect{X: 140, Y: 800, W: float64(w) - 280, H: 96}, accentHex)...)
	nodes = append(nodes,
		wordmark("Modoitaliano", scene.Rect{Y: 980, W: float64(w), H: 36}, 24, scene.AlignCenter, white(0.5)),
	)

	return &scene.Box{
		Frame:    scene.Rect{W: float64(w), H: float64(h)},
		Fill:     gray900,
		Clip:     true,
		Children: nodes,
	}
}

// pill is the accent-tinted "category • song" strip used by the posts.
func pill(r *scene.Renderer, frame scene.Rect, accentHex string) []scene.Node {
	p := r.Props()
	mid := frame.X + frame.W/2
	textY := frame.Y + (frame.H-44)/2

	var children []scene.Node
	children = appendText(children, &scene.Text{
		Frame:     scene.Rect{X: frame.X + 24, Y: textY + 6, W: mid - frame.X - 48, H: 36},
		Content:   p.String("category"),
		Weight:    fonts.Medium,
		Size:      26,
		Color:     white(0.8),
		Align:     scene.AlignRight,
		Tracking:  3.9,
		Uppercase: true,
	})
	children = append(children, &scene.Text{
		Frame:   scene.Rect{X: mid - 12, Y: textY, W: 24, H: 44},
		Content: "•",
		Weight:  fonts.Bold,
		Size:    36,
		Color:   accent(accentHex, 1),
		Align:   scene.AlignCenter,
	})
	children = appendText(children, &scene.Text{
		Frame:   scene.Rect{X: mid + 24, Y: textY, W: frame.X + frame.W - mid - 48, H: 44},
		Content: p.String("song"),
		Weight:  fonts.Bold,
		Size:    36,
		Color:   white(1),
		Align:   scene.AlignLeft,
	})
	return []scene.Node{&scene.Box{
		Frame:        frame,
		Fill:         accent(accentHex, float64(0x20)/255),
		BackdropBlur: 8,
		Radius:       frame.H / 2,
		Border:       &scene.Border{Width: 1, Color: accent(accentHex, float64(0x40)/255)},
		Children:     children,
	}}
}
