package sanremo

import (
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

type story struct{}

var storyOrbs = []orbSpec{
	{cx: 322, cy: 352, radius: 160},
	{cx: 844, cy: 608, radius: 128},
	{cx: 332, cy: 1228, radius: 116},
}

func (story) Render(r *scene.Renderer) scene.Node {
	p := r.Props()
	w, h := r.Size()
	src := p.String("artistImageUrl")
	name := p.String("artistName")

	nodes := backdrop(r, src, storyOrbs)
	nodes = append(nodes,
		&scene.Text{
			Frame:     scene.Rect{Y: 128, W: float64(w), H: 40},
			Content:   "Artistas de la A a la Z",
			Weight:    fonts.Medium,
			Size:      26,
			Color:     white(0.7),
			Align:     scene.AlignCenter,
			Tracking:  7.8,
			Uppercase: true,
		},
		wordmark("Sanremo", scene.Rect{Y: 184, W: float64(w), H: 72}, 64, scene.AlignCenter, white(1)),
	)
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: 64, Y: 300, W: float64(w) - 128, H: 280},
		Content:    name,
		Weight:     fonts.Bold,
		Size:       nameSize(name, 96, 128),
		Color:      white(1),
		Align:      scene.AlignCenter,
		LineHeight: 1.05,
		Wrap:       true,
		MaxLines:   2,
	})
	nodes = append(nodes, framedPhoto(r, src, scene.Rect{X: 330, Y: 620, W: 420, H: 500})...)
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: 92, Y: 1180, W: 896, H: 190},
		Content:    p.String("bio1"),
		Weight:     fonts.Medium,
		Size:       36,
		Color:      white(0.95),
		Align:      scene.AlignCenter,
		LineHeight: 1.35,
		Wrap:       true,
		MaxLines:   4,
	})
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: 92, Y: 1390, W: 896, H: 150},
		Content:    p.String("bio2"),
		Weight:     fonts.Regular,
		Size:       30,
		Color:      white(0.85),
		Align:      scene.AlignCenter,
		LineHeight: 1.4,
		Wrap:       true,
		MaxLines:   3,
	})

	card := scene.Rect{X: (float64(w) - 640) / 2, Y: 1560, W: 640, H: 170}
	var footer []scene.Node
	footer = appendText(footer, &scene.Text{
		Frame:     scene.Rect{X: card.X, Y: card.Y + 30, W: card.W, H: 34},
		Content:   p.String("category"),
		Weight:    fonts.Medium,
		Size:      26,
		Color:     white(0.7),
		Align:     scene.AlignCenter,
		Tracking:  5.2,
		Uppercase: true,
	})
	footer = appendText(footer, &scene.Text{
		Frame:   scene.Rect{X: card.X + 24, Y: card.Y + 78, W: card.W - 48, H: 60},
		Content: p.String("song"),
		Weight:  fonts.Bold,
		Size:    48,
		Color:   white(1),
		Align:   scene.AlignCenter,
	})
	nodes = append(nodes,
		&scene.Box{
			Frame:        card,
			Fill:         white(0.05),
			BackdropBlur: 12,
			Radius:       16,
			Border:       &scene.Border{Width: 1, Color: white(0.2)},
			Children:     footer,
		},
		wordmark("Modoitaliano", scene.Rect{Y: 1790, W: float64(w), H: 40}, 28, scene.AlignCenter, white(0.5)),
	)

	return &scene.Box{
		Frame:    scene.Rect{W: float64(w), H: float64(h)},
		Fill:     gray900,
		Clip:     true,
		Children: nodes,
	}
}
