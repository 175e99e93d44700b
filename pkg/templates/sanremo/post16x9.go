package sanremo

import (
	"github.com/matzehuels/templatestudio/pkg/fonts"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

type post16x9 struct{}

var post16x9Orbs = []orbSpec{
	{cx: 360, cy: 240, radius: 160},
	{cx: 1480, cy: 300, radius: 128},
	{cx: 980, cy: 860, radius: 140},
}

// Photo on the left, text column on the right.
func (post16x9) Render(r *scene.Renderer) scene.Node {
	p := r.Props()
	w, h := r.Size()
	src := p.String("artistImageUrl")
	name := p.String("artistName")
	accentHex := dominant(r)

	col := scene.Rect{X: 820, W: float64(w) - 820 - 140}

	nodes := backdrop(r, src, post16x9Orbs)
	nodes = append(nodes, framedPhoto(r, src, scene.Rect{X: 180, Y: 250, W: 520, H: 580})...)
	nodes = append(nodes,
		&scene.Text{
			Frame:     scene.Rect{X: col.X, Y: 236, W: col.W, H: 36},
			Content:   "Artistas de la A a la Z",
			Weight:    fonts.Medium,
			Size:      24,
			Color:     white(0.7),
			Tracking:  7.2,
			Uppercase: true,
		},
		wordmark("Sanremo", scene.Rect{X: col.X, Y: 284, W: col.W, H: 60}, 52, scene.AlignLeft, white(1)),
	)
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: col.X, Y: 372, W: col.W, H: 110},
		Content:    name,
		Weight:     fonts.Bold,
		Size:       nameSize(name, 72, 96),
		Color:      white(1),
		LineHeight: 1.05,
		Wrap:       true,
		MaxLines:   1,
	})
	nodes = appendText(nodes, &scene.Text{
		Frame:      scene.Rect{X: col.X, Y: 508, W: col.W, H: 180},
		Content:    p.String("bio"),
		Weight:     fonts.Regular,
		Size:       32,
		Color:      white(0.9),
		LineHeight: 1.4,
		Wrap:       true,
		MaxLines:   4,
	})
	nodes = append(nodes, pill(r, scene.Rect{X: col.X, Y: 720, W: col.W, H: 96}, accentHex)...)
	nodes = append(nodes,
		wordmark("Modoitaliano", scene.Rect{X: col.X, Y: 990, W: col.W, H: 36}, 24, scene.AlignRight, white(0.5)),
	)

	return &scene.Box{
		Frame:    scene.Rect{W: float64(w), H: float64(h)},
		Fill:     gray900,
		Clip:     true,
		Children: nodes,
	}
}
