package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

type painter struct {
	ctx     context.Context
	r       *Rasterizer
	opts    Options
	sources map[*scene.Element]image.Image
}

func (p *painter) draw(dc *gg.Context, n scene.Node) error {
	if err := p.ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeRasterize, err, "rasterize cancelled")
	}
	switch n := n.(type) {
	case nil:
		return nil
	case *scene.Box:
		return p.drawBox(dc, n)
	case *scene.Image:
		return p.drawImage(dc, n)
	case *scene.Text:
		return p.drawText(dc, n)
	case *scene.Orb:
		p.drawOrb(dc, n)
		return nil
	default:
		return errors.New(errors.ErrCodeRasterize, "unsupported node %T", n)
	}
}

func (p *painter) drawBox(dc *gg.Context, b *scene.Box) error {
	target := dc
	layered := opacity(b.Opacity) < 1 || b.Blur > 0
	if layered {
		target = gg.NewContext(dc.Width(), dc.Height())
	}
	f := b.Frame

	if b.Shadow != nil {
		drawShadow(target, f, b.Radius, b.Shadow)
	}
	if b.BackdropBlur > 0 {
		backdrop(dc, target, f, b.Radius, b.BackdropBlur)
	}
	if b.Gradient != nil || b.Fill != nil {
		target.DrawRoundedRectangle(f.X, f.Y, f.W, f.H, b.Radius)
		if b.Gradient != nil {
			target.SetFillStyle(linearGradient(f, b.Gradient))
		} else {
			target.SetColor(b.Fill)
		}
		target.Fill()
	}
	if b.Border != nil {
		stroke(target, f, b.Radius, b.Border)
	}

	if b.Clip {
		target.Push()
		target.DrawRoundedRectangle(f.X, f.Y, f.W, f.H, b.Radius)
		target.Clip()
	}
	for _, c := range b.Children {
		if err := p.draw(target, c); err != nil {
			return err
		}
	}
	if b.Clip {
		target.ResetClip()
		target.Pop()
	}

	if layered {
		composite(dc, target.Image(), 0, 0, b.Blur, opacity(b.Opacity))
	}
	return nil
}

func (p *painter) drawImage(dc *gg.Context, n *scene.Image) error {
	if n.Element == nil || n.Frame.W <= 0 || n.Frame.H <= 0 {
		return nil
	}
	src, err := p.source(n.Element)
	if err != nil || src == nil {
		return err
	}

	s := n.Scale
	if s <= 0 {
		s = 1
	}
	w, h := int(math.Round(n.Frame.W*s)), int(math.Round(n.Frame.H*s))
	cover := imaging.Fill(src, w, h, imaging.Center, imaging.Linear)
	x := n.Frame.X - (float64(w)-n.Frame.W)/2
	y := n.Frame.Y - (float64(h)-n.Frame.H)/2

	if n.Radius > 0 {
		dc.Push()
		dc.DrawRoundedRectangle(n.Frame.X, n.Frame.Y, n.Frame.W, n.Frame.H, n.Radius)
		dc.Clip()
	}
	composite(dc, cover, int(math.Round(x)), int(math.Round(y)), n.Blur, opacity(n.Opacity))
	if n.Radius > 0 {
		dc.ResetClip()
		dc.Pop()
	}

	if n.Border != nil {
		stroke(dc, n.Frame, n.Radius, n.Border)
	}
	return nil
}

func (p *painter) drawText(dc *gg.Context, t *scene.Text) error {
	content := t.Content
	if t.Uppercase {
		content = strings.ToUpper(content)
	}
	if strings.TrimSpace(content) == "" || t.Size <= 0 {
		return nil
	}

	face, err := p.r.fonts.Face(t.Weight, t.Size)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRasterize, err, "text face")
	}
	defer face.Close()
	dc.SetFontFace(face)
	if t.Color != nil {
		dc.SetColor(t.Color)
	} else {
		dc.SetColor(color.White)
	}

	measure := func(s string) float64 {
		w, _ := dc.MeasureString(s)
		if n := utf8.RuneCountInString(s); n > 1 {
			w += t.Tracking * float64(n-1)
		}
		return w
	}

	var lines []string
	if t.Wrap {
		lines = wrap(content, t.Frame.W, measure)
	} else {
		lines = strings.Split(content, "\n")
	}
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		lines = lines[:t.MaxLines]
		lines[len(lines)-1] = ellipsize(lines[len(lines)-1], t.Frame.W, measure)
	}

	lh := t.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	m := face.Metrics()
	ascent, descent := float64(m.Ascent.Ceil()), float64(m.Descent.Ceil())
	lineBox := t.Size * lh
	baseline := t.Frame.Y + (lineBox-(ascent+descent))/2 + ascent

	for i, line := range lines {
		w := measure(line)
		x := t.Frame.X
		switch t.Align {
		case scene.AlignCenter:
			x += (t.Frame.W - w) / 2
		case scene.AlignRight:
			x += t.Frame.W - w
		}
		y := baseline + float64(i)*lineBox

		if t.Tracking == 0 {
			dc.DrawString(line, x, y)
			continue
		}
		for _, r := range line {
			s := string(r)
			dc.DrawString(s, x, y)
			adv, _ := dc.MeasureString(s)
			x += adv + t.Tracking
		}
	}
	return nil
}

func (p *painter) drawOrb(dc *gg.Context, o *scene.Orb) {
	if o.Radius <= 0 || o.Color == nil {
		return
	}
	margin := math.Ceil(3 * o.Blur)
	size := int(math.Ceil(2*o.Radius + 2*margin))
	layer := gg.NewContext(size, size)
	layer.DrawCircle(margin+o.Radius, margin+o.Radius, o.Radius)
	layer.SetColor(o.Color)
	layer.Fill()

	x := int(math.Round(o.CX - o.Radius - margin))
	y := int(math.Round(o.CY - o.Radius - margin))
	composite(dc, layer.Image(), x, y, o.Blur, opacity(o.Opacity))
}

// opacity maps the zero value to fully opaque.
func opacity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

// composite draws img at (x, y) after blurring it by sigma and fading it to
// alpha. The destination's clip applies.
func composite(dc *gg.Context, img image.Image, x, y int, sigma, alpha float64) {
	if sigma > 0 {
		img = blur(img, sigma)
	}
	if alpha < 1 {
		img = fade(img, alpha)
	}
	dc.DrawImage(img, x, y)
}

// blur applies a Gaussian blur with standard deviation sigma. Large radii
// are blurred on a downscaled copy.
func blur(img image.Image, sigma float64) *image.NRGBA {
	b := img.Bounds()
	k := 1
	if sigma > 4 {
		k = int(sigma / 4)
	}
	if k == 1 || b.Dx()/k < 2 || b.Dy()/k < 2 {
		return imaging.Blur(img, sigma)
	}
	small := imaging.Resize(img, b.Dx()/k, b.Dy()/k, imaging.Linear)
	small = imaging.Blur(small, sigma/float64(k))
	return imaging.Resize(small, b.Dx(), b.Dy(), imaging.Linear)
}

// fade multiplies the alpha channel of a copy of img by alpha.
func fade(img image.Image, alpha float64) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = uint8(float64(out.Pix[i])*alpha + 0.5)
	}
	return out
}

// backdrop paints a blurred copy of what src holds under f into dst.
func backdrop(src, dst *gg.Context, f scene.Rect, radius, sigma float64) {
	margin := int(math.Ceil(2 * sigma))
	r := image.Rect(int(f.X)-margin, int(f.Y)-margin, int(math.Ceil(f.X+f.W))+margin, int(math.Ceil(f.Y+f.H))+margin).
		Intersect(src.Image().Bounds())
	if r.Empty() {
		return
	}
	region := blur(imaging.Crop(src.Image(), r), sigma)

	dst.Push()
	dst.DrawRoundedRectangle(f.X, f.Y, f.W, f.H, radius)
	dst.Clip()
	dst.DrawImage(region, r.Min.X, r.Min.Y)
	dst.ResetClip()
	dst.Pop()
}

func drawShadow(dc *gg.Context, f scene.Rect, radius float64, s *scene.Shadow) {
	if s.Color == nil {
		return
	}
	g := f.Inset(-s.Spread)
	margin := math.Ceil(3 * s.Blur)
	layer := gg.NewContext(int(math.Ceil(g.W+2*margin)), int(math.Ceil(g.H+2*margin)))
	layer.DrawRoundedRectangle(margin, margin, g.W, g.H, radius+s.Spread)
	layer.SetColor(s.Color)
	layer.Fill()
	composite(dc, layer.Image(), int(math.Round(g.X-margin)), int(math.Round(g.Y-margin)), s.Blur, 1)
}

func stroke(dc *gg.Context, f scene.Rect, radius float64, b *scene.Border) {
	if b.Width <= 0 || b.Color == nil {
		return
	}
	g := f.Inset(b.Width / 2)
	dc.DrawRoundedRectangle(g.X, g.Y, g.W, g.H, math.Max(0, radius-b.Width/2))
	dc.SetColor(b.Color)
	dc.SetLineWidth(b.Width)
	dc.Stroke()
}

// linearGradient maps a CSS-style angle onto the frame: the gradient line
// passes through the center and is long enough for the corners to hit the
// first and last stops.
func linearGradient(f scene.Rect, g *scene.Gradient) gg.Gradient {
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(f.W*dx) + math.Abs(f.H*dy)) / 2
	cx, cy := f.X+f.W/2, f.Y+f.H/2

	grad := gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
	for _, s := range g.Stops {
		grad.AddColorStop(s.Offset, s.Color)
	}
	return grad
}

// wrap breaks s into lines no wider than width. Explicit newlines are kept.
func wrap(s string, width float64, measure func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if candidate := line + " " + w; measure(candidate) <= width {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}

// ellipsize trims s until s+"…" fits width.
func ellipsize(s string, width float64, measure func(string) float64) string {
	const ell = "…"
	for s != "" && measure(s+ell) > width {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return strings.TrimRight(s, " ") + ell
}
