// File: text.go
package render

import (
	"fmt"
	"math/rand"

	"github.com/fogleman/gg"
)

const (
	DefaultTextWidth  = 280
	DefaultTextHeight = 90

	// per-glyph font size range, in points
	minGlyphPoints = 38
	maxGlyphPoints = 48
)

func glyphPoints(rng *rand.Rand) float64 {
	return float64(minGlyphPoints + rng.Intn(maxGlyphPoints-minGlyphPoints+1))
}

// TextSpec describes one text captcha image.
type TextSpec struct {
	Text          string
	Width, Height int // 0 picks a size that fits the text
	Seed          int64
}

// RenderText draws Text over a noisy gradient, every glyph with its own size,
// rotation, offset and colour, then scratches two curves across the word.
func RenderText(spec TextSpec) ([]byte, error) {
	glyphs := []rune(spec.Text)
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrRender)
	}
	w, h := spec.Width, spec.Height
	if w == 0 {
		w = max(DefaultTextWidth, 40*(len(glyphs)+1))
	}
	if h == 0 {
		h = DefaultTextHeight
	}
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: invalid canvas %dx%d", ErrRender, w, h)
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	fw, fh := float64(w), float64(h)

	dc := gg.NewContext(w, h)
	// 渐变背景
	for y := 0; y < h; y++ {
		t := float64(y) / fh
		dc.SetRGB255(int(240+15*t), int(240+15*t), int(250-10*t))
		dc.DrawRectangle(0, float64(y), fw, 1)
		dc.Fill()
	}

	dc.SetLineWidth(1)
	for i, n := 0, 4+rng.Intn(5); i < n; i++ {
		dc.SetRGB255(100+rng.Intn(81), 100+rng.Intn(81), 100+rng.Intn(81))
		dc.DrawLine(rng.Float64()*fw, rng.Float64()*fh, rng.Float64()*fw, rng.Float64()*fh)
		dc.Stroke()
	}
	for i, n := 0, 100+rng.Intn(101); i < n; i++ {
		dc.SetRGB255(100+rng.Intn(101), 100+rng.Intn(101), 100+rng.Intn(101))
		dc.SetPixel(rng.Intn(w), rng.Intn(h))
	}

	step := fw / float64(len(glyphs)+1)
	for i, g := range glyphs {
		face, err := fontFace(glyphPoints(rng))
		if err != nil {
			return nil, err
		}
		dc.SetFontFace(face)

		cx := step*float64(i+1) + float64(rng.Intn(11)-5)
		cy := fh/2 + float64(rng.Intn(15)-7)
		dc.SetRGB255(rng.Intn(81), rng.Intn(81), 80+rng.Intn(71))
		dc.Push()
		dc.RotateAbout(gg.Radians(float64(rng.Intn(51)-25)), cx, cy)
		dc.DrawStringAnchored(string(g), cx, cy, 0.5, 0.5)
		dc.Pop()
	}

	for i := 0; i < 2; i++ {
		dc.SetRGBA255(rng.Intn(81), rng.Intn(81), 80+rng.Intn(71), 170)
		dc.SetLineWidth(1.5 + rng.Float64())
		dc.MoveTo(0, fh*(0.3+0.4*rng.Float64()))
		dc.CubicTo(fw/3, fh*rng.Float64(), 2*fw/3, fh*rng.Float64(), fw, fh*(0.3+0.4*rng.Float64()))
		dc.Stroke()
	}

	return encodePNG(dc.Image())
}
