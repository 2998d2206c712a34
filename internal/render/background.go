// File: background.go
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/fogleman/gg"
)

// BackgroundQueries are the cache directories tried for puzzle backgrounds.
var BackgroundQueries = []string{
	"landscape nature",
	"city street",
	"colorful abstract",
	"architecture building",
	"forest trees",
	"beach ocean",
	"mountains scenery",
	"flowers garden",
	"sunset sky",
	"urban photography",
}

// Background returns a w×h puzzle background: a photo from src when it has one
// for a random query, a generated pattern otherwise.
func Background(src Source, w, h int, rng *rand.Rand) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid canvas %dx%d", ErrRender, w, h)
	}
	if src != nil {
		query := BackgroundQueries[rng.Intn(len(BackgroundQueries))]
		if img, err := src.Image(query, image.Pt(w, h), rng); err == nil {
			return toRGBA(img), nil
		}
	}
	return generatedBackground(w, h, rng), nil
}

// generatedBackground paints interfering sine waves and a handful of outlined
// circles and rectangles, so a cut-out piece always has texture to match.
func generatedBackground(w, h int, rng *rand.Rand) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	px, py := rng.Float64()*2*math.Pi, rng.Float64()*2*math.Pi
	for y := 0; y < h; y++ {
		fy := float64(y)
		for x := 0; x < w; x++ {
			fx := float64(x)
			r := 100 + 80*math.Sin(fx/30+px) + 50*math.Cos(fy/40+py)
			g := 120 + 60*math.Cos(fx/25+py) + 40*math.Sin(fy/35+px)
			b := 180 - 30*math.Sin((fx+fy)/50+px)
			img.SetRGBA(x, y, color.RGBA{clamp8(int(r)), clamp8(int(g)), clamp8(int(b)), 255})
		}
	}

	dc := gg.NewContextForRGBA(img)
	dc.SetLineWidth(1)
	for i := 0; i < 5; i++ {
		x := float64(20 + rng.Intn(max(1, w-80)))
		y := float64(20 + rng.Intn(max(1, h-80)))
		sw := float64(30 + rng.Intn(51))
		sh := float64(30 + rng.Intn(51))
		if rng.Intn(2) == 0 {
			dc.DrawEllipse(x+sw/2, y+sh/2, sw/2, sh/2)
		} else {
			dc.DrawRectangle(x, y, sw, sh)
		}
		dc.SetRGB255(50+rng.Intn(151), 50+rng.Intn(151), 50+rng.Intn(151))
		dc.FillPreserve()
		dc.SetRGB(1, 1, 1)
		dc.Stroke()
	}
	return img
}
