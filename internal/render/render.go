// File: render.go

// Package render draws the images handed out with every challenge: distorted
// text, pictogram grid cells, and the jigsaw/tile cut-outs of the two puzzle
// kinds. All functions are pure; randomness comes in as a seed or *rand.Rand.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	ErrRender  = errors.New("render failed")
	ErrNoImage = fmt.Errorf("%w: no image available", ErrRender)
)

var (
	fontOnce  sync.Once
	glyphFont *truetype.Font
	fontErr   error
)

// fontFace returns a fresh face of the embedded Go Bold font. Faces are not
// safe for concurrent use, so every render asks for its own.
func fontFace(points float64) (font.Face, error) {
	fontOnce.Do(func() {
		glyphFont, fontErr = truetype.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("%w: parse font: %v", ErrRender, fontErr)
	}
	return truetype.NewFace(glyphFont, &truetype.Options{Size: points, Hinting: font.HintingFull}), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// AutoGrid computes a grid of cols×rows to neatly hold n items
func AutoGrid(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return
}

// TabRadius is how far the slider piece's tab sticks out past its right edge.
func TabRadius(pieceSize int) int {
	return pieceSize / 5
}

// jigsawPath traces the slider piece outline with its top-left corner at (x, y):
// a square body, a round tab bulging out of the right edge and a round notch
// bitten into the bottom edge.
func jigsawPath(dc *gg.Context, x, y, size, r float64) {
	dc.NewSubPath()
	dc.MoveTo(x, y)
	dc.LineTo(x+size, y)
	dc.LineTo(x+size, y+size/2-r)
	// 右侧凸起
	dc.DrawArc(x+size, y+size/2, r, -math.Pi/2, math.Pi/2)
	dc.LineTo(x+size, y+size)
	dc.LineTo(x+size/2+r, y+size)
	// 底部凹口
	dc.DrawArc(x+size/2, y+size, r, 0, -math.Pi)
	dc.LineTo(x, y+size)
	dc.ClosePath()
}

// speckle nudges n random pixels up or down by at most amp per channel.
func speckle(img *image.RGBA, n, amp int, intn func(int) int) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	for i := 0; i < n; i++ {
		x := b.Min.X + intn(b.Dx())
		y := b.Min.Y + intn(b.Dy())
		c := img.RGBAAt(x, y)
		d := intn(2*amp+1) - amp
		c.R = clamp8(int(c.R) + d)
		c.G = clamp8(int(c.G) + d)
		c.B = clamp8(int(c.B) + d)
		img.SetRGBA(x, y, c)
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	dc := gg.NewContextForImage(img)
	return dc.Image().(*image.RGBA)
}
