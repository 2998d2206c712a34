// File: puzzle.go
package render

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

// TileBorder is the white frame drawn around every drag tile.
const TileBorder = 2

// SliderSpec places the jigsaw piece on a Width×Height background.
type SliderSpec struct {
	Width, Height int
	PieceSize     int
	TargetX       int
	PieceY        int
}

func (s SliderSpec) validate() error {
	tab := TabRadius(s.PieceSize)
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: invalid canvas %dx%d", ErrRender, s.Width, s.Height)
	case s.PieceSize <= 0 || s.PieceSize+tab > s.Width || s.PieceSize > s.Height:
		return fmt.Errorf("%w: piece size %d does not fit %dx%d", ErrRender, s.PieceSize, s.Width, s.Height)
	case s.TargetX < 0 || s.TargetX+s.PieceSize+tab > s.Width:
		return fmt.Errorf("%w: target x %d out of range", ErrRender, s.TargetX)
	case s.PieceY < 0 || s.PieceY+s.PieceSize > s.Height:
		return fmt.Errorf("%w: piece y %d out of range", ErrRender, s.PieceY)
	}
	return nil
}

// SliderAssets are the PNGs of a sliding puzzle. The piece image is
// (PieceSize+TabRadius)×PieceSize and its top-left corner sits at
// (TargetX, PieceY) when solved.
type SliderAssets struct {
	Background []byte
	Piece      []byte
}

// RenderSlider cuts the jigsaw piece out of bg and leaves a shaded notch of the
// same outline behind.
func RenderSlider(bg image.Image, spec SliderSpec) (*SliderAssets, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if bg == nil || bg.Bounds().Dx() < spec.Width || bg.Bounds().Dy() < spec.Height {
		return nil, fmt.Errorf("%w: background smaller than %dx%d", ErrRender, spec.Width, spec.Height)
	}

	base := gg.NewContext(spec.Width, spec.Height)
	base.DrawImage(bg, -bg.Bounds().Min.X, -bg.Bounds().Min.Y)

	size := float64(spec.PieceSize)
	tab := TabRadius(spec.PieceSize)
	r := float64(tab)

	piece := gg.NewContext(spec.PieceSize+tab, spec.PieceSize)
	jigsawPath(piece, 0, 0, size, r)
	piece.Clip()
	piece.DrawImage(base.Image(), -spec.TargetX, -spec.PieceY)
	piece.ResetClip()
	jigsawPath(piece, 0, 0, size, r)
	piece.SetRGBA(1, 1, 1, 0.9)
	piece.SetLineWidth(2)
	piece.Stroke()

	// 背景上的缺口
	tx, ty := float64(spec.TargetX), float64(spec.PieceY)
	jigsawPath(base, tx, ty, size, r)
	base.SetRGBA(0, 0, 0, 0.5)
	base.FillPreserve()
	base.SetRGBA(1, 1, 1, 0.8)
	base.SetLineWidth(2)
	base.Stroke()

	bgPNG, err := encodePNG(base.Image())
	if err != nil {
		return nil, err
	}
	piecePNG, err := encodePNG(piece.Image())
	if err != nil {
		return nil, err
	}
	return &SliderAssets{Background: bgPNG, Piece: piecePNG}, nil
}

// DragSpec lists the top-left corners of the drop slots on a Width×Height background.
type DragSpec struct {
	Width, Height int
	PieceSize     int
	Slots         []image.Point
}

func (s DragSpec) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: invalid canvas %dx%d", ErrRender, s.Width, s.Height)
	}
	if s.PieceSize <= 0 || s.PieceSize > s.Width || s.PieceSize > s.Height {
		return fmt.Errorf("%w: piece size %d does not fit %dx%d", ErrRender, s.PieceSize, s.Width, s.Height)
	}
	canvas := image.Rect(0, 0, s.Width, s.Height)
	rects := make([]image.Rectangle, len(s.Slots))
	for i, p := range s.Slots {
		rects[i] = image.Rect(p.X, p.Y, p.X+s.PieceSize, p.Y+s.PieceSize)
		if !rects[i].In(canvas) {
			return fmt.Errorf("%w: slot %d at %v outside canvas", ErrRender, i, p)
		}
		for j := 0; j < i; j++ {
			if rects[i].Overlaps(rects[j]) {
				return fmt.Errorf("%w: slots %d and %d overlap", ErrRender, j, i)
			}
		}
	}
	return nil
}

// DragAssets holds the shaded background and one bordered tile per slot;
// Tiles[i] belongs to Slots[i].
type DragAssets struct {
	Background []byte
	Tiles      [][]byte
}

// RenderDrag crops a tile for every slot and shades the slots on the background.
func RenderDrag(bg image.Image, spec DragSpec) (*DragAssets, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if bg == nil || bg.Bounds().Dx() < spec.Width || bg.Bounds().Dy() < spec.Height {
		return nil, fmt.Errorf("%w: background smaller than %dx%d", ErrRender, spec.Width, spec.Height)
	}

	base := gg.NewContext(spec.Width, spec.Height)
	base.DrawImage(bg, -bg.Bounds().Min.X, -bg.Bounds().Min.Y)
	size := float64(spec.PieceSize)

	out := &DragAssets{Tiles: make([][]byte, len(spec.Slots))}
	for i, p := range spec.Slots {
		tile := gg.NewContext(spec.PieceSize+2*TileBorder, spec.PieceSize+2*TileBorder)
		tile.SetRGB(1, 1, 1)
		tile.Clear()
		tile.DrawRectangle(TileBorder, TileBorder, size, size)
		tile.Clip()
		tile.DrawImage(base.Image(), TileBorder-p.X, TileBorder-p.Y)
		b, err := encodePNG(tile.Image())
		if err != nil {
			return nil, err
		}
		out.Tiles[i] = b
	}

	for _, p := range spec.Slots {
		base.DrawRectangle(float64(p.X), float64(p.Y), size, size)
		base.SetRGBA(0, 0, 0, 0.65)
		base.FillPreserve()
		base.SetRGB(1, 1, 1)
		base.SetLineWidth(2)
		base.Stroke()
	}

	b, err := encodePNG(base.Image())
	if err != nil {
		return nil, err
	}
	out.Background = b
	return out, nil
}
