// File: pictogram.go
package render

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"github.com/fogleman/gg"
)

type rgb [3]int

// pictogram draws one category on a 120×120 design canvas.
type pictogram struct {
	name   string
	colors []rgb
	draw   func(dc *gg.Context, c rgb, rng *rand.Rand)
}

var pictograms = []pictogram{
	{"car", []rgb{{220, 50, 50}, {50, 50, 220}, {50, 180, 50}}, drawCar},
	{"tree", []rgb{{34, 139, 34}, {46, 139, 87}, {0, 100, 0}}, drawTree},
	{"house", []rgb{{139, 69, 19}, {160, 82, 45}, {205, 133, 63}}, drawHouse},
	{"sun", []rgb{{255, 200, 0}, {255, 165, 0}, {255, 215, 0}}, drawSun},
	{"mountain", []rgb{{105, 105, 105}, {128, 128, 128}, {169, 169, 169}}, drawMountain},
	{"flower", []rgb{{255, 182, 193}, {255, 105, 180}, {255, 20, 147}}, drawFlower},
	{"ocean", []rgb{{0, 119, 190}, {0, 105, 148}, {0, 77, 128}}, drawOcean},
	{"dog", []rgb{{139, 90, 43}, {160, 120, 60}, {180, 140, 80}}, drawDog},
	{"cat", []rgb{{128, 128, 128}, {255, 165, 0}, {60, 60, 60}}, drawCat},
	{"bird", []rgb{{135, 206, 250}, {255, 99, 71}, {50, 205, 50}}, drawBird},
}

// Categories lists the categories Pictograms can draw, in a fixed order.
func Categories() []string {
	out := make([]string, len(pictograms))
	for i, p := range pictograms {
		out[i] = p.name
	}
	return out
}

// Pictograms draws a simple picture for every category in Categories.
type Pictograms struct{}

func (Pictograms) Has(category string) bool {
	for _, p := range pictograms {
		if p.name == category {
			return true
		}
	}
	return false
}

func (Pictograms) Image(category string, size image.Point, rng *rand.Rand) (image.Image, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: invalid size %v", ErrRender, size)
	}
	var p *pictogram
	for i := range pictograms {
		if pictograms[i].name == category {
			p = &pictograms[i]
			break
		}
	}
	if p == nil {
		return nil, ErrNoImage
	}

	dc := gg.NewContext(size.X, size.Y)
	drawCheckerboard(dc, 4, 4, "#F5F5FA", "#EBEBF0")

	// 轻微旋转和缩放，避免像素级比对
	scale := math.Min(float64(size.X), float64(size.Y)) / 120 * (0.85 + 0.15*rng.Float64())
	cx, cy := float64(size.X)/2, float64(size.Y)/2
	dc.Push()
	dc.RotateAbout(gg.Radians(float64(rng.Intn(21)-10)), cx, cy)
	dc.Translate(cx, cy)
	dc.Scale(scale, scale)
	dc.Translate(-60, -60)
	p.draw(dc, p.colors[rng.Intn(len(p.colors))], rng)
	dc.Pop()

	img := dc.Image().(*image.RGBA)
	speckle(img, size.X*size.Y/100, 15, rng.Intn)
	return img, nil
}

// drawCheckerboard fills the canvas with a two-colour checkerboard of cols×rows cells.
func drawCheckerboard(dc *gg.Context, cols, rows int, even, odd string) {
	unitX := float64(dc.Width()) / float64(cols)
	unitY := float64(dc.Height()) / float64(rows)
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			if (i+j)%2 == 0 {
				dc.SetHexColor(even)
			} else {
				dc.SetHexColor(odd)
			}
			dc.DrawRectangle(float64(i)*unitX, float64(j)*unitY, unitX, unitY)
			dc.Fill()
		}
	}
}

func setRGB(dc *gg.Context, c rgb) {
	dc.SetRGB255(c[0], c[1], c[2])
}

func polygon(dc *gg.Context, pts ...float64) {
	dc.NewSubPath()
	dc.MoveTo(pts[0], pts[1])
	for i := 2; i+1 < len(pts); i += 2 {
		dc.LineTo(pts[i], pts[i+1])
	}
	dc.ClosePath()
}

func drawCar(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	dc.DrawRectangle(20, 50, 80, 30)
	dc.DrawRectangle(35, 30, 50, 25)
	dc.Fill()
	dc.SetRGB255(135, 206, 235)
	dc.DrawRectangle(40, 35, 18, 15)
	dc.DrawRectangle(62, 35, 18, 15)
	dc.Fill()
	dc.SetRGB255(30, 30, 30)
	dc.DrawCircle(35, 80, 10)
	dc.DrawCircle(85, 80, 10)
	dc.Fill()
}

func drawTree(dc *gg.Context, c rgb, _ *rand.Rand) {
	dc.SetRGB255(139, 69, 19)
	dc.DrawRectangle(50, 70, 20, 40)
	dc.Fill()
	setRGB(dc, c)
	polygon(dc, 60, 20, 20, 75, 100, 75)
	dc.Fill()
}

func drawHouse(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	dc.DrawRectangle(25, 55, 70, 50)
	dc.Fill()
	dc.SetRGB255(150, 75, 25)
	polygon(dc, 60, 20, 15, 60, 105, 60)
	dc.Fill()
	dc.SetRGB255(100, 60, 30)
	dc.DrawRectangle(50, 70, 20, 35)
	dc.Fill()
	dc.SetRGB255(135, 206, 235)
	dc.DrawRectangle(30, 65, 15, 15)
	dc.DrawRectangle(75, 65, 15, 15)
	dc.Fill()
}

func drawSun(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	dc.DrawCircle(60, 60, 25)
	dc.Fill()
	dc.SetLineWidth(3)
	for angle := 0; angle < 360; angle += 45 {
		a := gg.Radians(float64(angle))
		dc.DrawLine(60+35*math.Cos(a), 60+35*math.Sin(a), 60+50*math.Cos(a), 60+50*math.Sin(a))
	}
	dc.Stroke()
}

func drawMountain(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	polygon(dc, 60, 20, 10, 100, 110, 100)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	polygon(dc, 60, 20, 45, 44, 52, 40, 60, 46, 68, 40, 75, 44)
	dc.Fill()
}

func drawFlower(dc *gg.Context, c rgb, _ *rand.Rand) {
	dc.SetRGB255(34, 139, 34)
	dc.DrawRectangle(58, 60, 4, 45)
	dc.DrawEllipse(70, 85, 10, 5)
	dc.Fill()
	setRGB(dc, c)
	for i := 0; i < 5; i++ {
		a := gg.Radians(float64(i*72 - 90))
		dc.DrawCircle(60+20*math.Cos(a), 50+20*math.Sin(a), 12)
	}
	dc.Fill()
	dc.SetRGB255(255, 255, 0)
	dc.DrawCircle(60, 50, 10)
	dc.Fill()
}

func drawOcean(dc *gg.Context, c rgb, rng *rand.Rand) {
	setRGB(dc, c)
	dc.SetLineWidth(6)
	phase := rng.Float64() * math.Pi
	for k := 0; k < 3; k++ {
		y := 45 + float64(k)*20
		dc.NewSubPath()
		for x := 10.0; x <= 110; x += 2 {
			dc.LineTo(x, y+6*math.Sin(x/10+phase+float64(k)))
		}
		dc.Stroke()
	}
}

func drawDog(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	dc.DrawCircle(60, 62, 28)
	dc.Fill()
	dc.SetRGB255(c[0]*2/3, c[1]*2/3, c[2]*2/3)
	dc.DrawEllipse(34, 52, 10, 20)
	dc.DrawEllipse(86, 52, 10, 20)
	dc.Fill()
	dc.SetRGB255(20, 20, 20)
	dc.DrawCircle(50, 55, 4)
	dc.DrawCircle(70, 55, 4)
	dc.DrawEllipse(60, 72, 7, 5)
	dc.Fill()
}

func drawCat(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	polygon(dc, 36, 48, 40, 20, 58, 38)
	polygon(dc, 84, 48, 80, 20, 62, 38)
	dc.Fill()
	dc.DrawCircle(60, 64, 28)
	dc.Fill()
	dc.SetRGB255(40, 160, 60)
	dc.DrawEllipse(49, 58, 5, 7)
	dc.DrawEllipse(71, 58, 5, 7)
	dc.Fill()
	dc.SetRGB255(20, 20, 20)
	dc.SetLineWidth(1.5)
	for _, dy := range []float64{-3, 3} {
		dc.DrawLine(52, 74, 22, 72+dy*2)
		dc.DrawLine(68, 74, 98, 72+dy*2)
	}
	dc.Stroke()
}

func drawBird(dc *gg.Context, c rgb, _ *rand.Rand) {
	setRGB(dc, c)
	dc.DrawEllipse(58, 68, 30, 20)
	dc.DrawCircle(84, 50, 13)
	dc.Fill()
	dc.SetRGB255(255, 140, 0)
	polygon(dc, 95, 46, 110, 51, 95, 55)
	dc.Fill()
	dc.SetRGB255(c[0]*2/3, c[1]*2/3, c[2]*2/3)
	dc.DrawEllipse(52, 66, 16, 9)
	dc.Fill()
	dc.SetRGB255(20, 20, 20)
	dc.DrawCircle(87, 47, 2.5)
	dc.Fill()
}
