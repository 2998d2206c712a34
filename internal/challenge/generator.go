// File: generator.go
package challenge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sort"
	"strings"

	"captchaAuth/internal/render"
)

const (
	// 去掉容易混淆的字符 O/0/I/1
	upperGlyphs = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	lowerGlyphs = "abcdefghjkmnpqrstuvwxyz"

	maxTextLength = 16
	gridCells     = 9

	checkboxLabel = "I'm not a robot"
)

// generator builds the payload and solution of one challenge.
type generator struct {
	cells       render.Source // grid imagery
	backgrounds render.Source // puzzle backgrounds, nil means generated
}

func (g *generator) build(ctx context.Context, kind Kind, c Config, rng *rand.Rand) (Payload, Solution, error) {
	switch kind {
	case KindText:
		return g.text(c, rng)
	case KindImageGrid:
		return g.grid(ctx, c, rng)
	case KindSlider:
		return g.slider(c, rng)
	case KindDrag:
		return g.drag(c, rng)
	case KindCheckbox:
		return CheckboxPayload{Label: checkboxLabel}, CheckboxSolution{}, nil
	}
	return nil, nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

func (g *generator) text(c Config, rng *rand.Rand) (Payload, Solution, error) {
	if c.TextLength < 1 || c.TextLength > maxTextLength {
		return nil, nil, fmt.Errorf("%w: text length %d not in [1, %d]", ErrGeneration, c.TextLength, maxTextLength)
	}
	alphabet := upperGlyphs
	if c.TextCaseSensitive {
		alphabet += lowerGlyphs
	}
	b := make([]byte, c.TextLength)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	text := string(b)

	img, err := render.RenderText(render.TextSpec{Text: text, Seed: rng.Int63()})
	if err != nil {
		return nil, nil, err
	}
	return TextPayload{Image: img, Length: len(text)},
		TextSolution{Text: text, CaseSensitive: c.TextCaseSensitive}, nil
}

// gridLayout picks the target category and the category of every cell.
// Distractors come in runs of required cells per category, so the target is
// never the only category that repeats.
func gridLayout(required int, rng *rand.Rand) (target string, cells []string, correct []int, err error) {
	if required < 1 || required >= gridCells {
		return "", nil, nil, fmt.Errorf("%w: required selections %d not in [1, %d]", ErrGeneration, required, gridCells-1)
	}
	cats := render.Categories()
	rng.Shuffle(len(cats), func(i, j int) { cats[i], cats[j] = cats[j], cats[i] })
	target, others := cats[0], cats[1:]

	distractors := make([]string, 0, gridCells-required)
	for i := 0; len(distractors) < gridCells-required; i++ {
		if i/required >= len(others) {
			return "", nil, nil, fmt.Errorf("%w: not enough categories for %d selections", ErrGeneration, required)
		}
		distractors = append(distractors, others[i/required])
	}
	rng.Shuffle(len(distractors), func(i, j int) { distractors[i], distractors[j] = distractors[j], distractors[i] })

	perm := rng.Perm(gridCells)
	correct = append([]int(nil), perm[:required]...)
	sort.Ints(correct)

	cells = make([]string, gridCells)
	for _, i := range correct {
		cells[i] = target
	}
	d := 0
	for i := range cells {
		if cells[i] == "" {
			cells[i] = distractors[d]
			d++
		}
	}
	return target, cells, correct, nil
}

func (g *generator) grid(ctx context.Context, c Config, rng *rand.Rand) (Payload, Solution, error) {
	target, cats, correct, err := gridLayout(c.GridRequiredSelections, rng)
	if err != nil {
		return nil, nil, err
	}
	cells := make([]render.Cell, len(cats))
	for i, cat := range cats {
		cells[i] = render.Cell{Category: cat, Seed: rng.Int63()}
	}
	imgs, err := g.renderGrid(ctx, cells, c)
	if err != nil {
		return nil, nil, err
	}

	p := GridPayload{
		Prompt:             fmt.Sprintf("Select all images containing %s %s", article(target), target),
		Target:             target,
		Images:             make([]GridImage, len(imgs)),
		RequiredSelections: c.GridRequiredSelections,
	}
	for i, b := range imgs {
		p.Images[i] = GridImage{Index: i, Image: b}
	}
	return p, GridSolution{Indices: correct}, nil
}

// renderGrid draws all cells from one source, so the image style of a cell
// never hints at its category. Sources that cannot serve every category of the
// grid are skipped; a source failing to render hands over to the next one.
func (g *generator) renderGrid(ctx context.Context, cells []render.Cell, c Config) ([][]byte, error) {
	cats := make([]string, len(cells))
	for i, cell := range cells {
		cats[i] = cell.Category
	}
	srcs := render.Covering(g.cells, cats)
	if len(srcs) == 0 {
		return nil, fmt.Errorf("%w: no single source holds every grid category", render.ErrNoImage)
	}

	var err error
	for _, src := range srcs {
		var imgs [][]byte
		imgs, err = render.RenderGrid(ctx, src, cells, c.GridCellSize, c.RenderWorkers)
		if err == nil {
			return imgs, nil
		}
		if !errors.Is(err, render.ErrRender) {
			break
		}
	}
	return nil, err
}

func article(noun string) string {
	if noun != "" && strings.ContainsRune("aeiou", rune(noun[0])) {
		return "an"
	}
	return "a"
}

// sliderRange is the closed range target_x is drawn from. The lower bound keeps
// the notch clear of the piece's starting position; the upper bound leaves
// room for the tab.
func sliderRange(c Config) (lo, hi int) {
	lo = max(c.SliderMargin, c.PieceSize)
	hi = c.PuzzleSize - c.PieceSize - max(c.SliderMargin, render.TabRadius(c.PieceSize))
	return lo, hi
}

func (g *generator) slider(c Config, rng *rand.Rand) (Payload, Solution, error) {
	if c.PieceSize <= 0 || c.PuzzleSize <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid puzzle geometry", ErrGeneration)
	}
	lo, hi := sliderRange(c)
	ylo, yhi := c.SliderMargin, c.PuzzleSize-c.PieceSize-c.SliderMargin
	if lo > hi || ylo > yhi {
		return nil, nil, fmt.Errorf("%w: piece %d with margin %d does not fit a %d canvas",
			ErrGeneration, c.PieceSize, c.SliderMargin, c.PuzzleSize)
	}
	targetX := lo + rng.Intn(hi-lo+1)
	pieceY := ylo + rng.Intn(yhi-ylo+1)

	bg, err := render.Background(g.backgrounds, c.PuzzleSize, c.PuzzleSize, rng)
	if err != nil {
		return nil, nil, err
	}
	assets, err := render.RenderSlider(bg, render.SliderSpec{
		Width:     c.PuzzleSize,
		Height:    c.PuzzleSize,
		PieceSize: c.PieceSize,
		TargetX:   targetX,
		PieceY:    pieceY,
	})
	if err != nil {
		return nil, nil, err
	}
	return SliderPayload{
			Background: assets.Background,
			Piece:      assets.Piece,
			PieceY:     pieceY,
			Width:      c.PuzzleSize,
			Height:     c.PuzzleSize,
			PieceSize:  c.PieceSize,
		},
		SliderSolution{TargetX: targetX, Tolerance: c.SliderTolerance}, nil
}

func (g *generator) drag(c Config, rng *rand.Rand) (Payload, Solution, error) {
	cols, rows := render.AutoGrid(c.DragCells)
	if cols == 0 || c.PuzzleSize <= 0 {
		return nil, nil, fmt.Errorf("%w: drag grid needs at least one cell", ErrGeneration)
	}
	cellW, cellH := c.PuzzleSize/cols, c.PuzzleSize/rows
	switch {
	case c.DragPieces < 1 || c.DragPieces > c.DragCells:
		return nil, nil, fmt.Errorf("%w: %d pieces do not fit %d cells", ErrGeneration, c.DragPieces, c.DragCells)
	case c.PieceSize <= 0 || c.PieceSize > cellW || c.PieceSize > cellH:
		return nil, nil, fmt.Errorf("%w: piece %d larger than a %dx%d cell", ErrGeneration, c.PieceSize, cellW, cellH)
	}

	picked := append([]int(nil), rng.Perm(c.DragCells)[:c.DragPieces]...)
	sort.Ints(picked)
	slots := make([]image.Point, len(picked))
	for i, cell := range picked {
		slots[i] = image.Pt(
			(cell%cols)*cellW+(cellW-c.PieceSize)/2,
			(cell/cols)*cellH+(cellH-c.PieceSize)/2,
		)
	}

	bg, err := render.Background(g.backgrounds, c.PuzzleSize, c.PuzzleSize, rng)
	if err != nil {
		return nil, nil, err
	}
	assets, err := render.RenderDrag(bg, render.DragSpec{
		Width:     c.PuzzleSize,
		Height:    c.PuzzleSize,
		PieceSize: c.PieceSize,
		Slots:     slots,
	})
	if err != nil {
		return nil, nil, err
	}

	ids := rng.Perm(len(slots))
	sol := DragSolution{Pieces: make(map[int]Point, len(slots)), Tolerance: c.DragTolerance}
	pieces := make([]DragPiece, len(slots))
	p := DragPayload{
		Background: assets.Background,
		Slots:      make([]Point, len(slots)),
		Width:      c.PuzzleSize,
		Height:     c.PuzzleSize,
		PieceSize:  c.PieceSize,
	}
	for i, s := range slots {
		pt := Point{X: s.X, Y: s.Y}
		p.Slots[i] = pt
		sol.Pieces[ids[i]] = pt
		pieces[i] = DragPiece{ID: ids[i], Image: assets.Tiles[i]}
	}

	// 打乱顺序，且不能恰好按 id 排列
	rng.Shuffle(len(pieces), func(i, j int) { pieces[i], pieces[j] = pieces[j], pieces[i] })
	if len(pieces) > 1 && sort.SliceIsSorted(pieces, func(i, j int) bool { return pieces[i].ID < pieces[j].ID }) {
		pieces[0], pieces[1] = pieces[1], pieces[0]
	}
	p.Pieces = pieces
	return p, sol, nil
}
