// File: grid.go
package render

import (
	"context"
	"fmt"
	"image"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// Cell is one tile of the image grid.
type Cell struct {
	Category string
	Seed     int64
}

// RenderGrid renders every cell as a size×size PNG on at most workers
// goroutines (unbounded when workers <= 0). The result keeps the order of cells,
// and each cell only depends on its own seed.
func RenderGrid(ctx context.Context, src Source, cells []Cell, size, workers int) ([][]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid cell size %d", ErrRender, size)
	}
	if src == nil {
		return nil, ErrNoImage
	}

	out := make([][]byte, len(cells))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, c := range cells {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.Image(c.Category, image.Pt(size, size), rand.New(rand.NewSource(c.Seed)))
			if err != nil {
				return fmt.Errorf("cell %d (%s): %w", i, c.Category, err)
			}
			b, err := encodePNG(img)
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
