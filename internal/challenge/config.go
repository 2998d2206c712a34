// File: config.go
package challenge

import (
	"fmt"
	"time"
)

// Config holds the engine-wide defaults. Overrides adjust them per request.
type Config struct {
	TextLength             int
	TextCaseSensitive      bool
	GridRequiredSelections int
	GridCellSize           int
	SliderTolerance        int
	DragTolerance          int
	DragPieces             int
	DragCells              int
	PuzzleSize             int // puzzle canvases are square
	PieceSize              int
	SliderMargin           int
	TTL                    time.Duration
	RenderWorkers          int
}

// DefaultConfig mirrors the stock deployment.
func DefaultConfig() Config {
	return Config{
		TextLength:             6,
		TextCaseSensitive:      false,
		GridRequiredSelections: 3,
		GridCellSize:           120,
		SliderTolerance:        10,
		DragTolerance:          15,
		DragPieces:             3,
		DragCells:              9,
		PuzzleSize:             300,
		PieceSize:              60,
		SliderMargin:           50,
		TTL:                    5 * time.Minute,
		RenderWorkers:          4,
	}
}

// Overrides replaces individual Config values for one request; nil keeps the default.
type Overrides struct {
	TextLength             *int
	TextCaseSensitive      *bool
	GridRequiredSelections *int
	SliderTolerance        *int
	DragTolerance          *int
	DragPieces             *int
	TTL                    *time.Duration
}

// Ptr is shorthand for filling Overrides.
func Ptr[T any](v T) *T {
	return &v
}

func (c Config) apply(ov Overrides) (Config, error) {
	if ov.TextLength != nil {
		c.TextLength = *ov.TextLength
	}
	if ov.TextCaseSensitive != nil {
		c.TextCaseSensitive = *ov.TextCaseSensitive
	}
	if ov.GridRequiredSelections != nil {
		c.GridRequiredSelections = *ov.GridRequiredSelections
	}
	if ov.SliderTolerance != nil {
		c.SliderTolerance = *ov.SliderTolerance
	}
	if ov.DragTolerance != nil {
		c.DragTolerance = *ov.DragTolerance
	}
	if ov.DragPieces != nil {
		c.DragPieces = *ov.DragPieces
	}
	if ov.TTL != nil {
		c.TTL = *ov.TTL
	}

	switch {
	case c.TTL <= 0:
		return c, fmt.Errorf("%w: ttl must be positive, got %s", ErrGeneration, c.TTL)
	case c.SliderTolerance < 0 || c.DragTolerance < 0:
		return c, fmt.Errorf("%w: tolerances must not be negative", ErrGeneration)
	}
	return c, nil
}
