package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSolution_Check(t *testing.T) {
	insensitive := TextSolution{Text: "AB3XY"}
	assert.NoError(t, insensitive.check(TextAnswer{Text: "AB3XY"}))
	assert.NoError(t, insensitive.check(TextAnswer{Text: "ab3xy"}))
	assert.NoError(t, insensitive.check(&TextAnswer{Text: "aB3xY"}))
	assert.ErrorIs(t, insensitive.check(TextAnswer{Text: "AB3X"}), ErrMismatch)
	assert.ErrorIs(t, insensitive.check(TextAnswer{Text: "AB3XYZ"}), ErrMismatch)

	sensitive := TextSolution{Text: "AbC", CaseSensitive: true}
	assert.NoError(t, sensitive.check(TextAnswer{Text: "AbC"}))
	assert.ErrorIs(t, sensitive.check(TextAnswer{Text: "abc"}), ErrMismatch)
}

func TestTextSolution_CheckFoldsASCIIOnly(t *testing.T) {
	s := TextSolution{Text: "K3S"}
	assert.NoError(t, s.check(TextAnswer{Text: "k3s"}))
	// U+212A KELVIN SIGN 和 U+017F LONG S 在 Unicode 折叠下等于 K 和 S
	assert.ErrorIs(t, s.check(TextAnswer{Text: "\u212a3S"}), ErrMismatch)
	assert.ErrorIs(t, s.check(TextAnswer{Text: "K3\u017f"}), ErrMismatch)
	assert.ErrorIs(t, s.check(TextAnswer{Text: "\u212a3\u017f"}), ErrMismatch)
}

func TestCheckboxSolution_Check(t *testing.T) {
	s := CheckboxSolution{}
	assert.NoError(t, s.check(CheckboxAnswer{Checked: true}))
	assert.NoError(t, s.check(&CheckboxAnswer{Checked: true}))
	assert.ErrorIs(t, s.check(CheckboxAnswer{}), ErrMismatch)
	assert.ErrorIs(t, s.check((*CheckboxAnswer)(nil)), ErrMismatch)
	assert.ErrorIs(t, s.check(TextAnswer{Text: "x"}), ErrMismatch)
}

func TestGridSolution_Check(t *testing.T) {
	s := GridSolution{Indices: []int{0, 1, 2}}
	assert.NoError(t, s.check(GridAnswer{Indices: []int{0, 1, 2}}))
	assert.NoError(t, s.check(GridAnswer{Indices: []int{2, 0, 1}}))

	for _, bad := range [][]int{
		{0, 1, 3},
		{0, 1},
		{0, 1, 2, 3},
		{0, 0, 1},
		nil,
	} {
		assert.ErrorIs(t, s.check(GridAnswer{Indices: bad}), ErrMismatch, "%v", bad)
	}
}

func TestSliderSolution_Check(t *testing.T) {
	s := SliderSolution{TargetX: 120, Tolerance: 10}
	assert.NoError(t, s.check(SliderAnswer{X: 120}))
	assert.NoError(t, s.check(SliderAnswer{X: 130}))
	assert.NoError(t, s.check(SliderAnswer{X: 110}))
	assert.ErrorIs(t, s.check(SliderAnswer{X: 131}), ErrMismatch)
	assert.ErrorIs(t, s.check(SliderAnswer{X: 109}), ErrMismatch)

	exact := SliderSolution{TargetX: 50}
	assert.NoError(t, exact.check(SliderAnswer{X: 50}))
	assert.ErrorIs(t, exact.check(SliderAnswer{X: 51}), ErrMismatch)
}

func TestDragSolution_Check(t *testing.T) {
	s := DragSolution{
		Pieces:    map[int]Point{0: {20, 20}, 1: {120, 220}, 2: {220, 120}},
		Tolerance: 15,
	}
	exact := []Placement{{ID: 2, X: 220, Y: 120}, {ID: 0, X: 20, Y: 20}, {ID: 1, X: 120, Y: 220}}
	assert.NoError(t, s.check(DragAnswer{Placements: exact}))

	nudged := []Placement{{ID: 0, X: 35, Y: 5}, {ID: 1, X: 105, Y: 235}, {ID: 2, X: 220, Y: 120}}
	assert.NoError(t, s.check(DragAnswer{Placements: nudged}))

	cases := map[string][]Placement{
		"missing piece":   exact[:2],
		"x beyond":        {{ID: 0, X: 36, Y: 20}, exact[0], exact[2]},
		"y beyond":        {{ID: 0, X: 20, Y: 4}, exact[0], exact[2]},
		"unknown id":      {{ID: 7, X: 20, Y: 20}, exact[0], exact[2]},
		"duplicate id":    {exact[0], exact[0], exact[1]},
		"extra placement": append(append([]Placement{}, exact...), Placement{ID: 3}),
		"swapped pieces":  {{ID: 0, X: 120, Y: 220}, {ID: 1, X: 20, Y: 20}, exact[0]},
	}
	for name, placements := range cases {
		assert.ErrorIs(t, s.check(DragAnswer{Placements: placements}), ErrMismatch, name)
	}
}

func TestCheck_WrongKind(t *testing.T) {
	assert.ErrorIs(t, TextSolution{Text: "A"}.check(SliderAnswer{X: 1}), ErrMismatch)
	assert.ErrorIs(t, SliderSolution{}.check(GridAnswer{}), ErrMismatch)
	assert.ErrorIs(t, GridSolution{}.check(nil), ErrMismatch)
	assert.ErrorIs(t, DragSolution{}.check((*DragAnswer)(nil)), ErrMismatch)
	assert.ErrorIs(t, DragSolution{}.check((*TextAnswer)(nil)), ErrMismatch)
}
