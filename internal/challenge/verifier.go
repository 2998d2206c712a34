// File: verifier.go
package challenge

import (
	"fmt"
	"unicode/utf8"
)

// answerValue strips the pointer NewAnswer hands out.
func answerValue(a Answer) Answer {
	switch v := a.(type) {
	case *TextAnswer:
		if v == nil {
			return nil
		}
		return *v
	case *GridAnswer:
		if v == nil {
			return nil
		}
		return *v
	case *SliderAnswer:
		if v == nil {
			return nil
		}
		return *v
	case *DragAnswer:
		if v == nil {
			return nil
		}
		return *v
	case *CheckboxAnswer:
		if v == nil {
			return nil
		}
		return *v
	}
	return a
}

func wrongKind(want Kind, a Answer) error {
	if a == nil {
		return fmt.Errorf("%w: no answer for %s challenge", ErrMismatch, want)
	}
	return fmt.Errorf("%w: %s answer for %s challenge", ErrMismatch, a.Kind(), want)
}

func (s TextSolution) check(a Answer) error {
	v := answerValue(a)
	ans, ok := v.(TextAnswer)
	if !ok {
		return wrongKind(s.Kind(), v)
	}
	if s.CaseSensitive {
		if ans.Text != s.Text {
			return ErrMismatch
		}
		return nil
	}
	if !asciiEqualFold(ans.Text, s.Text) {
		return ErrMismatch
	}
	return nil
}

// asciiEqualFold compares a and b ignoring ASCII case only. Any non-ASCII
// byte fails the match, so look-alikes such as the Kelvin sign never fold
// onto a glyph.
func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if x >= utf8.RuneSelf || y >= utf8.RuneSelf {
			return false
		}
		if lowerASCII(x) != lowerASCII(y) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// check requires exactly the solution set: no extra, missing or repeated picks.
func (s GridSolution) check(a Answer) error {
	v := answerValue(a)
	ans, ok := v.(GridAnswer)
	if !ok {
		return wrongKind(s.Kind(), v)
	}
	if len(ans.Indices) != len(s.Indices) {
		return ErrMismatch
	}
	want := make(map[int]bool, len(s.Indices))
	for _, i := range s.Indices {
		want[i] = true
	}
	seen := make(map[int]bool, len(ans.Indices))
	for _, i := range ans.Indices {
		if !want[i] || seen[i] {
			return ErrMismatch
		}
		seen[i] = true
	}
	return nil
}

func (s SliderSolution) check(a Answer) error {
	v := answerValue(a)
	ans, ok := v.(SliderAnswer)
	if !ok {
		return wrongKind(s.Kind(), v)
	}
	if abs(ans.X-s.TargetX) > s.Tolerance {
		return ErrMismatch
	}
	return nil
}

// check needs every piece placed once, within tolerance on both axes.
func (s DragSolution) check(a Answer) error {
	v := answerValue(a)
	ans, ok := v.(DragAnswer)
	if !ok {
		return wrongKind(s.Kind(), v)
	}
	if len(ans.Placements) != len(s.Pieces) {
		return ErrMismatch
	}
	seen := make(map[int]bool, len(ans.Placements))
	for _, p := range ans.Placements {
		want, ok := s.Pieces[p.ID]
		if !ok || seen[p.ID] {
			return ErrMismatch
		}
		seen[p.ID] = true
		if abs(p.X-want.X) > s.Tolerance || abs(p.Y-want.Y) > s.Tolerance {
			return ErrMismatch
		}
	}
	return nil
}

func (s CheckboxSolution) check(a Answer) error {
	v := answerValue(a)
	ans, ok := v.(CheckboxAnswer)
	if !ok {
		return wrongKind(s.Kind(), v)
	}
	if !ans.Checked {
		return ErrMismatch
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
