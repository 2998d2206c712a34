// File: challenge.go

// Package challenge issues captcha challenges of five kinds and verifies the
// answers against the solution kept server-side. Every challenge can be
// verified once; the solution never leaves the package.
package challenge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"captchaAuth/internal/store"
)

// Kind names a challenge variant.
type Kind string

const (
	KindText      Kind = "text"
	KindImageGrid Kind = "image"
	KindSlider    Kind = "slider"
	KindDrag      Kind = "drag"
	KindCheckbox  Kind = "checkbox"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindText, KindImageGrid, KindSlider, KindDrag, KindCheckbox}

// ParseKind maps a string such as "slider" to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

var (
	// ErrGeneration marks parameters that cannot produce a puzzle. Retrying
	// with different parameters may succeed.
	ErrGeneration  = errors.New("challenge generation failed")
	ErrUnknownKind = fmt.Errorf("%w: unknown kind", ErrGeneration)

	ErrUnknown         = store.ErrUnknown
	ErrExpired         = store.ErrExpired
	ErrAlreadyConsumed = store.ErrAlreadyConsumed
	ErrDuplicateID     = store.ErrDuplicateID

	// ErrMismatch is a well-formed lookup with a wrong answer.
	ErrMismatch = errors.New("answer does not match")
)

// Asset is an encoded PNG. It marshals to JSON as a data URL.
type Asset []byte

func (a Asset) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(a)
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.DataURL())
}

// Point is a pixel position on a puzzle canvas.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Challenge is what the caller gets back: an id and a payload free of solutions.
type Challenge struct {
	ID        string  `json:"challenge_id"`
	Kind      Kind    `json:"kind"`
	ExpiresIn int     `json:"expires_in"` // seconds
	Payload   Payload `json:"payload"`
}

// Payload is the public part of a challenge.
type Payload interface {
	Kind() Kind
}

type TextPayload struct {
	Image  Asset `json:"image"`
	Length int   `json:"length"`
}

type GridImage struct {
	Index int   `json:"index"`
	Image Asset `json:"image"`
}

type GridPayload struct {
	Prompt             string      `json:"prompt"`
	Target             string      `json:"target"`
	Images             []GridImage `json:"images"`
	RequiredSelections int         `json:"required_selections"`
}

type SliderPayload struct {
	Background Asset `json:"background"`
	Piece      Asset `json:"piece"`
	PieceY     int   `json:"piece_y"`
	Width      int   `json:"puzzle_width"`
	Height     int   `json:"puzzle_height"`
	PieceSize  int   `json:"piece_size"`
}

type DragPiece struct {
	ID    int   `json:"id"`
	Image Asset `json:"image"`
}

// DragPayload lists the drop slots in canonical order. Slots carry no piece
// id; matching tiles to slots is the puzzle.
type DragPayload struct {
	Background Asset       `json:"background"`
	Pieces     []DragPiece `json:"pieces"`
	Slots      []Point     `json:"positions"`
	Width      int         `json:"puzzle_width"`
	Height     int         `json:"puzzle_height"`
	PieceSize  int         `json:"piece_size"`
}

// CheckboxPayload is the one-click challenge. It carries no puzzle; ticking
// the box is the answer.
type CheckboxPayload struct {
	Label string `json:"label"`
}

func (TextPayload) Kind() Kind     { return KindText }
func (GridPayload) Kind() Kind     { return KindImageGrid }
func (SliderPayload) Kind() Kind   { return KindSlider }
func (DragPayload) Kind() Kind     { return KindDrag }
func (CheckboxPayload) Kind() Kind { return KindCheckbox }

// Solution is the retained answer of one challenge. The set of
// implementations is closed.
type Solution interface {
	Kind() Kind
	check(Answer) error
}

type TextSolution struct {
	Text          string
	CaseSensitive bool
}

type GridSolution struct {
	Indices []int // sorted
}

type SliderSolution struct {
	TargetX   int
	Tolerance int
}

type DragSolution struct {
	Pieces    map[int]Point // piece id -> slot
	Tolerance int
}

type CheckboxSolution struct{}

func (TextSolution) Kind() Kind     { return KindText }
func (GridSolution) Kind() Kind     { return KindImageGrid }
func (SliderSolution) Kind() Kind   { return KindSlider }
func (DragSolution) Kind() Kind     { return KindDrag }
func (CheckboxSolution) Kind() Kind { return KindCheckbox }

// Answer is a caller's submission for one challenge.
type Answer interface {
	Kind() Kind
}

type TextAnswer struct {
	Text string `json:"answer"`
}

type GridAnswer struct {
	Indices []int `json:"selected_indices"`
}

type SliderAnswer struct {
	X int `json:"x"`
}

type Placement struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

type DragAnswer struct {
	Placements []Placement `json:"positions"`
}

type CheckboxAnswer struct {
	Checked bool `json:"checked"`
}

func (TextAnswer) Kind() Kind     { return KindText }
func (GridAnswer) Kind() Kind     { return KindImageGrid }
func (SliderAnswer) Kind() Kind   { return KindSlider }
func (DragAnswer) Kind() Kind     { return KindDrag }
func (CheckboxAnswer) Kind() Kind { return KindCheckbox }

// NewAnswer returns an empty answer of the given kind, ready to be decoded into.
func NewAnswer(k Kind) (Answer, error) {
	switch k {
	case KindText:
		return &TextAnswer{}, nil
	case KindImageGrid:
		return &GridAnswer{}, nil
	case KindSlider:
		return &SliderAnswer{}, nil
	case KindDrag:
		return &DragAnswer{}, nil
	case KindCheckbox:
		return &CheckboxAnswer{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, k)
}
