// SPDX-License-Identifier: Unlicense OR MIT

/*
Package ime defines the contract between text fields and the input
methods that edit them.

A text field registers with its window for a FieldToken and implements
Editor. Input methods, both the built-in compose engine and external
engines reached over a platform protocol, edit the field exclusively
through the Editor interface. All offsets are byte offsets into the
field's UTF-8 content and lie on text element (extended grapheme
cluster) boundaries.
*/
package ime

import "oriel.dev/f32"

// Range is a range of text. Start and End are byte offsets with
// Start <= End.
type Range struct {
	Start int
	End   int
}

// Empty reports whether the range contains no text.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether off lies within the range.
func (r Range) Contains(off int) bool {
	return r.Start <= off && off <= r.End
}

// Selection is a directed text range. Anchor is the fixed end and
// Active the end moved by selection commands; Anchor may come after
// Active. Anchor == Active is a caret.
type Selection struct {
	Anchor int
	Active int
}

// Range returns the selection with its ends ordered.
func (s Selection) Range() Range {
	if s.Anchor > s.Active {
		return Range{Start: s.Active, End: s.Anchor}
	}
	return Range{Start: s.Anchor, End: s.Active}
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.Anchor == s.Active
}

// Affinity names the side of a line wrap an offset belongs to. It
// distinguishes the end of a soft-wrapped line from the start of the
// line after it, which share an offset.
type Affinity uint8

const (
	// Downstream associates the offset with the text after it.
	Downstream Affinity = iota
	// Upstream associates the offset with the text before it.
	Upstream
)

// Caret describes caret geometry at an offset.
type Caret struct {
	// Pos is the intersection of the caret and its baseline, in
	// surface-local coordinates.
	Pos f32.Point
	// Ascent is the length of the caret above its baseline.
	Ascent float32
	// Descent is the length of the caret below its baseline.
	Descent float32
}

// Rect returns the caret line box.
func (c Caret) Rect() f32.Rectangle {
	return f32.Rectangle{
		Min: f32.Point{X: c.Pos.X, Y: c.Pos.Y - c.Ascent},
		Max: f32.Point{X: c.Pos.X + 1, Y: c.Pos.Y + c.Descent},
	}
}

// Editor is the text field side of the input method contract.
//
// An Editor is acquired for the duration of a single input method
// operation and must not be retained. Methods are only called with
// offsets on text element boundaries, except for IsBoundary and the
// index conversions which accept any offset within the content.
type Editor interface {
	// Len returns the length of the content in bytes.
	Len() int
	// Slice returns the content in r.
	Slice(r Range) string
	// IsBoundary reports whether off lies on a text element
	// boundary.
	IsBoundary(off int) bool
	// Selection returns the selection.
	Selection() Selection
	// SetSelection replaces the selection.
	SetSelection(Selection)
	// Composition returns the in-progress composition range, if any.
	Composition() (Range, bool)
	// SetComposition marks r as the in-progress composition.
	SetComposition(Range)
	// ClearComposition removes the composition range, leaving its
	// text in place.
	ClearComposition()
	// Replace replaces the text in r with text. Offsets outside r,
	// including the selection and composition bounds, keep referring
	// to the same text; offsets inside r move to the end of the
	// replacement.
	Replace(r Range, text string)
	// LineRange returns the range of the line containing off,
	// excluding any trailing line break. At a soft wrap, aff selects
	// between the wrapped line and the one after it.
	LineRange(off int, aff Affinity) Range
	// Bounds returns the bounding box of the field in surface-local
	// coordinates.
	Bounds() f32.Rectangle
	// Caret returns the caret geometry at off.
	Caret(off int) Caret
	// HitTest returns the boundary offset closest to p and reports
	// whether p hit the field's content.
	HitTest(p f32.Point) (int, bool)
	// UTF16Index converts a byte offset into UTF-16 code units.
	UTF16Index(off int) int
	// ByteIndex converts an offset in UTF-16 code units into bytes.
	ByteIndex(u16 int) int
}

// FieldToken identifies a text field registered with a window. Tokens
// are never reused. The zero token identifies no field.
type FieldToken uint64

// FieldEvent describes a text field change that input methods must
// observe.
type FieldEvent uint8

const (
	// Reset signals content changed by something other than the
	// input method, such as an application edit. Any composition in
	// progress is lost.
	Reset FieldEvent = iota
	// SelectionChanged signals a new selection within unchanged
	// content.
	SelectionChanged
	// LayoutChanged signals moved or resized text with content and
	// selection intact.
	LayoutChanged
)

func (e FieldEvent) String() string {
	switch e {
	case Reset:
		return "Reset"
	case SelectionChanged:
		return "SelectionChanged"
	case LayoutChanged:
		return "LayoutChanged"
	default:
		panic("unknown FieldEvent")
	}
}
