// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"strings"
	"unicode/utf16"

	"github.com/rivo/uniseg"

	"oriel.dev/f32"
	"oriel.dev/io/ime"
	"oriel.dev/io/key"
)

// testEditor is an ime.Editor over a plain string. Lines are split on
// newlines only and the caret advances one unit per byte.
type testEditor struct {
	text    string
	sel     ime.Selection
	comp    ime.Range
	hasComp bool
}

func newTestEditor(text string) *testEditor {
	return &testEditor{text: text}
}

func (e *testEditor) Len() int {
	return len(e.text)
}

func (e *testEditor) Slice(r ime.Range) string {
	return e.text[r.Start:r.End]
}

func (e *testEditor) IsBoundary(off int) bool {
	if off == 0 || off == len(e.text) {
		return true
	}
	if off < 0 || off > len(e.text) {
		return false
	}
	g := uniseg.NewGraphemes(e.text)
	for g.Next() {
		from, _ := g.Positions()
		if from == off {
			return true
		}
		if from > off {
			return false
		}
	}
	return false
}

func (e *testEditor) Selection() ime.Selection {
	return e.sel
}

func (e *testEditor) SetSelection(sel ime.Selection) {
	e.sel = sel
}

func (e *testEditor) Composition() (ime.Range, bool) {
	return e.comp, e.hasComp
}

func (e *testEditor) SetComposition(r ime.Range) {
	e.comp, e.hasComp = r, true
}

func (e *testEditor) ClearComposition() {
	e.comp, e.hasComp = ime.Range{}, false
}

func (e *testEditor) Replace(r ime.Range, text string) {
	e.text = e.text[:r.Start] + text + e.text[r.End:]
	adj := func(off int) int {
		switch {
		case off <= r.Start:
			return off
		case off >= r.End:
			return off - r.Len() + len(text)
		default:
			return r.Start + len(text)
		}
	}
	e.sel.Anchor = adj(e.sel.Anchor)
	e.sel.Active = adj(e.sel.Active)
	if e.hasComp {
		e.comp.Start = adj(e.comp.Start)
		e.comp.End = adj(e.comp.End)
	}
}

func (e *testEditor) LineRange(off int, aff ime.Affinity) ime.Range {
	start := strings.LastIndexByte(e.text[:off], '\n') + 1
	end := len(e.text)
	if i := strings.IndexByte(e.text[off:], '\n'); i >= 0 {
		end = off + i
	}
	return ime.Range{Start: start, End: end}
}

func (e *testEditor) Bounds() f32.Rectangle {
	return f32.Rect(0, 0, 100, 20)
}

func (e *testEditor) Caret(off int) ime.Caret {
	return ime.Caret{
		Pos:     f32.Pt(float32(off), 16),
		Ascent:  12,
		Descent: 4,
	}
}

func (e *testEditor) HitTest(p f32.Point) (int, bool) {
	off := int(p.X)
	if off < 0 {
		off = 0
	}
	if off > len(e.text) {
		off = len(e.text)
	}
	return snapBack(e, off), true
}

func (e *testEditor) UTF16Index(off int) int {
	n := 0
	for _, r := range e.text[:off] {
		n++
		if utf16.RuneLen(r) == 2 {
			n++
		}
	}
	return n
}

func (e *testEditor) ByteIndex(u16 int) int {
	n := 0
	for i, r := range e.text {
		if n >= u16 {
			return i
		}
		n++
		if utf16.RuneLen(r) == 2 {
			n++
		}
	}
	return len(e.text)
}

// testSource hands out editors by token. onEditor, when set, runs on
// every lookup to exercise re-entrant calls.
type testSource struct {
	editors  map[ime.FieldToken]ime.Editor
	onEditor func(tok ime.FieldToken)
}

func newTestSource() *testSource {
	return &testSource{editors: make(map[ime.FieldToken]ime.Editor)}
}

func (s *testSource) Editor(tok ime.FieldToken) ime.Editor {
	if s.onEditor != nil {
		s.onEditor(tok)
	}
	return s.editors[tok]
}

// testConn records the state pushed to it.
type testConn struct {
	enables   int
	disables  int
	commits   int
	surrounds int

	haveText bool
	text     string
	cursor   int
	anchor   int
	cleared  int

	cause Cause
	rect  f32.Rectangle
}

func (c *testConn) Enable()  { c.enables++ }
func (c *testConn) Disable() { c.disables++ }

func (c *testConn) SetSurroundingText(text string, cursor, anchor int) {
	c.haveText = true
	c.surrounds++
	c.text, c.cursor, c.anchor = text, cursor, anchor
}

func (c *testConn) ClearSurroundingText() {
	c.haveText = false
	c.cleared++
}

func (c *testConn) SetTextChangeCause(cause Cause) { c.cause = cause }

func (c *testConn) SetCursorRectangle(r f32.Rectangle) { c.rect = r }

func (c *testConn) Commit() { c.commits++ }

// press feeds a pressed key for sym through the seat, with name and
// text resolved like a backend would.
func press(s *Seat, sym key.Sym) bool {
	name, text := key.Lookup(sym)
	return s.Key(key.Event{
		Name:  name,
		Text:  text,
		Sym:   sym,
		State: key.Press,
	})
}
