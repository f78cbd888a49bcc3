// SPDX-License-Identifier: Unlicense OR MIT

package widget

import (
	"sort"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/image/math/fixed"

	"oriel.dev/f32"
	"oriel.dev/io/ime"
)

// Metrics is the cell geometry an Editor lays text out with.
type Metrics struct {
	// Advance is the width of a cell.
	Advance fixed.Int26_6
	// Ascent and Descent are the cell extents above and below the
	// baseline.
	Ascent  fixed.Int26_6
	Descent fixed.Int26_6
}

// Editor implements an editable text field laid out on a monospace
// cell grid. Each text element occupies a whole number of cells, one
// for narrow elements and two for wide ones, and lines wrap at
// element boundaries when the content exceeds the field width.
//
// Editor implements ime.Editor; input methods and the application
// edit the same content under the same offset rules.
type Editor struct {
	// Metrics is the cell geometry. Zero fields take defaults.
	Metrics Metrics

	rr    editBuffer
	cache string
	valid bool

	sel     ime.Selection
	comp    ime.Range
	hasComp bool

	bounds f32.Rectangle

	// lines is the laid out content, built on demand.
	lines   []screenLine
	laidOut bool
}

// A screenLine is a single line of laid out content. Its bytes are
// [start;end), excluding the line break of a hard broken line.
type screenLine struct {
	start, end int
	hard       bool
}

// Text returns the content.
func (e *Editor) Text() string {
	return e.content()
}

// SetText replaces the content and places the caret at its end.
func (e *Editor) SetText(s string) {
	e.rr.Replace(0, e.rr.Len(), s)
	e.invalidate()
	e.sel = ime.Selection{Anchor: len(s), Active: len(s)}
	e.comp = ime.Range{}
	e.hasComp = false
}

// SetCaret moves the selection. Both offsets are in bytes and are
// snapped to element boundaries.
func (e *Editor) SetCaret(anchor, active int) {
	e.SetSelection(ime.Selection{Anchor: anchor, Active: active})
}

// SelectedText returns the selected content.
func (e *Editor) SelectedText() string {
	return e.Slice(e.sel.Range())
}

// Insert replaces the selection with s and places the caret after it.
func (e *Editor) Insert(s string) {
	r := e.sel.Range()
	e.Replace(r, s)
	caret := r.Start + len(s)
	e.sel = ime.Selection{Anchor: caret, Active: caret}
}

// Delete removes elements ahead of the caret. The sign of elements
// specifies the direction to delete: positive is forward, negative is
// backward. A non-empty selection is removed instead of whole
// elements.
func (e *Editor) Delete(elements int) {
	if elements == 0 {
		return
	}
	r := e.sel.Range()
	if r.Empty() {
		off := e.sel.Active
		for ; elements < 0 && off > 0; elements++ {
			off = e.prevElement(off)
		}
		for ; elements > 0 && off < e.Len(); elements-- {
			off = e.nextElement(off)
		}
		if off < r.Start {
			r.Start = off
		} else {
			r.End = off
		}
	}
	e.Replace(r, "")
	e.sel = ime.Selection{Anchor: r.Start, Active: r.Start}
}

// SetBounds places the field in surface-local coordinates. The width
// sets the wrap limit.
func (e *Editor) SetBounds(r f32.Rectangle) {
	if r == e.bounds {
		return
	}
	e.bounds = r
	e.laidOut = false
}

// Len is the length of the content in bytes.
func (e *Editor) Len() int {
	return e.rr.Len()
}

// Slice returns the content in r.
func (e *Editor) Slice(r ime.Range) string {
	r = e.clampRange(r)
	return e.content()[r.Start:r.End]
}

// IsBoundary reports whether off lies on a text element boundary.
func (e *Editor) IsBoundary(off int) bool {
	if off <= 0 || off >= e.Len() {
		return off == 0 || off == e.Len()
	}
	ln := e.line(e.lineIndex(off, ime.Downstream))
	if off < ln.start || off > ln.end {
		// Inside the bytes of a line break.
		return false
	}
	pos, state := ln.start, -1
	for s := e.content()[ln.start:ln.end]; len(s) > 0; {
		if pos >= off {
			return pos == off
		}
		cluster, rest, _, next := uniseg.FirstGraphemeClusterInString(s, state)
		pos += len(cluster)
		s, state = rest, next
	}
	return pos == off
}

// Selection returns the selection.
func (e *Editor) Selection() ime.Selection {
	return e.sel
}

// SetSelection replaces the selection, snapping its ends to element
// boundaries.
func (e *Editor) SetSelection(sel ime.Selection) {
	sel.Anchor = e.snap(sel.Anchor)
	sel.Active = e.snap(sel.Active)
	e.sel = sel
}

// Composition returns the in-progress composition range, if any.
func (e *Editor) Composition() (ime.Range, bool) {
	return e.comp, e.hasComp
}

// SetComposition marks r as the in-progress composition.
func (e *Editor) SetComposition(r ime.Range) {
	e.comp = e.clampRange(r)
	e.hasComp = true
}

// ClearComposition removes the composition range, leaving its text in
// place.
func (e *Editor) ClearComposition() {
	e.comp = ime.Range{}
	e.hasComp = false
}

// Replace replaces the text in r with text. Offsets outside r keep
// referring to the same text; offsets inside r move to the end of the
// replacement.
func (e *Editor) Replace(r ime.Range, text string) {
	r = e.clampRange(r)
	e.rr.Replace(r.Start, r.End, text)
	e.invalidate()
	adjust := func(off int) int {
		switch {
		case off <= r.Start:
			return off
		case off >= r.End:
			return off - r.Len() + len(text)
		default:
			return r.Start + len(text)
		}
	}
	e.sel.Anchor = adjust(e.sel.Anchor)
	e.sel.Active = adjust(e.sel.Active)
	if e.hasComp {
		e.comp.Start = adjust(e.comp.Start)
		e.comp.End = adjust(e.comp.End)
	}
}

// LineRange returns the range of the line containing off, excluding
// any trailing line break. At a soft wrap, aff selects between the
// wrapped line and the one after it.
func (e *Editor) LineRange(off int, aff ime.Affinity) ime.Range {
	off = e.clampOff(off)
	ln := e.line(e.lineIndex(off, aff))
	return ime.Range{Start: ln.start, End: ln.end}
}

// Bounds returns the field bounds in surface-local coordinates.
func (e *Editor) Bounds() f32.Rectangle {
	return e.bounds
}

// Caret returns the caret geometry at off.
func (e *Editor) Caret(off int) ime.Caret {
	off = e.clampOff(off)
	m := e.metrics()
	i := e.lineIndex(off, ime.Downstream)
	ln := e.line(i)
	x := e.bounds.Min.X + pxf(m.Advance*fixed.Int26_6(e.cellsBefore(ln, off)))
	baseline := e.bounds.Min.Y + float32(i)*pxf(m.Ascent+m.Descent) + pxf(m.Ascent)
	return ime.Caret{
		Pos:     f32.Pt(x, baseline),
		Ascent:  pxf(m.Ascent),
		Descent: pxf(m.Descent),
	}
}

// HitTest returns the element boundary closest to p and reports
// whether p hit the field.
func (e *Editor) HitTest(p f32.Point) (int, bool) {
	e.layoutText()
	m := e.metrics()
	i := int((p.Y - e.bounds.Min.Y) / pxf(m.Ascent+m.Descent))
	if i < 0 {
		i = 0
	}
	if i >= len(e.lines) {
		i = len(e.lines) - 1
	}
	ln := e.line(i)
	x := p.X - e.bounds.Min.X
	pos, state := ln.start, -1
	for s := e.content()[ln.start:ln.end]; len(s) > 0; {
		cluster, rest, width, next := uniseg.FirstGraphemeClusterInString(s, state)
		adv := pxf(m.Advance * fixed.Int26_6(width))
		if x < adv/2 {
			break
		}
		x -= adv
		pos += len(cluster)
		s, state = rest, next
	}
	return pos, e.bounds.Contains(p)
}

// UTF16Index converts a byte offset into UTF-16 code units.
func (e *Editor) UTF16Index(off int) int {
	off = e.clampOff(off)
	n := 0
	for _, r := range e.content()[:off] {
		n++
		if r > 0xffff {
			n++
		}
	}
	return n
}

// ByteIndex converts an offset in UTF-16 code units into bytes.
func (e *Editor) ByteIndex(u16 int) int {
	txt := e.content()
	n := 0
	for i, r := range txt {
		if n >= u16 {
			return i
		}
		n++
		if r > 0xffff {
			n++
		}
	}
	return len(txt)
}

func (e *Editor) content() string {
	if !e.valid {
		e.cache = e.rr.String()
		e.valid = true
	}
	return e.cache
}

func (e *Editor) invalidate() {
	e.valid = false
	e.laidOut = false
}

func (e *Editor) metrics() Metrics {
	m := e.Metrics
	if m.Advance <= 0 {
		m.Advance = fixed.I(8)
	}
	if m.Ascent <= 0 {
		m.Ascent = fixed.I(12)
	}
	if m.Descent <= 0 {
		m.Descent = fixed.I(4)
	}
	return m
}

// layoutText breaks the content into lines. Hard breaks end a line at
// the break element; soft wraps end it at the last element that fits
// the field width.
func (e *Editor) layoutText() {
	if e.laidOut {
		return
	}
	e.laidOut = true
	e.lines = e.lines[:0]
	m := e.metrics()
	cols := 0
	if w := fixed.Int26_6(e.bounds.Dx() * 64); w > 0 {
		cols = int(w / m.Advance)
	}
	start, off, cells := 0, 0, 0
	state := -1
	for s := e.content(); len(s) > 0; {
		cluster, rest, width, next := uniseg.FirstGraphemeClusterInString(s, state)
		if strings.HasSuffix(cluster, "\n") {
			e.lines = append(e.lines, screenLine{start: start, end: off, hard: true})
			off += len(cluster)
			start = off
			cells = 0
		} else {
			if cols > 0 && cells > 0 && cells+width > cols {
				e.lines = append(e.lines, screenLine{start: start, end: off})
				start = off
				cells = 0
			}
			off += len(cluster)
			cells += width
		}
		s, state = rest, next
	}
	e.lines = append(e.lines, screenLine{start: start, end: off})
}

// lineIndex returns the index of the line containing off. A soft
// wrapped line shares its end offset with the start of the next line;
// aff selects between them.
func (e *Editor) lineIndex(off int, aff ime.Affinity) int {
	e.layoutText()
	i := sort.Search(len(e.lines), func(i int) bool {
		return e.lines[i].end >= off
	})
	if i == len(e.lines) {
		return len(e.lines) - 1
	}
	if aff == ime.Downstream && off == e.lines[i].end && !e.lines[i].hard && i+1 < len(e.lines) {
		return i + 1
	}
	return i
}

func (e *Editor) line(i int) screenLine {
	e.layoutText()
	return e.lines[i]
}

// cellsBefore returns the number of cells the elements of ln before
// off occupy.
func (e *Editor) cellsBefore(ln screenLine, off int) int {
	cells, pos, state := 0, ln.start, -1
	for s := e.content()[ln.start:ln.end]; len(s) > 0 && pos < off; {
		cluster, rest, width, next := uniseg.FirstGraphemeClusterInString(s, state)
		pos += len(cluster)
		cells += width
		s, state = rest, next
	}
	return cells
}

func (e *Editor) nextElement(off int) int {
	for off++; off < e.Len() && !e.IsBoundary(off); off++ {
	}
	if off > e.Len() {
		return e.Len()
	}
	return off
}

func (e *Editor) prevElement(off int) int {
	for off--; off > 0 && !e.IsBoundary(off); off-- {
	}
	if off < 0 {
		return 0
	}
	return off
}

// snap clamps off to the content and moves it back to the nearest
// element boundary.
func (e *Editor) snap(off int) int {
	off = e.clampOff(off)
	for off > 0 && !e.IsBoundary(off) {
		off--
	}
	return off
}

func (e *Editor) clampOff(off int) int {
	if off < 0 {
		return 0
	}
	if n := e.Len(); off > n {
		return n
	}
	return off
}

func (e *Editor) clampRange(r ime.Range) ime.Range {
	r.Start = e.clampOff(r.Start)
	r.End = e.clampOff(r.End)
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// pxf converts a fixed-point value to float pixels.
func pxf(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
