// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"oriel.dev/io/ime"
)

const (
	// maxSurrounding caps the surrounding text excerpt in bytes. The
	// Wayland wire limits a string argument to 4096 bytes; staying
	// well under it leaves room for the rest of the message.
	maxSurrounding = 4000
	// surroundMargin is the excerpt margin around the selection, in
	// text elements, used when the selection's lines exceed
	// maxSurrounding.
	surroundMargin = 50
)

// surroundingWindow picks the span of the field exposed to the input
// method: the full lines containing the selection, shrunk to a margin
// around the selection when they exceed the transport capacity. It
// reports false when no window fits, which happens when the selection
// itself is larger than the capacity.
func surroundingWindow(e ime.Editor) (ime.Range, bool) {
	sel := e.Selection().Range()
	win := ime.Range{
		Start: e.LineRange(sel.Start, ime.Upstream).Start,
		End:   e.LineRange(sel.End, ime.Downstream).End,
	}
	if win.Len() <= maxSurrounding {
		return win, true
	}
	if sel.Len() > maxSurrounding {
		return ime.Range{}, false
	}
	budget := maxSurrounding - sel.Len()
	start := marginStart(e, sel.Start, win.Start, budget/2)
	end := marginEnd(e, sel.End, win.End, budget-(sel.Start-start))
	return ime.Range{Start: start, End: end}, true
}

// marginStart walks backward from off by up to surroundMargin text
// elements, never crossing limit or spending more than budget bytes.
func marginStart(e ime.Editor, off, limit, budget int) int {
	start := off
	for i := 0; i < surroundMargin; i++ {
		prev := prevBoundary(e, start)
		if prev == start || prev < limit || off-prev > budget {
			break
		}
		start = prev
	}
	return start
}

// marginEnd is marginStart in the other direction.
func marginEnd(e ime.Editor, off, limit, budget int) int {
	end := off
	for i := 0; i < surroundMargin; i++ {
		next := nextBoundary(e, end)
		if next == end || next > limit || next-off > budget {
			break
		}
		end = next
	}
	return end
}

// syncFull pushes surrounding text, change cause and cursor rectangle
// to the transport in one commit. While the window is unfocused the
// transport stays disabled and nothing is pushed.
func (s *Seat) syncFull(cause Cause) {
	if s.conn == nil || !s.focused {
		return
	}
	tok := s.fields.active
	if tok == 0 {
		return
	}
	e := s.acquire(tok)
	if e == nil {
		return
	}
	defer s.releaseEditor()
	if !s.enabled {
		s.conn.Enable()
		s.enabled = true
	}
	sel := e.Selection()
	if win, ok := surroundingWindow(e); ok {
		text := e.Slice(win)
		cursor := sel.Active - win.Start
		anchor := sel.Anchor - win.Start
		if comp, composing := e.Composition(); composing {
			// The input method must never see the preedit as
			// committed text: cut it out and point both offsets at
			// the seam.
			cs, ce := comp.Start, comp.End
			if cs < win.Start {
				cs = win.Start
			}
			if ce > win.End {
				ce = win.End
			}
			if cs <= ce {
				text = e.Slice(ime.Range{Start: win.Start, End: cs}) +
					e.Slice(ime.Range{Start: ce, End: win.End})
				cursor = cs - win.Start
				anchor = cursor
			}
		}
		s.conn.SetSurroundingText(text, cursor, anchor)
	} else {
		s.conn.ClearSurroundingText()
	}
	s.conn.SetTextChangeCause(cause)
	s.conn.SetCursorRectangle(e.Caret(sel.Active).Rect())
	s.conn.Commit()
}

// syncCursor pushes a cursor rectangle only. Layout changes move the
// caret on screen without changing any text.
func (s *Seat) syncCursor() {
	if s.conn == nil || !s.enabled {
		return
	}
	tok := s.fields.active
	if tok == 0 {
		return
	}
	e := s.acquire(tok)
	if e == nil {
		return
	}
	defer s.releaseEditor()
	s.conn.SetCursorRectangle(e.Caret(e.Selection().Active).Rect())
	s.conn.Commit()
}

// disableConn tells the transport no field is active.
func (s *Seat) disableConn() {
	if s.conn == nil || !s.enabled {
		return
	}
	s.conn.Disable()
	s.conn.Commit()
	s.enabled = false
}
