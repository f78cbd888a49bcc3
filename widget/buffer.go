// SPDX-License-Identifier: Unlicense OR MIT

package widget

import "strings"

// editBuffer implements a gap buffer for text editing. The gap follows
// the most recent edit, so runs of edits at the same position avoid
// moving the surrounding text.
type editBuffer struct {
	// The gap start and end in bytes.
	gapstart, gapend int
	text             []byte
}

const minSpace = 64

func (e *editBuffer) Len() int {
	return len(e.text) - e.gapLen()
}

func (e *editBuffer) gapLen() int {
	return e.gapend - e.gapstart
}

// Replace replaces the bytes in [start;end) with s.
func (e *editBuffer) Replace(start, end int, s string) {
	e.moveGap(start, len(s))
	e.gapend += end - start
	copy(e.text[e.gapstart:], s)
	e.gapstart += len(s)
}

// moveGap moves the gap to off. After returning, the gap is
// guaranteed to be at least space bytes long.
func (e *editBuffer) moveGap(off, space int) {
	if e.gapLen() < space {
		if space < minSpace {
			space = minSpace
		}
		content := e.String()
		txt := make([]byte, len(content)+space)
		// Expand to capacity.
		txt = txt[:cap(txt)]
		gap := len(txt) - len(content)
		copy(txt, content[:off])
		copy(txt[off+gap:], content[off:])
		e.text = txt
		e.gapstart = off
		e.gapend = off + gap
		return
	}
	if off < e.gapstart {
		n := e.gapstart - off
		copy(e.text[e.gapend-n:e.gapend], e.text[off:e.gapstart])
		e.gapstart -= n
		e.gapend -= n
	} else if off > e.gapstart {
		n := off - e.gapstart
		copy(e.text[e.gapstart:off], e.text[e.gapend:e.gapend+n])
		e.gapstart += n
		e.gapend += n
	}
}

func (e *editBuffer) String() string {
	var b strings.Builder
	b.Grow(e.Len())
	b.Write(e.text[:e.gapstart])
	b.Write(e.text[e.gapend:])
	return b.String()
}
