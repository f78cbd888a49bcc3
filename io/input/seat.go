// SPDX-License-Identifier: Unlicense OR MIT

/*
Package input implements the portable input core shared by all
backends: the text field registry, the composition ownership state
machine and the state synchronization with external input methods.

A Seat receives resolved key events and input method batches from its
backend and turns them into edits on the focused field's ime.Editor.
At most one composition engine may edit the preedit at a time. The
Seat arbitrates between the built-in compose engine and the external
input method and forcibly releases the preedit on focus changes and
application edits.

All methods must be called from the event loop goroutine. Editor
access is a logical borrow, not a lock: acquiring an editor while one
is already acquired is a bug in the caller and panics.
*/
package input

import (
	"fmt"
	"log/slog"

	"oriel.dev/internal/compose"
	"oriel.dev/io/ime"
	"oriel.dev/io/key"
)

// Owner names the engine holding the in-progress composition of a
// seat, if any.
type Owner uint8

const (
	// OwnerNone means no composition is in progress.
	OwnerNone Owner = iota
	// OwnerKeyboard means the built-in compose engine holds the
	// preedit.
	OwnerKeyboard
	// OwnerIme means the external input method holds the preedit.
	OwnerIme
)

func (o Owner) String() string {
	switch o {
	case OwnerNone:
		return "None"
	case OwnerKeyboard:
		return "Keyboard"
	case OwnerIme:
		return "Ime"
	default:
		panic("unknown Owner")
	}
}

// releaseReason selects what a forced release leaves behind in the
// buffer.
type releaseReason uint8

const (
	// reasonUnfocus keeps the partial composition as committed text.
	// The user is coming back to a field that still shows what they
	// typed.
	reasonUnfocus releaseReason = iota
	// reasonEdit drops the preedit. The field content changed under
	// the composition, so the partial text is meaningless.
	reasonEdit
)

// Seat is the per-seat input state of one window: the focused field
// registry, the compose engine and the connection to the external
// input method.
//
// The zero Seat is not usable; construct with NewSeat.
type Seat struct {
	source EditorSource
	log    *slog.Logger

	engine *compose.Engine
	conn   Conn
	// enabled tracks whether the transport has been told a field is
	// active.
	enabled bool

	fields  fieldState
	owner   Owner
	held    bool
	focused bool

	nextToken ime.FieldToken
}

// NewSeat returns a seat reading editors from source. A nil log falls
// back to slog.Default.
func NewSeat(source EditorSource, log *slog.Logger) *Seat {
	if log == nil {
		log = slog.Default()
	}
	return &Seat{
		source:  source,
		log:     log,
		engine:  compose.NewEngine(nil),
		focused: true,
	}
}

// SetFocus reports whether the seat's window holds keyboard focus.
// Losing focus releases any composition, keeping the partial text in
// the field, and disables the transport. Regaining focus pushes the
// full field state again.
func (s *Seat) SetFocus(focused bool) {
	if focused == s.focused {
		return
	}
	s.focused = focused
	if !focused {
		s.release(s.fields.active, reasonUnfocus)
		s.disableConn()
		return
	}
	s.Refresh()
}

// SetComposeTable installs the compose table for the keyboard path.
// A nil table disables built-in composition. Any composition in
// progress is released as if the field lost focus.
func (s *Seat) SetComposeTable(t *compose.Table) {
	if s.owner == OwnerKeyboard {
		s.release(s.fields.active, reasonUnfocus)
	}
	s.engine.SetTable(t)
}

// SetConn installs the external input method transport. A nil conn
// disconnects it.
func (s *Seat) SetConn(c Conn) {
	if s.owner == OwnerIme {
		s.release(s.fields.active, reasonEdit)
	}
	s.conn = c
	s.enabled = false
	if c != nil {
		s.Refresh()
	}
}

// Owner returns the engine currently holding the composition.
func (s *Seat) Owner() Owner {
	return s.owner
}

// Composing reports whether a composition is in progress on either
// path.
func (s *Seat) Composing() bool {
	return s.owner != OwnerNone
}

// acquire borrows the editor for tok. It returns nil when the token
// no longer resolves. The caller must pair a non-nil return with
// releaseEditor.
func (s *Seat) acquire(tok ime.FieldToken) ime.Editor {
	if s.held {
		panic(fmt.Sprintf("input: editor for field %d acquired twice", tok))
	}
	if tok == 0 || s.source == nil {
		return nil
	}
	e := s.source.Editor(tok)
	if e == nil {
		return nil
	}
	s.held = true
	return e
}

func (s *Seat) releaseEditor() {
	s.held = false
}

// Key feeds an unconsumed key event to the focused field. It reports
// whether the event was absorbed by composition or editing.
func (s *Seat) Key(e key.Event) bool {
	if s.fields.active == 0 && s.fields.next == 0 {
		return false
	}
	if fwd, ok := s.conn.(KeyForwarder); ok && s.owner != OwnerKeyboard {
		if fwd.ForwardKey(e) {
			return true
		}
	}
	if e.State != key.Press {
		return false
	}
	s.reconcile(false)
	tok := s.fields.active
	if tok == 0 {
		return false
	}
	if s.owner != OwnerIme {
		out := s.engine.Feed(e.Sym)
		if out.Kind != compose.None {
			s.applyOutcome(tok, out)
			s.syncFull(CauseEdit)
			return true
		}
		if s.engine.Composing() {
			// Modifier or unresolved key mid-composition.
			return true
		}
	}
	return s.editKey(tok, e)
}

// applyOutcome writes a compose engine outcome into the field and
// moves ownership accordingly.
func (s *Seat) applyOutcome(tok ime.FieldToken, out compose.Outcome) {
	e := s.acquire(tok)
	if e == nil {
		s.engine.Cancel()
		s.owner = OwnerNone
		return
	}
	defer s.releaseEditor()
	target, ok := e.Composition()
	if !ok {
		target = e.Selection().Range()
	}
	switch out.Kind {
	case compose.Updated:
		e.Replace(target, out.Text)
		end := target.Start + len(out.Text)
		e.SetComposition(ime.Range{Start: target.Start, End: end})
		e.SetSelection(ime.Selection{Anchor: end, Active: end})
		s.owner = OwnerKeyboard
	case compose.Finished:
		e.Replace(target, out.Text)
		end := target.Start + len(out.Text)
		e.ClearComposition()
		e.SetSelection(ime.Selection{Anchor: end, Active: end})
		s.owner = OwnerNone
	case compose.Cancelled:
		if ok {
			e.Replace(target, "")
			e.SetSelection(ime.Selection{Anchor: target.Start, Active: target.Start})
		}
		e.ClearComposition()
		s.engine.Cancel()
		s.owner = OwnerNone
	}
}

// ImeDone applies one batch from the external input method. Batches
// that arrive while the keyboard engine is composing are a protocol
// race and are dropped.
func (s *Seat) ImeDone(b Batch) {
	if s.fields.active == 0 && s.fields.next == 0 {
		return
	}
	s.reconcile(false)
	tok := s.fields.active
	if tok == 0 {
		return
	}
	if s.owner == OwnerKeyboard {
		s.log.Debug("input: dropping input method batch during keyboard composition")
		return
	}
	s.applyBatch(tok, b)
	s.syncFull(CauseIme)
}

// applyBatch performs the batch edits in the order the protocol
// demands: remove the old preedit, delete surrounding text, insert
// the commit string, insert the new preedit. The selection is re-read
// between steps because every replacement shifts offsets.
func (s *Seat) applyBatch(tok ime.FieldToken, b Batch) {
	e := s.acquire(tok)
	if e == nil {
		s.owner = OwnerNone
		return
	}
	defer s.releaseEditor()
	if comp, ok := e.Composition(); ok {
		e.Replace(comp, "")
		e.SetSelection(ime.Selection{Anchor: comp.Start, Active: comp.Start})
		e.ClearComposition()
	}
	if b.DeleteAfter > 0 {
		r := e.Selection().Range()
		end := snapForward(e, min(r.End+b.DeleteAfter, e.Len()))
		e.Replace(ime.Range{Start: r.End, End: end}, "")
	}
	if b.DeleteBefore > 0 {
		r := e.Selection().Range()
		start := snapBack(e, max(r.Start-b.DeleteBefore, 0))
		e.Replace(ime.Range{Start: start, End: r.Start}, "")
	}
	if b.Commit.Set {
		r := e.Selection().Range()
		e.Replace(r, b.Commit.Text)
		pos := r.Start + len(b.Commit.Text)
		e.SetSelection(ime.Selection{Anchor: pos, Active: pos})
	}
	if b.Preedit.Set && b.Preedit.Text != "" {
		r := e.Selection().Range()
		e.Replace(r, b.Preedit.Text)
		start := r.Start
		end := start + len(b.Preedit.Text)
		e.SetComposition(ime.Range{Start: start, End: end})
		sel := ime.Selection{Anchor: end, Active: end}
		if cb := b.Preedit.CursorBegin; cb >= 0 {
			sel.Anchor = start + min(cb, len(b.Preedit.Text))
			sel.Active = sel.Anchor
			if ce := b.Preedit.CursorEnd; ce >= 0 {
				sel.Active = start + min(ce, len(b.Preedit.Text))
			}
		}
		e.SetSelection(sel)
		s.owner = OwnerIme
	} else {
		e.ClearComposition()
		s.owner = OwnerNone
	}
}

// ReleaseComposition force-releases any composition in progress,
// keeping the partial text in the field. It is idempotent. Backends
// call it when the seat's keyboard focus leaves the window.
func (s *Seat) ReleaseComposition() {
	s.release(s.fields.active, reasonUnfocus)
}

// release is the single exit from composition ownership. From
// OwnerNone it must not touch the editor at all.
func (s *Seat) release(tok ime.FieldToken, reason releaseReason) {
	switch s.owner {
	case OwnerNone:
		return
	case OwnerKeyboard:
		text := s.engine.Cancel()
		e := s.acquire(tok)
		if e == nil {
			s.owner = OwnerNone
			return
		}
		if comp, ok := e.Composition(); ok {
			if reason == reasonEdit {
				text = ""
			}
			e.Replace(comp, text)
			pos := comp.Start + len(text)
			e.SetSelection(ime.Selection{Anchor: pos, Active: pos})
		}
		e.ClearComposition()
		s.releaseEditor()
	case OwnerIme:
		// The protocol has no way to tell the input method we
		// cancelled it, so wipe the preedit regardless of reason.
		e := s.acquire(tok)
		if e == nil {
			s.owner = OwnerNone
			return
		}
		if comp, ok := e.Composition(); ok {
			e.Replace(comp, "")
			e.SetSelection(ime.Selection{Anchor: comp.Start, Active: comp.Start})
		}
		e.ClearComposition()
		s.releaseEditor()
	}
	s.owner = OwnerNone
}

// WithEditor reconciles focus and calls fn with the focused field's
// editor borrowed. It does nothing when no field is focused. Backends
// use it to answer document queries from platform input interfaces.
func (s *Seat) WithEditor(fn func(e ime.Editor)) {
	s.reconcile(false)
	e := s.acquire(s.fields.active)
	if e == nil {
		return
	}
	defer s.releaseEditor()
	fn(e)
}

// editKey performs plain editing for keys that are not part of a
// composition.
func (s *Seat) editKey(tok ime.FieldToken, ev key.Event) bool {
	mutating := ev.Text != "" ||
		ev.Name == key.NameDeleteBackward || ev.Name == key.NameDeleteForward ||
		ev.Name == key.NameReturn || ev.Name == key.NameEnter
	moving := ev.Name == key.NameLeftArrow || ev.Name == key.NameRightArrow ||
		ev.Name == key.NameHome || ev.Name == key.NameEnd
	if !mutating && !moving {
		return false
	}
	if ev.Modifiers.Contain(key.ModCtrl) || ev.Modifiers.Contain(key.ModAlt) || ev.Modifiers.Contain(key.ModSuper) {
		// Shortcut chords belong to the application.
		return false
	}
	if mutating && s.owner == OwnerIme {
		// The input method let the key through; it abandoned the
		// preedit.
		s.log.Debug("input: key during external preedit, releasing composition")
		s.release(tok, reasonEdit)
	}
	e := s.acquire(tok)
	if e == nil {
		return false
	}
	sel := e.Selection()
	switch {
	case ev.Text != "":
		r := sel.Range()
		e.Replace(r, ev.Text)
		pos := r.Start + len(ev.Text)
		e.SetSelection(ime.Selection{Anchor: pos, Active: pos})
	case ev.Name == key.NameReturn || ev.Name == key.NameEnter:
		r := sel.Range()
		e.Replace(r, "\n")
		pos := r.Start + 1
		e.SetSelection(ime.Selection{Anchor: pos, Active: pos})
	case ev.Name == key.NameDeleteBackward:
		r := sel.Range()
		if r.Empty() {
			r.Start = prevBoundary(e, r.Start)
		}
		e.Replace(r, "")
		e.SetSelection(ime.Selection{Anchor: r.Start, Active: r.Start})
	case ev.Name == key.NameDeleteForward:
		r := sel.Range()
		if r.Empty() {
			r.End = nextBoundary(e, r.End)
		}
		e.Replace(r, "")
		e.SetSelection(ime.Selection{Anchor: r.Start, Active: r.Start})
	case ev.Name == key.NameLeftArrow:
		pos := prevBoundary(e, sel.Active)
		if !sel.Collapsed() && !ev.Modifiers.Contain(key.ModShift) {
			pos = sel.Range().Start
		}
		s.moveCaret(e, sel, pos, ev.Modifiers)
	case ev.Name == key.NameRightArrow:
		pos := nextBoundary(e, sel.Active)
		if !sel.Collapsed() && !ev.Modifiers.Contain(key.ModShift) {
			pos = sel.Range().End
		}
		s.moveCaret(e, sel, pos, ev.Modifiers)
	case ev.Name == key.NameHome:
		s.moveCaret(e, sel, e.LineRange(sel.Active, ime.Downstream).Start, ev.Modifiers)
	case ev.Name == key.NameEnd:
		s.moveCaret(e, sel, e.LineRange(sel.Active, ime.Upstream).End, ev.Modifiers)
	}
	s.releaseEditor()
	s.syncFull(CauseEdit)
	return true
}

func (s *Seat) moveCaret(e ime.Editor, sel ime.Selection, pos int, mods key.Modifiers) {
	next := ime.Selection{Anchor: pos, Active: pos}
	if mods.Contain(key.ModShift) {
		next.Anchor = sel.Anchor
	}
	e.SetSelection(next)
}

// nextBoundary returns the first text element boundary after off.
func nextBoundary(e ime.Editor, off int) int {
	n := e.Len()
	if off >= n {
		return n
	}
	off++
	for off < n && !e.IsBoundary(off) {
		off++
	}
	return off
}

// prevBoundary returns the last text element boundary before off.
func prevBoundary(e ime.Editor, off int) int {
	if off <= 0 {
		return 0
	}
	off--
	for off > 0 && !e.IsBoundary(off) {
		off--
	}
	return off
}

// snapForward moves off forward to the nearest boundary.
func snapForward(e ime.Editor, off int) int {
	n := e.Len()
	for off < n && !e.IsBoundary(off) {
		off++
	}
	if off > n {
		return n
	}
	return off
}

// snapBack moves off back to the nearest boundary.
func snapBack(e ime.Editor, off int) int {
	if off < 0 {
		return 0
	}
	for off > 0 && !e.IsBoundary(off) {
		off--
	}
	return off
}
