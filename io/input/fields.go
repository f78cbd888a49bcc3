// SPDX-License-Identifier: Unlicense OR MIT

package input

import "oriel.dev/io/ime"

// fieldState is the focus cell shared by the keyboard dispatch path
// and the input method path. Focus moves are recorded in next and
// applied lazily by reconcile, because a focus request can arrive in
// the middle of handling an event for the previous field.
type fieldState struct {
	active ime.FieldToken
	next   ime.FieldToken
	// updated is set when the active field's content or selection
	// changed outside the input method's control.
	updated bool
	// layout is set when only the field's geometry changed.
	layout bool
}

// AddField mints a token for a new text field.
func (s *Seat) AddField() ime.FieldToken {
	s.nextToken++
	return s.nextToken
}

// RemoveField invalidates tok. Removing the focused field drops
// focus. Operations against a removed token become no-ops.
func (s *Seat) RemoveField(tok ime.FieldToken) {
	if tok == 0 {
		return
	}
	if s.fields.next == tok {
		s.fields.next = 0
	}
	if s.fields.active == tok {
		// The editor may already be gone; ownership is cleaned up on
		// the next reconcile.
		s.fields.active = 0
		s.fields.updated = true
	}
}

// RequestFocus asks for tok to become the focused field. The zero
// token clears focus. The change is applied by the next reconcile.
func (s *Seat) RequestFocus(tok ime.FieldToken) {
	s.fields.next = tok
}

// NotifyUpdated records a change to tok. Events for fields other than
// the focused one are ignored.
func (s *Seat) NotifyUpdated(tok ime.FieldToken, ev ime.FieldEvent) {
	if tok == 0 || tok != s.fields.active {
		return
	}
	switch ev {
	case ime.Reset, ime.SelectionChanged:
		s.fields.updated = true
	case ime.LayoutChanged:
		s.fields.layout = true
	}
}

// Refresh reconciles focus and pushes a full state update to the
// input method. Backends call it when the transport (re)gains the
// ability to receive state, such as on keyboard enter.
func (s *Seat) Refresh() {
	s.reconcile(true)
}

// Reconcile applies pending focus and dirty flags. Backends call it
// after the application had a chance to call the field methods, for
// instance at the end of an event loop turn.
func (s *Seat) Reconcile() {
	s.reconcile(false)
}

// reconcile runs the focus fixed point. Every step may call into
// application code which may request focus or mark fields again, so
// the loop re-reads the shared state after each one and only stops
// once nothing is pending.
func (s *Seat) reconcile(force bool) {
	for {
		switch {
		case s.fields.next != s.fields.active:
			old := s.fields.active
			s.release(old, reasonUnfocus)
			s.fields.active = s.fields.next
			s.fields.updated = true
		case s.fields.updated || force:
			force = false
			s.fields.updated = false
			s.release(s.fields.active, reasonEdit)
			if s.fields.active == 0 {
				s.disableConn()
			} else {
				s.clearComposition(s.fields.active)
				s.syncFull(CauseOther)
			}
		case s.fields.layout:
			s.fields.layout = false
			s.syncCursor()
		default:
			return
		}
	}
}

// clearComposition drops any stale composition range left in the
// field by a previous session.
func (s *Seat) clearComposition(tok ime.FieldToken) {
	e := s.acquire(tok)
	if e == nil {
		return
	}
	e.ClearComposition()
	s.releaseEditor()
}
