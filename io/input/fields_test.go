// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"log/slog"
	"testing"

	"oriel.dev/internal/compose"
	"oriel.dev/io/ime"
	"oriel.dev/io/key"
)

func TestFocusIsLazy(t *testing.T) {
	src := newTestSource()
	s := NewSeat(src, slog.New(slog.DiscardHandler))
	tok := s.AddField()
	src.editors[tok] = newTestEditor("")
	s.RequestFocus(tok)
	if s.fields.active != 0 {
		t.Fatalf("focus applied before reconcile: active = %d", s.fields.active)
	}
	s.Reconcile()
	if s.fields.active != tok {
		t.Fatalf("active = %d, want %d", s.fields.active, tok)
	}
}

func TestTokensAreUnique(t *testing.T) {
	s := NewSeat(newTestSource(), slog.New(slog.DiscardHandler))
	seen := make(map[ime.FieldToken]bool)
	for i := 0; i < 100; i++ {
		tok := s.AddField()
		if tok == 0 {
			t.Fatal("minted the zero token")
		}
		if seen[tok] {
			t.Fatalf("token %d minted twice", tok)
		}
		seen[tok] = true
		s.RemoveField(tok)
	}
}

func TestNotifyUpdatedFiltersTokens(t *testing.T) {
	s, src, _, _ := newTestSeat(t, "", 0)
	other := s.AddField()
	src.editors[other] = newTestEditor("")
	s.NotifyUpdated(other, ime.Reset)
	if s.fields.updated {
		t.Fatal("update for an unfocused field marked the active one")
	}
	s.NotifyUpdated(0, ime.Reset)
	if s.fields.updated {
		t.Fatal("update for the zero token marked the active one")
	}
}

func TestReentrantFocusRequest(t *testing.T) {
	src := newTestSource()
	s := NewSeat(src, slog.New(slog.DiscardHandler))
	tokB := s.AddField()
	tokC := s.AddField()
	src.editors[tokB] = newTestEditor("")
	src.editors[tokC] = newTestEditor("")

	// The application redirects focus while the seat is still
	// reconciling the first request. The loop must settle on the
	// final target.
	redirected := false
	src.onEditor = func(tok ime.FieldToken) {
		if tok == tokB && !redirected {
			redirected = true
			s.RequestFocus(tokC)
		}
	}
	s.RequestFocus(tokB)
	s.Reconcile()
	if s.fields.active != tokC {
		t.Fatalf("active = %d, want %d", s.fields.active, tokC)
	}
	if !redirected {
		t.Fatal("redirect never ran")
	}
}

func TestRemoveActiveField(t *testing.T) {
	src := newTestSource()
	s := NewSeat(src, slog.New(slog.DiscardHandler))
	s.SetComposeTable(compose.Builtin())
	conn := &testConn{}
	ed := newTestEditor("")
	tok := s.AddField()
	src.editors[tok] = ed
	s.RequestFocus(tok)
	s.SetConn(conn)
	s.Reconcile()
	if conn.enables != 1 {
		t.Fatalf("enables = %d, want 1", conn.enables)
	}

	press(s, key.SymDeadGrave)
	if s.Owner() != OwnerKeyboard {
		t.Fatalf("owner = %v, want Keyboard", s.Owner())
	}

	// The application removes the field, editor and all, while a
	// composition is in flight.
	s.RemoveField(tok)
	delete(src.editors, tok)
	s.Reconcile()

	if s.Owner() != OwnerNone {
		t.Fatalf("owner = %v, want None", s.Owner())
	}
	if conn.disables != 1 {
		t.Fatalf("disables = %d, want 1", conn.disables)
	}
	if press(s, key.SymOf('a')) {
		t.Fatal("key handled with no field focused")
	}
}

func TestLayoutOnlySync(t *testing.T) {
	src := newTestSource()
	s := NewSeat(src, slog.New(slog.DiscardHandler))
	conn := &testConn{}
	ed := newTestEditor("abc")
	ed.sel = ime.Selection{Anchor: 2, Active: 2}
	tok := s.AddField()
	src.editors[tok] = ed
	s.RequestFocus(tok)
	s.SetConn(conn)
	s.Reconcile()

	surrounds := conn.surrounds
	commits := conn.commits
	s.NotifyUpdated(tok, ime.LayoutChanged)
	s.Reconcile()
	if conn.surrounds != surrounds {
		t.Fatal("layout-only update pushed surrounding text")
	}
	if conn.commits != commits+1 {
		t.Fatalf("commits = %d, want %d", conn.commits, commits+1)
	}
	want := ed.Caret(2).Rect()
	if conn.rect != want {
		t.Fatalf("cursor rectangle = %v, want %v", conn.rect, want)
	}
}
