// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"image"
	"testing"
	"time"

	"oriel.dev/f32"
	"oriel.dev/internal/compose"
	"oriel.dev/internal/keymap"
	"oriel.dev/io/ime"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
	"oriel.dev/widget"
)

// Key codes of the builtin US layout used throughout.
const (
	codeE          = 18
	codeA          = 30
	codeApostrophe = 40
	codeCompose    = 127
)

// recordingHandler logs every callback it receives.
type recordingHandler struct {
	w *Window

	editors map[ime.FieldToken]*widget.Editor

	resizes  []image.Point
	metrics  []unit.Metric
	paints   int
	focus    []bool
	keysDown []key.Event
	keysUp   []key.Event
	pointers []pointer.Event
	timers   []TimerToken
	destroys int

	onKeyDown func(e key.Event) bool
	onTimer   func(tok TimerToken)
}

func (h *recordingHandler) Created(w *Window) { h.w = w }

func (h *recordingHandler) Resized(size image.Point, m unit.Metric) {
	h.resizes = append(h.resizes, size)
	h.metrics = append(h.metrics, m)
}

func (h *recordingHandler) Paint() { h.paints++ }

func (h *recordingHandler) FocusChanged(focus bool) { h.focus = append(h.focus, focus) }

func (h *recordingHandler) KeyDown(e key.Event) bool {
	h.keysDown = append(h.keysDown, e)
	if h.onKeyDown != nil {
		return h.onKeyDown(e)
	}
	return false
}

func (h *recordingHandler) KeyUp(e key.Event) { h.keysUp = append(h.keysUp, e) }

func (h *recordingHandler) Pointer(e pointer.Event) { h.pointers = append(h.pointers, e) }

func (h *recordingHandler) Timer(tok TimerToken) {
	h.timers = append(h.timers, tok)
	if h.onTimer != nil {
		h.onTimer(tok)
	}
}

func (h *recordingHandler) Editor(tok ime.FieldToken) ime.Editor {
	if ed, ok := h.editors[tok]; ok {
		return ed
	}
	return nil
}

func (h *recordingHandler) Destroyed() { h.destroys++ }

func newTestWindow(t *testing.T) (*Headless, *recordingHandler) {
	t.Helper()
	h := &recordingHandler{editors: make(map[ime.FieldToken]*widget.Editor)}
	hl := NewHeadless(h)
	t.Cleanup(hl.Close)
	if h.w == nil {
		t.Fatal("no Created callback before NewHeadless returned")
	}
	// Pin the builtin compose table so the host environment cannot
	// change what composition is available.
	hl.Window().seat.SetComposeTable(compose.Builtin())
	return hl, h
}

// addField registers a text field backed by a fresh editor and
// focuses it, the way a handler would from inside a callback.
func addField(t *testing.T, hl *Headless, h *recordingHandler) (ime.FieldToken, *widget.Editor) {
	t.Helper()
	ed := new(widget.Editor)
	ed.SetBounds(f32.Rect(0, 0, 400, 200))
	var tok ime.FieldToken
	hl.Window().Run(func() {
		tok = h.w.AddTextField()
		h.editors[tok] = ed
		h.w.SetFocusedTextField(tok)
	})
	hl.Flush()
	return tok, ed
}

func TestHeadlessLifecycle(t *testing.T) {
	hl, h := newTestWindow(t)

	if got, want := len(h.resizes), 1; got != want {
		t.Fatalf("initial resizes = %d, want %d", got, want)
	}
	if got, want := h.resizes[0], image.Pt(800, 600); got != want {
		t.Fatalf("initial size = %v, want %v", got, want)
	}
	if got, want := h.metrics[0], (unit.Metric{PxPerDp: 1, PxPerSp: 1}); got != want {
		t.Fatalf("initial metric = %v, want %v", got, want)
	}
	if len(h.focus) != 1 || !h.focus[0] {
		t.Fatalf("focus log = %v, want [true]", h.focus)
	}

	hl.Resize(image.Pt(400, 300))
	if got, want := len(h.resizes), 2; got != want {
		t.Fatalf("resizes = %d, want %d", got, want)
	}
	// A report of the unchanged geometry is dropped.
	hl.Resize(image.Pt(400, 300))
	if got, want := len(h.resizes), 2; got != want {
		t.Fatalf("resizes after duplicate = %d, want %d", got, want)
	}

	hl.Close()
	if got, want := h.destroys, 1; got != want {
		t.Fatalf("destroys = %d, want %d", got, want)
	}
	hl.Close()
	if got, want := h.destroys, 1; got != want {
		t.Fatalf("destroys after second close = %d, want %d", got, want)
	}
}

func TestTypingInsertsText(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	hl.KeyPress(codeA)
	hl.KeyRelease(codeA)
	hl.SetModifiers(keymap.MaskShift, 0)
	hl.KeyPress(codeA)
	hl.KeyRelease(codeA)

	if got, want := ed.Text(), "aA"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
	if got, want := len(h.keysDown), 2; got != want {
		t.Fatalf("key downs = %d, want %d", got, want)
	}
	if got, want := h.keysDown[0].Text, "a"; got != want {
		t.Fatalf("first press text = %q, want %q", got, want)
	}
	if got, want := h.keysDown[1].Text, "A"; got != want {
		t.Fatalf("shifted press text = %q, want %q", got, want)
	}
}

func TestKeyRepeatMarked(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	hl.KeyPress(codeA)
	hl.KeyPress(codeA)

	if h.keysDown[0].Repeat {
		t.Fatal("first press marked as repeat")
	}
	if !h.keysDown[1].Repeat {
		t.Fatal("held press not marked as repeat")
	}
	if got, want := ed.Text(), "aa"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestKeyDownConsumes(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	h.onKeyDown = func(e key.Event) bool {
		return e.Text == "a"
	}
	hl.KeyPress(codeA)
	hl.KeyPress(codeE)

	// The consumed press never reached the field.
	if got, want := ed.Text(), "e"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestKeyUpPassedThrough(t *testing.T) {
	hl, h := newTestWindow(t)
	addField(t, hl, h)

	hl.KeyPress(codeA)
	hl.KeyRelease(codeA)

	if got, want := len(h.keysUp), 1; got != want {
		t.Fatalf("key ups = %d, want %d", got, want)
	}
	if got, want := h.keysUp[0].State, key.Release; got != want {
		t.Fatalf("key up state = %v, want %v", got, want)
	}
}

func TestComposeSequence(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	hl.KeyPress(codeCompose)
	if got, want := ed.Text(), "·"; got != want {
		t.Fatalf("text after Compose = %q, want marker %q", got, want)
	}
	hl.KeyPress(codeApostrophe)
	if got, want := ed.Text(), "'"; got != want {
		t.Fatalf("text after apostrophe = %q, want %q", got, want)
	}
	if _, ok := ed.Composition(); !ok {
		t.Fatal("no composition range mid-sequence")
	}
	hl.KeyPress(codeE)
	if got, want := ed.Text(), "é"; got != want {
		t.Fatalf("text after e = %q, want %q", got, want)
	}
	if _, ok := ed.Composition(); ok {
		t.Fatal("composition range survived the finished sequence")
	}
	if got := h.w.seat.Owner(); got != input.OwnerNone {
		t.Fatalf("owner = %v, want None", got)
	}

	// Only the presses after the first take part in the
	// composition.
	want := []bool{false, true, true}
	for i, e := range h.keysDown {
		if e.IsComposing != want[i] {
			t.Fatalf("press %d IsComposing = %v, want %v", i, e.IsComposing, want[i])
		}
	}
}

func TestBlurReleasesComposition(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	hl.KeyPress(codeCompose)
	hl.KeyPress(codeApostrophe)

	hl.Focus(false)
	// The partial sequence stays behind as plain text.
	if got, want := ed.Text(), "'"; got != want {
		t.Fatalf("text after blur = %q, want %q", got, want)
	}
	if _, ok := ed.Composition(); ok {
		t.Fatal("composition range survived the blur")
	}
	if got := h.w.seat.Owner(); got != input.OwnerNone {
		t.Fatalf("owner = %v, want None", got)
	}
	if want := []bool{true, false}; len(h.focus) != 2 || h.focus[1] {
		t.Fatalf("focus log = %v, want %v", h.focus, want)
	}

	// Typing after a regained focus starts clean.
	hl.Focus(true)
	hl.KeyPress(codeE)
	if got, want := ed.Text(), "'e"; got != want {
		t.Fatalf("text after refocus = %q, want %q", got, want)
	}
}

func TestImeBatch(t *testing.T) {
	hl, h := newTestWindow(t)
	_, ed := addField(t, hl, h)

	var b input.Batch
	b.Preedit.Set = true
	b.Preedit.Text = "か"
	b.Preedit.CursorBegin = -1
	hl.Ime(b)

	if got, want := ed.Text(), "か"; got != want {
		t.Fatalf("text after preedit = %q, want %q", got, want)
	}
	if _, ok := ed.Composition(); !ok {
		t.Fatal("no composition range for the preedit")
	}
	if got := h.w.seat.Owner(); got != input.OwnerIme {
		t.Fatalf("owner = %v, want Ime", got)
	}

	var c input.Batch
	c.Commit.Set = true
	c.Commit.Text = "字"
	hl.Ime(c)

	if got, want := ed.Text(), "字"; got != want {
		t.Fatalf("text after commit = %q, want %q", got, want)
	}
	if _, ok := ed.Composition(); ok {
		t.Fatal("composition range survived the commit")
	}
	if got := h.w.seat.Owner(); got != input.OwnerNone {
		t.Fatalf("owner = %v, want None", got)
	}
}

func TestTimerCancel(t *testing.T) {
	hl, h := newTestWindow(t)
	base := hl.Now()

	tokA := h.w.SetTimer(base.Add(10 * time.Millisecond))
	tokB := h.w.SetTimer(base.Add(5 * time.Millisecond))
	h.w.CancelTimer(tokA)

	hl.Advance(20 * time.Millisecond)
	if len(h.timers) != 1 || h.timers[0] != tokB {
		t.Fatalf("timers = %v, want [%v]", h.timers, tokB)
	}
	// Cancelling an elapsed timer does nothing.
	h.w.CancelTimer(tokB)
	hl.Advance(20 * time.Millisecond)
	if got, want := len(h.timers), 1; got != want {
		t.Fatalf("timers after re-cancel = %d, want %d", got, want)
	}
}

func TestTimerOrder(t *testing.T) {
	hl, h := newTestWindow(t)
	base := hl.Now()

	tokA := h.w.SetTimer(base.Add(10 * time.Millisecond))
	tokB := h.w.SetTimer(base.Add(5 * time.Millisecond))

	// A timer set from a timer callback for a time already past
	// fires in the same turn, in deadline order.
	var tokC TimerToken
	h.onTimer = func(tok TimerToken) {
		if tok == tokB {
			tokC = h.w.SetTimer(base)
		}
	}

	hl.Advance(10 * time.Millisecond)
	want := []TimerToken{tokB, tokC, tokA}
	if len(h.timers) != len(want) {
		t.Fatalf("timers = %v, want %v", h.timers, want)
	}
	for i := range want {
		if h.timers[i] != want[i] {
			t.Fatalf("timers = %v, want %v", h.timers, want)
		}
	}
}

func TestScheduleFrameCoalesces(t *testing.T) {
	hl, h := newTestWindow(t)
	base := hl.Now()
	before := h.paints

	h.w.ScheduleFrame(base.Add(10 * time.Millisecond))
	h.w.ScheduleFrame(base.Add(5 * time.Millisecond))
	h.w.ScheduleFrame(base.Add(20 * time.Millisecond))

	hl.Advance(5 * time.Millisecond)
	if got, want := h.paints, before+1; got != want {
		t.Fatalf("paints = %d, want %d", got, want)
	}
	// The later requests coalesced into the earliest.
	hl.Advance(time.Second)
	if got, want := h.paints, before+1; got != want {
		t.Fatalf("paints after drain = %d, want %d", got, want)
	}
}

func TestInvalidate(t *testing.T) {
	hl, h := newTestWindow(t)
	before := h.paints

	h.w.Invalidate()
	h.w.Invalidate()
	hl.Flush()
	if got, want := h.paints, before+1; got != want {
		t.Fatalf("paints = %d, want %d", got, want)
	}
}

func TestRunFromAnotherGoroutine(t *testing.T) {
	hl, h := newTestWindow(t)

	ran := false
	done := make(chan struct{})
	go func() {
		h.w.Run(func() { ran = true })
		close(done)
	}()
	<-done
	hl.Flush()
	if !ran {
		t.Fatal("scheduled function did not run")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	hl, h := newTestWindow(t)
	addField(t, hl, h)

	hl.Close()
	hl.KeyPress(codeA)
	if got, want := len(h.keysDown), 0; got != want {
		t.Fatalf("key downs after close = %d, want %d", got, want)
	}
}

func TestPointerDelivery(t *testing.T) {
	hl, h := newTestWindow(t)

	e := pointer.Event{
		Kind:     pointer.Press,
		Buttons:  pointer.ButtonPrimary,
		Position: f32.Pt(10, 20),
	}
	hl.Pointer(e)
	if got, want := len(h.pointers), 1; got != want {
		t.Fatalf("pointer events = %d, want %d", got, want)
	}
	if got := h.pointers[0]; got != e {
		t.Fatalf("pointer event = %+v, want %+v", got, e)
	}
}

func TestFieldRemoval(t *testing.T) {
	hl, h := newTestWindow(t)
	tok, ed := addField(t, hl, h)

	hl.KeyPress(codeA)
	hl.Window().Run(func() {
		h.w.RemoveTextField(tok)
	})
	hl.Flush()

	// Keys go nowhere once the focused field is gone.
	hl.KeyPress(codeE)
	if got, want := ed.Text(), "a"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}
