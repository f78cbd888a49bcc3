// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"image"
	"io"
	"log/slog"
	"time"

	"oriel.dev/io/ime"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
)

// Handler is the application side of one window. The event loop calls
// its methods, never more than one at a time, starting with Created
// and ending with Destroyed.
type Handler interface {
	// Created is called once, before any other method, when the
	// native window exists. The Window stays valid until Destroyed.
	Created(w *Window)

	// Resized reports the new inner size in pixels together with the
	// metric for converting device independent sizes.
	Resized(size image.Point, m unit.Metric)

	// Paint asks the application to redraw the window contents.
	Paint()

	// FocusChanged reports keyboard focus arriving at or leaving the
	// window. A composition in progress is released, keeping its
	// partial text, before a loss is reported.
	FocusChanged(focus bool)

	// KeyDown reports a key press. Returning true consumes the event;
	// unconsumed presses feed composition and editing on the focused
	// text field. Presses with IsComposing set belong to an active
	// composition and should not be treated as shortcuts.
	KeyDown(e key.Event) bool

	// KeyUp reports a key release that no input method claimed.
	KeyUp(e key.Event)

	// Pointer reports a pointer event.
	Pointer(e pointer.Event)

	// Timer reports an elapsed timer.
	Timer(tok TimerToken)

	// Editor returns the editor for a text field token, or nil when
	// the token no longer names a live field.
	Editor(tok ime.FieldToken) ime.Editor

	// Destroyed is called last, after the native window is gone.
	Destroyed()
}

// TimerToken identifies one timer request on a window.
type TimerToken uint64

type windowTimer struct {
	tok TimerToken
	at  time.Time
}

// Window connects a native window to a Handler. All methods except
// Run must be called on the window's event loop goroutine, that is
// from a handler callback or a function passed to Run.
type Window struct {
	h    Handler
	seat *input.Seat
	log  *slog.Logger
	d    driver

	size    image.Point
	metric  unit.Metric
	focused bool
	dead    bool

	frameAt   time.Time
	timers    []windowTimer
	lastTimer TimerToken

	composeWatch io.Closer
}

// handlerSource adapts a Handler to the seat's editor lookup.
type handlerSource struct {
	h Handler
}

func (s handlerSource) Editor(tok ime.FieldToken) ime.Editor {
	return s.h.Editor(tok)
}

// NewWindow creates a native window for the platform the program runs
// on and starts its event loop. The loop calls h.Created once the
// window exists. NewWindow returns after the window is created, or
// with the platform error if it could not be.
func NewWindow(h Handler, options ...Option) error {
	return newOSWindow(newWindow(h), options)
}

func newWindow(h Handler) *Window {
	w := &Window{
		h:   h,
		log: slog.Default(),
	}
	w.seat = input.NewSeat(handlerSource{h}, w.log)
	w.seat.SetComposeTable(composeTable(w.log))
	return w
}

// AddTextField registers a new text field and returns its token.
func (w *Window) AddTextField() ime.FieldToken {
	return w.seat.AddField()
}

// RemoveTextField unregisters tok. Removing the focused field drops
// focus; operations against a removed token do nothing.
func (w *Window) RemoveTextField(tok ime.FieldToken) {
	w.seat.RemoveField(tok)
}

// SetFocusedTextField directs keys and input method text to tok. The
// zero token clears field focus. The move is folded in after the
// current callback returns.
func (w *Window) SetFocusedTextField(tok ime.FieldToken) {
	w.seat.RequestFocus(tok)
}

// UpdateTextField reports a change to tok that did not come from the
// window's own editing, so a connected input method can resync. It is
// fire and forget; events for unfocused fields are dropped.
func (w *Window) UpdateTextField(tok ime.FieldToken, ev ime.FieldEvent) {
	w.seat.NotifyUpdated(tok, ev)
}

// Invalidate requests a Paint callback on the next turn of the event
// loop.
func (w *Window) Invalidate() {
	w.d.Invalidate()
}

// ScheduleFrame requests a Paint callback at or after t. Requests
// coalesce: only the earliest pending time survives.
func (w *Window) ScheduleFrame(t time.Time) {
	if !w.frameAt.IsZero() && !t.Before(w.frameAt) {
		return
	}
	w.frameAt = t
	w.updateDeadline()
}

// SetTimer schedules a Timer callback at or after t and returns its
// token.
func (w *Window) SetTimer(t time.Time) TimerToken {
	w.lastTimer++
	tok := w.lastTimer
	w.timers = append(w.timers, windowTimer{tok: tok, at: t})
	w.updateDeadline()
	return tok
}

// CancelTimer cancels a pending timer. Cancelling an elapsed or
// already cancelled timer does nothing.
func (w *Window) CancelTimer(tok TimerToken) {
	for i, t := range w.timers {
		if t.tok == tok {
			w.timers = append(w.timers[:i], w.timers[i+1:]...)
			w.updateDeadline()
			return
		}
	}
}

// Configure changes the window configuration.
func (w *Window) Configure(options ...Option) {
	w.d.Configure(options)
}

// Run schedules f on the window's event loop goroutine. It may be
// called from any goroutine and is how goroutines other than the loop
// reach the window. Functions run after Destroyed are dropped.
func (w *Window) Run(f func()) {
	w.d.Run(f)
}

// Close requests window teardown. The handler's Destroyed method is
// called once the native window is gone.
func (w *Window) Close() {
	w.d.Close()
}

// updateDeadline pushes the earliest pending frame or timer deadline
// to the driver.
func (w *Window) updateDeadline() {
	next := w.frameAt
	for _, t := range w.timers {
		if next.IsZero() || t.at.Before(next) {
			next = t.at
		}
	}
	w.d.SetDeadline(next)
}

// dispatch runs one callback and then folds in the field and focus
// changes it requested.
func (w *Window) dispatch(f func()) {
	if w.dead {
		return
	}
	f()
	w.seat.Reconcile()
}

// created is called by the driver once the native window exists.
func (w *Window) created(d driver) {
	w.d = d
	w.watchComposeFile()
	w.dispatch(func() {
		w.h.Created(w)
	})
}

// resized reports the window geometry. Duplicate reports are dropped.
func (w *Window) resized(size image.Point, m unit.Metric) {
	if size == w.size && m == w.metric {
		return
	}
	w.size = size
	w.metric = m
	w.dispatch(func() {
		w.h.Resized(size, m)
	})
}

// draw delivers a paint callback.
func (w *Window) draw() {
	w.dispatch(func() {
		w.h.Paint()
	})
}

// focus reports keyboard focus. A loss releases the composition in
// progress before the handler learns about it; a gain re-enables the
// input method after the handler had its say.
func (w *Window) focus(focus bool) {
	if focus == w.focused {
		return
	}
	w.focused = focus
	w.dispatch(func() {
		if !focus {
			w.seat.SetFocus(false)
		}
		w.h.FocusChanged(focus)
		if focus {
			w.seat.SetFocus(true)
		}
	})
}

// keyEvent routes one resolved key event. Presses go to the handler
// first and feed the focused field when unconsumed; releases go to
// the input method transport first and to the handler when it lets
// them through.
func (w *Window) keyEvent(e key.Event) {
	if w.seat.Composing() {
		e.IsComposing = true
	}
	w.dispatch(func() {
		if e.State == key.Press {
			if !w.h.KeyDown(e) {
				w.seat.Key(e)
			}
			return
		}
		if !w.seat.Key(e) {
			w.h.KeyUp(e)
		}
	})
}

// pointerEvent delivers a pointer event.
func (w *Window) pointerEvent(e pointer.Event) {
	w.dispatch(func() {
		w.h.Pointer(e)
	})
}

// imeBatch applies one batch of edits from the platform input method.
func (w *Window) imeBatch(b input.Batch) {
	w.dispatch(func() {
		w.seat.ImeDone(b)
	})
}

// runFunc runs a function scheduled with Run.
func (w *Window) runFunc(f func()) {
	w.dispatch(f)
}

// tick fires elapsed timers and then a due frame request. Drivers
// call it when the deadline passes.
func (w *Window) tick(now time.Time) {
	for {
		due := -1
		for i, t := range w.timers {
			if t.at.After(now) {
				continue
			}
			if due == -1 || t.at.Before(w.timers[due].at) {
				due = i
			}
		}
		if due == -1 {
			break
		}
		tok := w.timers[due].tok
		w.timers = append(w.timers[:due], w.timers[due+1:]...)
		w.dispatch(func() {
			w.h.Timer(tok)
		})
	}
	if !w.frameAt.IsZero() && !w.frameAt.After(now) {
		w.frameAt = time.Time{}
		w.draw()
	}
	if !w.dead {
		w.updateDeadline()
	}
}

// destroyed is the final callback; the driver is gone afterwards.
func (w *Window) destroyed() {
	if w.dead {
		return
	}
	w.dead = true
	if w.composeWatch != nil {
		w.composeWatch.Close()
		w.composeWatch = nil
	}
	w.h.Destroyed()
}
