// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"image"
	"time"

	"oriel.dev/internal/keymap"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
)

// Headless drives a window without a display server. The injecting
// goroutine stands in for the event loop: every Inject method runs
// the resulting handler callbacks before it returns. Time does not
// pass on its own; use Advance.
//
// Keys resolve through the builtin US layout and key codes are evdev
// codes.
type Headless struct {
	w        *Window
	resolver key.Resolver
	cfg      Config
	metric   unit.Metric

	now      time.Time
	deadline time.Time
	invalid  bool
	pressed  map[key.Code]bool

	queue funcQueue
}

// NewHeadless creates a window without a native backing. Created,
// the initial Resized and a focus gain are delivered before
// NewHeadless returns.
func NewHeadless(h Handler, options ...Option) *Headless {
	hl := &Headless{
		w:        newWindow(h),
		resolver: keymap.US(),
		metric:   unit.Metric{PxPerDp: 1, PxPerSp: 1},
		now:      time.Now(),
		pressed:  make(map[key.Code]bool),
		queue:    newFuncQueue(),
	}
	hl.cfg.Size = image.Pt(800, 600)
	hl.cfg.apply(hl.metric, options)
	hl.w.created(hl)
	hl.w.resized(hl.cfg.Size, hl.metric)
	hl.Focus(true)
	return hl
}

// Window returns the window driven by h.
func (h *Headless) Window() *Window {
	return h.w
}

// Now returns the driver's clock.
func (h *Headless) Now() time.Time {
	return h.now
}

// Advance moves the clock forward, firing timers and frame requests
// that come due.
func (h *Headless) Advance(d time.Duration) {
	h.now = h.now.Add(d)
	h.flush()
}

// Flush runs functions scheduled with Run and delivers a pending
// redraw. The other injection methods flush on their own.
func (h *Headless) Flush() {
	h.flush()
}

// Focus injects a keyboard focus change.
func (h *Headless) Focus(focus bool) {
	h.w.focus(focus)
	h.flush()
}

// Resize injects a new window size.
func (h *Headless) Resize(size image.Point) {
	h.cfg.Size = size
	h.w.resized(size, h.metric)
	h.flush()
}

// KeyPress injects a key press. A press for a key already down is
// marked as a repeat.
func (h *Headless) KeyPress(code key.Code) {
	h.injectKey(code, key.Press)
}

// KeyRelease injects a key release.
func (h *Headless) KeyRelease(code key.Code) {
	h.injectKey(code, key.Release)
}

// SetModifiers injects a modifier state change in the X11 mask
// encoding used by the builtin layout.
func (h *Headless) SetModifiers(depressed, locked uint32) {
	h.resolver.UpdateModifiers(key.ModifierState{Depressed: depressed, Locked: locked})
}

// Pointer injects a pointer event.
func (h *Headless) Pointer(e pointer.Event) {
	h.w.pointerEvent(e)
	h.flush()
}

// Ime injects a batch of input method edits, as a platform text input
// protocol would deliver them.
func (h *Headless) Ime(b input.Batch) {
	h.w.imeBatch(b)
	h.flush()
}

func (h *Headless) injectKey(code key.Code, state key.State) {
	e := resolveKey(h.resolver, code, state)
	if state == key.Press {
		e.Repeat = h.pressed[code]
		h.pressed[code] = true
	} else {
		delete(h.pressed, code)
	}
	h.w.keyEvent(e)
	h.flush()
}

// flush runs scheduled functions, elapsed deadlines and a pending
// redraw, in that order, until all three are idle.
func (h *Headless) flush() {
	for {
		funcs := h.queue.drain()
		for _, f := range funcs {
			h.w.runFunc(f)
		}
		if !h.deadline.IsZero() && !h.deadline.After(h.now) {
			h.deadline = time.Time{}
			h.w.tick(h.now)
			continue
		}
		if len(funcs) == 0 {
			break
		}
	}
	if h.invalid {
		h.invalid = false
		h.w.draw()
	}
}

func (h *Headless) Invalidate() {
	h.invalid = true
}

func (h *Headless) SetDeadline(t time.Time) {
	h.deadline = t
}

func (h *Headless) Configure(options []Option) {
	old := h.cfg.Size
	h.cfg.apply(h.metric, options)
	if h.cfg.Size != old {
		h.w.resized(h.cfg.Size, h.metric)
	}
}

func (h *Headless) Run(f func()) {
	h.queue.push(f)
}

func (h *Headless) Close() {
	h.w.destroyed()
}
