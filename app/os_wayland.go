// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package app

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	text_input "github.com/rajveermalviya/go-wayland/wayland/unstable/text-input-v3"
	"golang.org/x/sys/unix"

	"oriel.dev/f32"
	"oriel.dev/internal/keymap"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
)

// waylandWindow drives one xdg-shell toplevel. The loop goroutine
// owns all fields; protocol handlers run on the pump goroutine and
// post closures to the loop. Until the loop starts, during initial
// roundtrips, posted closures run inline on the creating goroutine.
type waylandWindow struct {
	w *Window

	display    *client.Display
	registry   *client.Registry
	compositor *client.Compositor
	wmBase     *xdg_shell.WmBase
	seat       *client.Seat
	keyboard   *client.Keyboard
	pointer    *client.Pointer
	surface    *client.Surface
	xdgSurface *xdg_shell.Surface
	topLevel   *xdg_shell.Toplevel
	tiManager  *text_input.TextInputManager
	ti         *textInputConn

	resolver key.Resolver
	repeat   repeatState
	metric   unit.Metric
	cfg      Config

	loopc chan func()
	quit  chan struct{}
	queue funcQueue
	timer *time.Timer

	running     bool
	invalid     bool
	dead        bool
	buttons     pointer.Buttons
	lastPointer f32.Point
	pendingSize image.Point
}

func newWaylandWindow(w *Window, options []Option) error {
	display, err := client.Connect("")
	if err != nil {
		return fmt.Errorf("app: wayland: %w", err)
	}
	wl := &waylandWindow{
		w:        w,
		display:  display,
		resolver: keymap.US(),
		metric:   unit.Metric{PxPerDp: 1, PxPerSp: 1},
		loopc:    make(chan func()),
		quit:     make(chan struct{}),
		queue:    newFuncQueue(),
	}
	if err := wl.init(options); err != nil {
		display.Destroy()
		display.Context().Close()
		return fmt.Errorf("app: wayland: %w", err)
	}
	wl.running = true
	go wl.pump()
	go wl.loop()
	return nil
}

func (wl *waylandWindow) init(options []Option) error {
	wl.cfg.Size = image.Pt(800, 600)
	wl.cfg.apply(wl.metric, options)

	registry, err := wl.display.GetRegistry()
	if err != nil {
		return err
	}
	wl.registry = registry
	registry.SetGlobalHandler(wl.global)
	if err := wl.roundTrip(); err != nil {
		return err
	}
	// A second roundtrip delivers the seat capabilities.
	if err := wl.roundTrip(); err != nil {
		return err
	}
	if wl.compositor == nil || wl.wmBase == nil {
		return errors.New("missing compositor or xdg_wm_base global")
	}

	surface, err := wl.compositor.CreateSurface()
	if err != nil {
		return err
	}
	wl.surface = surface
	xdgSurface, err := wl.wmBase.GetXdgSurface(surface)
	if err != nil {
		return err
	}
	wl.xdgSurface = xdgSurface
	xdgSurface.SetConfigureHandler(wl.surfaceConfigure)
	topLevel, err := xdgSurface.GetToplevel()
	if err != nil {
		return err
	}
	wl.topLevel = topLevel
	topLevel.SetConfigureHandler(wl.topLevelConfigure)
	topLevel.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		wl.post(func() { wl.Close() })
	})
	wl.applyConfig(wl.cfg)

	if wl.tiManager != nil && wl.seat != nil {
		ti, err := wl.tiManager.GetTextInput(wl.seat)
		if err != nil {
			wl.w.log.Debug("app: wayland: text input", "err", err)
		} else {
			wl.ti = newTextInputConn(wl, ti)
			wl.w.seat.SetConn(wl.ti)
		}
	}

	return surface.Commit()
}

// global records the wire objects we care about. After initialization
// dynamic globals are ignored.
func (wl *waylandWindow) global(e client.RegistryGlobalEvent) {
	if wl.running {
		return
	}
	switch e.Interface {
	case "wl_compositor":
		compositor := client.NewCompositor(wl.display.Context())
		if err := wl.registry.Bind(e.Name, e.Interface, e.Version, compositor); err == nil {
			wl.compositor = compositor
		}
	case "xdg_wm_base":
		wmBase := xdg_shell.NewWmBase(wl.display.Context())
		if err := wl.registry.Bind(e.Name, e.Interface, e.Version, wmBase); err == nil {
			wl.wmBase = wmBase
			wmBase.SetPingHandler(func(p xdg_shell.WmBasePingEvent) {
				wl.wmBase.Pong(p.Serial)
			})
		}
	case "wl_seat":
		seat := client.NewSeat(wl.display.Context())
		if err := wl.registry.Bind(e.Name, e.Interface, e.Version, seat); err == nil {
			wl.seat = seat
			seat.SetCapabilitiesHandler(wl.seatCapabilities)
		}
	case "zwp_text_input_manager_v3":
		manager := text_input.NewTextInputManager(wl.display.Context())
		if err := wl.registry.Bind(e.Name, e.Interface, e.Version, manager); err == nil {
			wl.tiManager = manager
		}
	}
}

func (wl *waylandWindow) seatCapabilities(e client.SeatCapabilitiesEvent) {
	if e.Capabilities&uint32(client.SeatCapabilityKeyboard) != 0 && wl.keyboard == nil {
		keyboard, err := wl.seat.GetKeyboard()
		if err == nil {
			wl.keyboard = keyboard
			keyboard.SetKeymapHandler(wl.keymapChanged)
			keyboard.SetEnterHandler(wl.keyboardEnter)
			keyboard.SetLeaveHandler(wl.keyboardLeave)
			keyboard.SetKeyHandler(wl.keyboardKey)
			keyboard.SetModifiersHandler(wl.keyboardModifiers)
			keyboard.SetRepeatInfoHandler(wl.keyboardRepeatInfo)
		}
	}
	if e.Capabilities&uint32(client.SeatCapabilityPointer) != 0 && wl.pointer == nil {
		p, err := wl.seat.GetPointer()
		if err == nil {
			wl.pointer = p
			p.SetEnterHandler(wl.pointerEnter)
			p.SetLeaveHandler(wl.pointerLeave)
			p.SetMotionHandler(wl.pointerMotion)
			p.SetButtonHandler(wl.pointerButton)
			p.SetAxisHandler(wl.pointerAxis)
		}
	}
}

// roundTrip dispatches until the server has processed everything sent
// so far. Only used during initialization, before the pump owns
// dispatching.
func (wl *waylandWindow) roundTrip() error {
	callback, err := wl.display.Sync()
	if err != nil {
		return err
	}
	defer callback.Destroy()
	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := wl.display.Context().Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

// post hands f to the loop goroutine. Before the loop starts f runs
// inline; after teardown it is dropped.
func (wl *waylandWindow) post(f func()) {
	if !wl.running {
		f()
		return
	}
	select {
	case wl.loopc <- f:
	case <-wl.quit:
	}
}

// pump dispatches protocol events until the connection closes.
func (wl *waylandWindow) pump() {
	for {
		select {
		case <-wl.quit:
			return
		default:
		}
		if err := wl.display.Context().Dispatch(); err != nil {
			select {
			case <-wl.quit:
			default:
				wl.w.log.Debug("app: wayland: dispatch", "err", err)
				wl.post(func() { wl.dead = true })
			}
			return
		}
	}
}

func (wl *waylandWindow) loop() {
	wl.w.created(wl)
	wl.w.resized(wl.cfg.Size, wl.metric)
	for !wl.dead {
		select {
		case f := <-wl.loopc:
			f()
		case <-wl.queue.wake:
			for _, f := range wl.queue.drain() {
				wl.w.runFunc(f)
			}
		case <-wl.timerC():
			wl.timer = nil
			wl.w.tick(time.Now())
		}
		if wl.invalid {
			wl.invalid = false
			wl.w.draw()
		}
	}
	close(wl.quit)
	wl.repeat.Stop()
	if wl.ti != nil {
		wl.ti.destroy()
	}
	if wl.topLevel != nil {
		wl.topLevel.Destroy()
	}
	if wl.xdgSurface != nil {
		wl.xdgSurface.Destroy()
	}
	if wl.surface != nil {
		wl.surface.Destroy()
	}
	wl.display.Destroy()
	wl.display.Context().Close()
	wl.w.destroyed()
}

func (wl *waylandWindow) timerC() <-chan time.Time {
	if wl.timer == nil {
		return nil
	}
	return wl.timer.C
}

func (wl *waylandWindow) surfaceConfigure(e xdg_shell.SurfaceConfigureEvent) {
	wl.post(func() {
		wl.xdgSurface.AckConfigure(e.Serial)
		wl.surface.Commit()
		if wl.pendingSize != (image.Point{}) {
			size := wl.pendingSize
			wl.pendingSize = image.Point{}
			wl.w.resized(size, wl.metric)
		}
	})
}

func (wl *waylandWindow) topLevelConfigure(e xdg_shell.ToplevelConfigureEvent) {
	w, h := int(e.Width), int(e.Height)
	wl.post(func() {
		if w > 0 && h > 0 {
			wl.pendingSize = image.Pt(w, h)
		}
	})
}

func (wl *waylandWindow) keymapChanged(e client.KeyboardKeymapEvent) {
	// The builtin US layout serves until a keymap compiler exists;
	// the map itself is not read, but its fd must not leak.
	unix.Close(int(e.Fd))
}

func (wl *waylandWindow) keyboardEnter(e client.KeyboardEnterEvent) {
	wl.post(func() {
		wl.repeat.Stop()
		wl.w.focus(true)
	})
}

func (wl *waylandWindow) keyboardLeave(e client.KeyboardLeaveEvent) {
	wl.post(func() {
		wl.repeat.Stop()
		wl.w.focus(false)
	})
}

func (wl *waylandWindow) keyboardKey(e client.KeyboardKeyEvent) {
	wl.post(func() {
		wl.repeat.Stop()
		code := key.Code(e.Key)
		state := key.Release
		if e.State == 1 { // WL_KEYBOARD_KEY_STATE_PRESSED
			state = key.Press
		}
		ev := resolveKey(wl.resolver, code, state)
		wl.w.keyEvent(ev)
		if state == key.Press && wl.resolver.Repeats(code) {
			wl.repeat.Start(wl, code)
		}
	})
}

func (wl *waylandWindow) keyboardModifiers(e client.KeyboardModifiersEvent) {
	wl.post(func() {
		wl.resolver.UpdateModifiers(key.ModifierState{
			Depressed: e.ModsDepressed,
			Latched:   e.ModsLatched,
			Locked:    e.ModsLocked,
			Group:     e.Group,
		})
	})
}

func (wl *waylandWindow) keyboardRepeatInfo(e client.KeyboardRepeatInfoEvent) {
	rate, delay := int(e.Rate), int(e.Delay)
	wl.post(func() {
		wl.repeat.Stop()
		wl.repeat.rate = rate
		wl.repeat.delay = time.Duration(delay) * time.Millisecond
	})
}

// repeatKey re-injects a held key. Called from the loop.
func (wl *waylandWindow) repeatKey(code key.Code) {
	e := resolveKey(wl.resolver, code, key.Press)
	e.Repeat = true
	wl.w.keyEvent(e)
}

func (wl *waylandWindow) pointerEnter(e client.PointerEnterEvent) {
	x, y := float32(e.SurfaceX), float32(e.SurfaceY)
	wl.post(func() {
		wl.w.pointerEvent(wl.pointerAt(pointer.Enter, x, y, 0))
	})
}

func (wl *waylandWindow) pointerLeave(e client.PointerLeaveEvent) {
	wl.post(func() {
		wl.w.pointerEvent(wl.pointerAt(pointer.Leave, wl.lastPointer.X, wl.lastPointer.Y, 0))
	})
}

func (wl *waylandWindow) pointerMotion(e client.PointerMotionEvent) {
	x, y := float32(e.SurfaceX), float32(e.SurfaceY)
	t := e.Time
	wl.post(func() {
		wl.w.pointerEvent(wl.pointerAt(pointer.Move, x, y, t))
	})
}

func (wl *waylandWindow) pointerButton(e client.PointerButtonEvent) {
	button := e.Button
	pressed := e.State == 1 // WL_POINTER_BUTTON_STATE_PRESSED
	t := e.Time
	wl.post(func() {
		var b pointer.Buttons
		switch button {
		case 0x110: // BTN_LEFT
			b = pointer.ButtonPrimary
		case 0x111: // BTN_RIGHT
			b = pointer.ButtonSecondary
		case 0x112: // BTN_MIDDLE
			b = pointer.ButtonTertiary
		default:
			return
		}
		kind := pointer.Release
		if pressed {
			kind = pointer.Press
			wl.buttons |= b
		} else {
			wl.buttons &^= b
		}
		ev := wl.pointerAt(kind, wl.lastPointer.X, wl.lastPointer.Y, t)
		wl.w.pointerEvent(ev)
	})
}

func (wl *waylandWindow) pointerAxis(e client.PointerAxisEvent) {
	axis := e.Axis
	value := float32(e.Value)
	t := e.Time
	wl.post(func() {
		ev := wl.pointerAt(pointer.Scroll, wl.lastPointer.X, wl.lastPointer.Y, t)
		if axis == 0 { // WL_POINTER_AXIS_VERTICAL_SCROLL
			ev.Scroll.Y = value
		} else {
			ev.Scroll.X = value
		}
		wl.w.pointerEvent(ev)
	})
}

func (wl *waylandWindow) pointerAt(kind pointer.Kind, x, y float32, t uint32) pointer.Event {
	if kind == pointer.Move || kind == pointer.Enter {
		wl.lastPointer = f32.Pt(x, y)
	}
	return pointer.Event{
		Kind:      kind,
		Source:    pointer.Mouse,
		Buttons:   wl.buttons,
		Position:  f32.Pt(x, y),
		Time:      time.Duration(t) * time.Millisecond,
		Modifiers: wl.resolver.Modifiers(),
	}
}

func (wl *waylandWindow) applyConfig(cfg Config) {
	wl.topLevel.SetTitle(cfg.Title)
	wl.topLevel.SetMinSize(int32(cfg.MinSize.X), int32(cfg.MinSize.Y))
	wl.topLevel.SetMaxSize(int32(cfg.MaxSize.X), int32(cfg.MaxSize.Y))
}

func (wl *waylandWindow) Invalidate() {
	wl.invalid = true
}

func (wl *waylandWindow) SetDeadline(t time.Time) {
	if wl.timer != nil {
		wl.timer.Stop()
		wl.timer = nil
	}
	if t.IsZero() {
		return
	}
	d := time.Until(t)
	if d < 0 {
		d = 0
	}
	wl.timer = time.NewTimer(d)
}

func (wl *waylandWindow) Configure(options []Option) {
	wl.cfg.apply(wl.metric, options)
	wl.applyConfig(wl.cfg)
}

func (wl *waylandWindow) Run(f func()) {
	wl.queue.push(f)
}

func (wl *waylandWindow) Close() {
	wl.dead = true
}

// repeatState synthesizes repeated presses while a key is held. The
// timing goroutine never touches window state; it posts the repeats
// to the loop.
type repeatState struct {
	rate  int
	delay time.Duration

	stopC chan struct{}
}

// interval is the gap between synthesized presses once the initial
// delay has elapsed, or 0 when the compositor disabled repeat.
func (r *repeatState) interval() time.Duration {
	if r.rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(r.rate)
}

func (r *repeatState) Start(wl *waylandWindow, code key.Code) {
	period := r.interval()
	if period == 0 {
		return
	}
	stopC := make(chan struct{})
	r.stopC = stopC
	delay := r.delay
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
			case <-stopC:
				close(stopC)
				return
			}
			wl.post(func() { wl.repeatKey(code) })
			timer.Reset(period)
		}
	}()
}

func (r *repeatState) Stop() {
	if r.stopC == nil {
		return
	}
	r.stopC <- struct{}{}
	<-r.stopC
	r.stopC = nil
}

// textInputConn adapts the text-input protocol to the seat transport.
// State requests accumulate on the server and apply on Commit,
// matching the transport's double buffered contract. Events gather in
// pending and land as one batch on done.
type textInputConn struct {
	wl *waylandWindow
	ti *text_input.TextInput

	pending input.Batch
}

func newTextInputConn(wl *waylandWindow, ti *text_input.TextInput) *textInputConn {
	c := &textInputConn{wl: wl, ti: ti}
	ti.SetEnterHandler(c.enter)
	ti.SetLeaveHandler(c.leave)
	ti.SetPreeditStringHandler(c.preeditString)
	ti.SetCommitStringHandler(c.commitString)
	ti.SetDeleteSurroundingTextHandler(c.deleteSurrounding)
	ti.SetDoneHandler(c.done)
	return c
}

func (c *textInputConn) destroy() {
	c.ti.Destroy()
}

func (c *textInputConn) enter(e text_input.TextInputEnterEvent) {
	// Requests sent before the enter event are ignored by the
	// compositor. Push the full state again now that they count.
	c.wl.post(func() {
		c.wl.w.runFunc(func() {
			c.wl.w.seat.Refresh()
		})
	})
}

func (c *textInputConn) leave(e text_input.TextInputLeaveEvent) {
	c.wl.post(func() {
		c.pending = input.Batch{}
	})
}

func (c *textInputConn) preeditString(e text_input.TextInputPreeditStringEvent) {
	text, begin, end := e.Text, int(e.CursorBegin), int(e.CursorEnd)
	c.wl.post(func() {
		c.pending.Preedit.Set = true
		c.pending.Preedit.Text = text
		c.pending.Preedit.CursorBegin = begin
		c.pending.Preedit.CursorEnd = end
	})
}

func (c *textInputConn) commitString(e text_input.TextInputCommitStringEvent) {
	text := e.Text
	c.wl.post(func() {
		c.pending.Commit.Set = true
		c.pending.Commit.Text = text
	})
}

func (c *textInputConn) deleteSurrounding(e text_input.TextInputDeleteSurroundingTextEvent) {
	before, after := int(e.BeforeLength), int(e.AfterLength)
	c.wl.post(func() {
		c.pending.DeleteBefore = before
		c.pending.DeleteAfter = after
	})
}

func (c *textInputConn) done(e text_input.TextInputDoneEvent) {
	c.wl.post(func() {
		b := c.pending
		c.pending = input.Batch{}
		if !b.Empty() {
			c.wl.w.imeBatch(b)
		}
	})
}

func (c *textInputConn) Enable() {
	c.ti.Enable()
}

func (c *textInputConn) Disable() {
	c.ti.Disable()
}

func (c *textInputConn) SetSurroundingText(text string, cursor, anchor int) {
	c.ti.SetSurroundingText(text, int32(cursor), int32(anchor))
}

func (c *textInputConn) ClearSurroundingText() {
	// Not sending surrounding text is the protocol's way of saying
	// there is none.
}

func (c *textInputConn) SetTextChangeCause(cause input.Cause) {
	v := uint32(1) // other
	if cause == input.CauseIme {
		v = 0 // input_method
	}
	c.ti.SetTextChangeCause(v)
}

func (c *textInputConn) SetCursorRectangle(r f32.Rectangle) {
	ir := r.Round()
	c.ti.SetCursorRectangle(int32(ir.Min.X), int32(ir.Min.Y), int32(ir.Dx()), int32(ir.Dy()))
}

func (c *textInputConn) Commit() {
	c.ti.Commit()
}
