// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package app

import (
	"image"
	"time"
	"unicode"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xkb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/godbus/dbus/v5"

	"oriel.dev/f32"
	"oriel.dev/internal/keymap"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
)

const x11ScrollScale = 10

// x11Window drives one X11 window. The loop goroutine owns every
// field; the pump goroutine only writes to events.
type x11Window struct {
	w   *Window
	xu  *xgbutil.XUtil
	win *xwindow.Window
	ime *ibusConn

	resolver *x11Resolver
	metric   unit.Metric
	cfg      Config

	events chan xgb.Event
	queue  funcQueue
	timer  *time.Timer

	invalid bool
	buttons pointer.Buttons
	pressed map[key.Code]bool
	dead    bool

	wmProtocols xproto.Atom
	wmDelete    xproto.Atom
}

func newX11Window(w *Window, options []Option) error {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return err
	}
	errc := make(chan error)
	go func() {
		x, err := createX11Window(w, xu, options)
		if err != nil {
			xu.Conn().Close()
			errc <- err
			return
		}
		errc <- nil
		go x.pump()
		x.loop()
	}()
	return <-errc
}

func createX11Window(w *Window, xu *xgbutil.XUtil, options []Option) (*x11Window, error) {
	keybind.Initialize(xu)
	detectAutoRepeat(xu.Conn(), w)

	metric := x11Metric(xu)
	cfg := Config{Size: image.Pt(800, 600)}
	cfg.apply(metric, options)

	win, err := xwindow.Generate(xu)
	if err != nil {
		return nil, err
	}
	err = win.CreateChecked(xu.RootWin(), 0, 0, cfg.Size.X, cfg.Size.Y,
		xproto.CwBackPixel|xproto.CwEventMask,
		xu.Screen().WhitePixel,
		xproto.EventMaskKeyPress|xproto.EventMaskKeyRelease|
			xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|
			xproto.EventMaskPointerMotion|
			xproto.EventMaskEnterWindow|xproto.EventMaskLeaveWindow|
			xproto.EventMaskExposure|xproto.EventMaskStructureNotify|
			xproto.EventMaskFocusChange)
	if err != nil {
		return nil, err
	}

	wmProtocols, err := xprop.Atm(xu, "WM_PROTOCOLS")
	if err != nil {
		return nil, err
	}
	wmDelete, err := xprop.Atm(xu, "WM_DELETE_WINDOW")
	if err != nil {
		return nil, err
	}
	if err := icccm.WmProtocolsSet(xu, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		w.log.Debug("app: x11: set WM_PROTOCOLS", "err", err)
	}

	x := &x11Window{
		w:           w,
		xu:          xu,
		win:         win,
		resolver:    &x11Resolver{xu: xu},
		metric:      metric,
		cfg:         cfg,
		events:      make(chan xgb.Event, 16),
		queue:       newFuncQueue(),
		pressed:     make(map[key.Code]bool),
		wmProtocols: wmProtocols,
		wmDelete:    wmDelete,
	}
	x.applyConfig(cfg)

	if ime, err := newIBusConn(w.log, x.batchFromIme, x.keyFromIme, x.screenRect); err != nil {
		w.log.Debug("app: x11: no input method", "err", err)
	} else {
		x.ime = ime
		w.seat.SetConn(ime)
	}

	win.Map()
	return x, nil
}

// detectAutoRepeat asks the server to deliver key repeats as repeated
// presses instead of release and press pairs. Without the XKB
// extension repeats simply lose their Repeat mark.
func detectAutoRepeat(conn *xgb.Conn, w *Window) {
	const detectableAutoRepeat = 1
	if err := xkb.Init(conn); err != nil {
		w.log.Debug("app: x11: no XKB extension", "err", err)
		return
	}
	if _, err := xkb.UseExtension(conn, 1, 0).Reply(); err != nil {
		w.log.Debug("app: x11: XKB unavailable", "err", err)
		return
	}
	_, err := xkb.PerClientFlags(conn, xkb.IdUseCoreKbd,
		detectableAutoRepeat, detectableAutoRepeat, 0, 0, 0).Reply()
	if err != nil {
		w.log.Debug("app: x11: detectable auto-repeat", "err", err)
	}
}

// pump forwards X events to the loop goroutine. WaitForEvent blocks,
// so it needs its own goroutine.
func (x *x11Window) pump() {
	for {
		ev, err := x.xu.Conn().WaitForEvent()
		if ev == nil && err == nil {
			close(x.events)
			return
		}
		if err != nil {
			x.w.log.Debug("app: x11: event error", "err", err)
			continue
		}
		x.events <- ev
	}
}

func (x *x11Window) loop() {
	x.w.created(x)
	x.w.resized(x.cfg.Size, x.metric)
	for !x.dead {
		select {
		case ev, ok := <-x.events:
			if !ok {
				x.dead = true
			} else {
				x.event(ev)
			}
		case <-x.queue.wake:
			for _, f := range x.queue.drain() {
				x.w.runFunc(f)
			}
		case <-x.timerC():
			x.timer = nil
			x.w.tick(time.Now())
		case sig, ok := <-x.imeSignals():
			if !ok {
				// The daemon went away; fall back to compose only.
				x.ime = nil
				x.w.seat.SetConn(nil)
			} else {
				x.ime.signal(sig)
			}
		}
		if x.invalid {
			x.invalid = false
			x.w.draw()
		}
	}
	if x.ime != nil {
		x.ime.close()
	}
	x.win.Destroy()
	x.xu.Conn().Close()
	for range x.events {
	}
	x.w.destroyed()
}

func (x *x11Window) timerC() <-chan time.Time {
	if x.timer == nil {
		return nil
	}
	return x.timer.C
}

func (x *x11Window) imeSignals() <-chan *dbus.Signal {
	if x.ime == nil {
		return nil
	}
	return x.ime.signals
}

func (x *x11Window) event(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		x.keyChange(e.Detail, e.State, key.Press)
	case xproto.KeyReleaseEvent:
		x.keyChange(e.Detail, e.State, key.Release)
	case xproto.ButtonPressEvent:
		x.buttonChange(e.Detail, e.State, e.EventX, e.EventY, e.Time, key.Press)
	case xproto.ButtonReleaseEvent:
		x.buttonChange(e.Detail, e.State, e.EventX, e.EventY, e.Time, key.Release)
	case xproto.MotionNotifyEvent:
		x.w.pointerEvent(x.pointerAt(pointer.Move, e.EventX, e.EventY, e.State, e.Time))
	case xproto.EnterNotifyEvent:
		x.w.pointerEvent(x.pointerAt(pointer.Enter, e.EventX, e.EventY, e.State, e.Time))
	case xproto.LeaveNotifyEvent:
		x.w.pointerEvent(x.pointerAt(pointer.Leave, e.EventX, e.EventY, e.State, e.Time))
	case xproto.ExposeEvent:
		if e.Count == 0 {
			x.w.draw()
		}
	case xproto.ConfigureNotifyEvent:
		x.w.resized(image.Pt(int(e.Width), int(e.Height)), x.metric)
	case xproto.FocusInEvent:
		if e.Mode == xproto.NotifyModeNormal {
			x.w.focus(true)
		}
	case xproto.FocusOutEvent:
		if e.Mode == xproto.NotifyModeNormal {
			x.w.focus(false)
		}
	case xproto.ClientMessageEvent:
		if e.Type == x.wmProtocols && len(e.Data.Data32) > 0 &&
			xproto.Atom(e.Data.Data32[0]) == x.wmDelete {
			x.Close()
		}
	case xproto.DestroyNotifyEvent:
		x.dead = true
	}
}

func (x *x11Window) keyChange(detail xproto.Keycode, state uint16, st key.State) {
	x.resolver.UpdateModifiers(key.ModifierState{Depressed: uint32(state)})
	code := key.Code(detail)
	e := resolveKey(x.resolver, code, st)
	if st == key.Press {
		e.Repeat = x.pressed[code]
		x.pressed[code] = true
	} else {
		delete(x.pressed, code)
	}
	x.w.keyEvent(e)
}

func (x *x11Window) buttonChange(btn xproto.Button, state uint16, ex, ey int16, t xproto.Timestamp, st key.State) {
	if btn >= 4 && btn <= 7 {
		if st != key.Press {
			return
		}
		e := x.pointerAt(pointer.Scroll, ex, ey, state, t)
		switch btn {
		case 4:
			e.Scroll.Y = -x11ScrollScale
		case 5:
			e.Scroll.Y = x11ScrollScale
		case 6:
			e.Scroll.X = -x11ScrollScale
		case 7:
			e.Scroll.X = x11ScrollScale
		}
		x.w.pointerEvent(e)
		return
	}
	var button pointer.Buttons
	switch btn {
	case 1:
		button = pointer.ButtonPrimary
	case 2:
		button = pointer.ButtonTertiary
	case 3:
		button = pointer.ButtonSecondary
	default:
		return
	}
	kind := pointer.Press
	if st == key.Press {
		x.buttons |= button
	} else {
		x.buttons &^= button
		kind = pointer.Release
	}
	x.w.pointerEvent(x.pointerAt(kind, ex, ey, state, t))
}

func (x *x11Window) pointerAt(kind pointer.Kind, ex, ey int16, state uint16, t xproto.Timestamp) pointer.Event {
	x.resolver.UpdateModifiers(key.ModifierState{Depressed: uint32(state)})
	return pointer.Event{
		Kind:      kind,
		Source:    pointer.Mouse,
		Buttons:   x.buttons,
		Position:  f32.Pt(float32(ex), float32(ey)),
		Time:      time.Duration(t) * time.Millisecond,
		Modifiers: x.resolver.Modifiers(),
	}
}

// batchFromIme and keyFromIme are called from the loop's signal case.
func (x *x11Window) batchFromIme(b input.Batch) {
	x.w.imeBatch(b)
}

func (x *x11Window) keyFromIme(keyval, keycode, state uint32) {
	sym := key.Sym(keyval)
	name, text := key.Lookup(sym)
	e := key.Event{
		Name:     name,
		Text:     text,
		Code:     key.Code(keycode + 8),
		Sym:      sym,
		Location: sym.Location(),
		State:    key.Press,
	}
	if state&ibusReleaseMask != 0 {
		e.State = key.Release
	}
	if state&ibusShiftMask != 0 {
		e.Modifiers |= key.ModShift
	}
	if state&ibusControlMask != 0 {
		e.Modifiers |= key.ModCtrl
	}
	if state&ibusMod1Mask != 0 {
		e.Modifiers |= key.ModAlt
	}
	if state&ibusMod4Mask != 0 {
		e.Modifiers |= key.ModSuper
	}
	x.w.keyEvent(e)
}

// screenRect converts a window-local rectangle to root coordinates
// for the input method's candidate window.
func (x *x11Window) screenRect(r f32.Rectangle) (int32, int32, int32, int32) {
	ir := r.Round()
	rep, err := xproto.TranslateCoordinates(x.xu.Conn(), x.win.Id, x.xu.RootWin(),
		int16(ir.Min.X), int16(ir.Min.Y)).Reply()
	if err != nil {
		x.w.log.Debug("app: x11: translate coordinates", "err", err)
		return int32(ir.Min.X), int32(ir.Min.Y), int32(ir.Dx()), int32(ir.Dy())
	}
	return int32(rep.DstX), int32(rep.DstY), int32(ir.Dx()), int32(ir.Dy())
}

func (x *x11Window) applyConfig(cfg Config) {
	if err := ewmh.WmNameSet(x.xu, x.win.Id, cfg.Title); err != nil {
		x.w.log.Debug("app: x11: set title", "err", err)
	}
	icccm.WmNameSet(x.xu, x.win.Id, cfg.Title)
	hints := icccm.NormalHints{}
	if cfg.MinSize.X > 0 || cfg.MinSize.Y > 0 {
		hints.Flags |= icccm.SizeHintPMinSize
		hints.MinWidth = uint(cfg.MinSize.X)
		hints.MinHeight = uint(cfg.MinSize.Y)
	}
	if cfg.MaxSize.X > 0 || cfg.MaxSize.Y > 0 {
		hints.Flags |= icccm.SizeHintPMaxSize
		hints.MaxWidth = uint(cfg.MaxSize.X)
		hints.MaxHeight = uint(cfg.MaxSize.Y)
	}
	if hints.Flags != 0 {
		if err := icccm.WmNormalHintsSet(x.xu, x.win.Id, &hints); err != nil {
			x.w.log.Debug("app: x11: set size hints", "err", err)
		}
	}
}

func (x *x11Window) Invalidate() {
	x.invalid = true
}

func (x *x11Window) SetDeadline(t time.Time) {
	if x.timer != nil {
		x.timer.Stop()
		x.timer = nil
	}
	if t.IsZero() {
		return
	}
	d := time.Until(t)
	if d < 0 {
		d = 0
	}
	x.timer = time.NewTimer(d)
}

func (x *x11Window) Configure(options []Option) {
	old := x.cfg
	x.cfg.apply(x.metric, options)
	x.applyConfig(x.cfg)
	if x.cfg.Size != old.Size {
		x.win.Resize(x.cfg.Size.X, x.cfg.Size.Y)
	}
}

func (x *x11Window) Run(f func()) {
	x.queue.push(f)
}

func (x *x11Window) Close() {
	x.dead = true
}

// x11Resolver resolves keycodes through the keyboard mapping fetched
// by keybind. Column selection covers shift and caps lock; anything
// beyond that is the input method's business.
type x11Resolver struct {
	xu   *xgbutil.XUtil
	mods key.Modifiers
	caps bool
}

func (r *x11Resolver) Sym(code key.Code) key.Sym {
	kc := xproto.Keycode(code)
	col0 := key.Sym(keybind.KeysymGet(r.xu, kc, 0))
	col1 := key.Sym(keybind.KeysymGet(r.xu, kc, 1))
	if col1 == key.SymNone {
		col1 = col0
	}
	shift := r.mods.Contain(key.ModShift)
	if r.caps && symIsLetter(col0) {
		shift = !shift
	}
	if shift {
		return col1
	}
	return col0
}

func (r *x11Resolver) Lookup(sym key.Sym) (key.Name, string) {
	return key.Lookup(sym)
}

func (r *x11Resolver) UpdateModifiers(state key.ModifierState) {
	effective := state.Depressed | state.Latched | state.Locked
	var mods key.Modifiers
	if effective&keymap.MaskShift != 0 {
		mods |= key.ModShift
	}
	if effective&keymap.MaskControl != 0 {
		mods |= key.ModCtrl
	}
	if effective&keymap.MaskMod1 != 0 {
		mods |= key.ModAlt
	}
	if effective&keymap.MaskMod4 != 0 {
		mods |= key.ModSuper
	}
	r.mods = mods
	r.caps = effective&keymap.MaskLock != 0
}

func (r *x11Resolver) Modifiers() key.Modifiers {
	return r.mods
}

func (r *x11Resolver) Repeats(code key.Code) bool {
	return !r.Sym(code).IsModifier()
}

func symIsLetter(sym key.Sym) bool {
	_, text := key.Lookup(sym)
	for _, r := range text {
		return unicode.IsLetter(r)
	}
	return false
}

func x11Metric(xu *xgbutil.XUtil) unit.Metric {
	s := xu.Screen()
	mm := float32(s.HeightInMillimeters)
	if mm <= 0 {
		return unit.Metric{PxPerDp: 1, PxPerSp: 1}
	}
	dpi := float32(s.HeightInPixels) * 25.4 / mm
	scale := dpi / 96
	if scale < 1 {
		scale = 1
	}
	return unit.Metric{PxPerDp: scale, PxPerSp: scale}
}
