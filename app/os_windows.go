// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
	"unicode"
	"unicode/utf16"
	"unsafe"

	syscall "golang.org/x/sys/windows"

	"oriel.dev/f32"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
)

type rect struct {
	left, top, right, bottom int32
}

type winPoint struct {
	x, y int32
}

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     syscall.Handle
	hIcon         syscall.Handle
	hCursor       syscall.Handle
	hbrBackground syscall.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       syscall.Handle
}

type winMsg struct {
	hwnd     syscall.Handle
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       winPoint
	lPrivate uint32
}

type minMaxInfo struct {
	ptReserved     winPoint
	ptMaxSize      winPoint
	ptMaxPosition  winPoint
	ptMinTrackSize winPoint
	ptMaxTrackSize winPoint
}

type compositionForm struct {
	dwStyle      uint32
	ptCurrentPos winPoint
	rcArea       rect
}

type candidateForm struct {
	dwIndex      uint32
	dwStyle      uint32
	ptCurrentPos winPoint
	rcArea       rect
}

const (
	_CS_HREDRAW = 0x0002
	_CS_VREDRAW = 0x0001
	_CS_OWNDC   = 0x0020

	_CW_USEDEFAULT = -2147483648

	_IDC_ARROW = 32512

	_LOGPIXELSX = 88

	_SIZE_MAXIMIZED = 2
	_SIZE_MINIMIZED = 1
	_SIZE_RESTORED  = 0

	_SW_SHOWNORMAL = 1

	_VK_BACK    = 0x08
	_VK_TAB     = 0x09
	_VK_RETURN  = 0x0d
	_VK_SHIFT   = 0x10
	_VK_CONTROL = 0x11
	_VK_MENU    = 0x12
	_VK_ESCAPE  = 0x1b
	_VK_SPACE   = 0x20
	_VK_PRIOR   = 0x21
	_VK_NEXT    = 0x22
	_VK_END     = 0x23
	_VK_HOME    = 0x24
	_VK_LEFT    = 0x25
	_VK_UP      = 0x26
	_VK_RIGHT   = 0x27
	_VK_DOWN    = 0x28
	_VK_DELETE  = 0x2e
	_VK_LWIN    = 0x5b
	_VK_RWIN    = 0x5c
	_VK_F1      = 0x70
	_VK_F10     = 0x79
	_VK_F12     = 0x7b

	_VK_OEM_1      = 0xba
	_VK_OEM_PLUS   = 0xbb
	_VK_OEM_COMMA  = 0xbc
	_VK_OEM_MINUS  = 0xbd
	_VK_OEM_PERIOD = 0xbe
	_VK_OEM_2      = 0xbf
	_VK_OEM_3      = 0xc0
	_VK_OEM_4      = 0xdb
	_VK_OEM_5      = 0xdc
	_VK_OEM_6      = 0xdd
	_VK_OEM_7      = 0xde
	_VK_OEM_102    = 0xe2

	_UNICODE_NOCHAR = 65535

	_WM_DESTROY              = 0x0002
	_WM_SIZE                 = 0x0005
	_WM_SETFOCUS             = 0x0007
	_WM_KILLFOCUS            = 0x0008
	_WM_PAINT                = 0x000f
	_WM_CLOSE                = 0x0010
	_WM_ERASEBKGND           = 0x0014
	_WM_CANCELMODE           = 0x001f
	_WM_GETMINMAXINFO        = 0x0024
	_WM_KEYDOWN              = 0x0100
	_WM_KEYUP                = 0x0101
	_WM_CHAR                 = 0x0102
	_WM_SYSKEYDOWN           = 0x0104
	_WM_SYSKEYUP             = 0x0105
	_WM_UNICHAR              = 0x0109
	_WM_IME_STARTCOMPOSITION = 0x010d
	_WM_IME_ENDCOMPOSITION   = 0x010e
	_WM_IME_COMPOSITION      = 0x010f
	_WM_TIMER                = 0x0113
	_WM_MOUSEMOVE            = 0x0200
	_WM_LBUTTONDOWN          = 0x0201
	_WM_LBUTTONUP            = 0x0202
	_WM_RBUTTONDOWN          = 0x0204
	_WM_RBUTTONUP            = 0x0205
	_WM_MBUTTONDOWN          = 0x0207
	_WM_MBUTTONUP            = 0x0208
	_WM_MOUSEWHEEL           = 0x020a
	_WM_MOUSEHWHEEL          = 0x020e
	_WM_DPICHANGED           = 0x02e0
	_WM_USER                 = 0x0400

	_WS_CLIPCHILDREN     = 0x00010000
	_WS_CLIPSIBLINGS     = 0x04000000
	_WS_OVERLAPPED       = 0x00000000
	_WS_OVERLAPPEDWINDOW = _WS_OVERLAPPED | _WS_CAPTION | _WS_SYSMENU | _WS_THICKFRAME |
		_WS_MINIMIZEBOX | _WS_MAXIMIZEBOX
	_WS_CAPTION     = 0x00C00000
	_WS_SYSMENU     = 0x00080000
	_WS_THICKFRAME  = 0x00040000
	_WS_MINIMIZEBOX = 0x00020000
	_WS_MAXIMIZEBOX = 0x00010000

	_WS_EX_APPWINDOW  = 0x00040000
	_WS_EX_WINDOWEDGE = 0x00000100

	_SWP_NOMOVE        = 0x0002
	_SWP_NOZORDER      = 0x0004
	_SWP_NOOWNERZORDER = 0x0200

	_GCS_COMPSTR   = 0x0008
	_GCS_CURSORPOS = 0x0080
	_GCS_RESULTSTR = 0x0800

	_NI_COMPOSITIONSTR = 0x0015
	_CPS_CANCEL        = 0x0004

	_CFS_POINT        = 0x0002
	_CFS_CANDIDATEPOS = 0x0040

	_IACE_DEFAULT = 0x0010
)

const _WM_WAKEUP = _WM_USER + iota

// deadlineTimerID identifies the single native timer backing
// SetDeadline.
const deadlineTimerID = 1

// winMap maps win32 HWNDs to their windows for windowProc.
var winMap sync.Map

var resources struct {
	once sync.Once
	// handle is the module handle from GetModuleHandle.
	handle syscall.Handle
	// class is the window class from RegisterClassEx.
	class uint16
	// cursor is the arrow cursor resource.
	cursor syscall.Handle
}

// win32Window drives one native window. All state is owned by the
// message loop thread; Run is the only entry point for other
// goroutines.
type win32Window struct {
	w    *Window
	hwnd syscall.Handle

	queue  funcQueue
	metric unit.Metric
	cfg    Config
	size   image.Point
	// deltas is the frame size minus the client size.
	deltas  image.Point
	buttons pointer.Buttons
}

func newOSWindow(w *Window, options []Option) error {
	cerr := make(chan error)
	go func() {
		// GetMessage and PeekMessage can filter on a window HWND, but
		// then thread-specific messages such as WM_QUIT are ignored.
		// Instead lock the thread so window messages arrive through
		// unfiltered GetMessage calls.
		runtime.LockOSThread()
		win, err := createNativeWindow(w, options)
		if err != nil {
			cerr <- err
			return
		}
		cerr <- nil
		winMap.Store(win.hwnd, win)
		defer winMap.Delete(win.hwnd)
		win.loop()
	}()
	return <-cerr
}

// initResources initializes the resources global.
func initResources() error {
	setProcessDPIAware()
	hInst, err := getModuleHandle()
	if err != nil {
		return err
	}
	resources.handle = hInst
	c, err := loadCursor(_IDC_ARROW)
	if err != nil {
		return err
	}
	resources.cursor = c
	wcls := wndClassEx{
		cbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
		style:         _CS_HREDRAW | _CS_VREDRAW | _CS_OWNDC,
		lpfnWndProc:   syscall.NewCallback(windowProc),
		hInstance:     hInst,
		hCursor:       c,
		lpszClassName: syscall.StringToUTF16Ptr("OrielWindow"),
	}
	cls, err := registerClassEx(&wcls)
	if err != nil {
		return err
	}
	resources.class = cls
	return nil
}

func createNativeWindow(w *Window, options []Option) (*win32Window, error) {
	var resErr error
	resources.once.Do(func() {
		resErr = initResources()
	})
	if resErr != nil {
		return nil, resErr
	}
	screenDC, err := getDC(0)
	if err != nil {
		return nil, err
	}
	dpi := getDeviceCaps(screenDC, _LOGPIXELSX)
	releaseDC(screenDC)

	win := &win32Window{
		w:      w,
		queue:  newFuncQueue(),
		metric: configForDPI(dpi),
	}
	win.cfg.Size = image.Pt(800, 600)
	win.cfg.apply(win.metric, options)

	dwStyle := uint32(_WS_OVERLAPPEDWINDOW)
	dwExStyle := uint32(_WS_EX_APPWINDOW | _WS_EX_WINDOWEDGE)
	wr := rect{
		right:  int32(win.cfg.Size.X),
		bottom: int32(win.cfg.Size.Y),
	}
	adjustWindowRectEx(&wr, dwStyle, 0, dwExStyle)
	win.deltas = image.Pt(
		int(wr.right-wr.left)-win.cfg.Size.X,
		int(wr.bottom-wr.top)-win.cfg.Size.Y,
	)
	hwnd, err := createWindowEx(dwExStyle,
		resources.class,
		win.cfg.Title,
		dwStyle|_WS_CLIPSIBLINGS|_WS_CLIPCHILDREN,
		_CW_USEDEFAULT, _CW_USEDEFAULT,
		wr.right-wr.left,
		wr.bottom-wr.top,
		0,
		0,
		resources.handle,
		0)
	if err != nil {
		return nil, err
	}
	win.hwnd = hwnd
	win.size = win.cfg.Size
	return win, nil
}

// Adapted from https://blogs.msdn.microsoft.com/oldnewthing/20060126-00/?p=32513/
func (win *win32Window) loop() {
	win.w.created(win)
	win.w.resized(win.size, win.metric)
	win.w.seat.SetConn(immConn{win: win})
	showWindow(win.hwnd, _SW_SHOWNORMAL)
	setForegroundWindow(win.hwnd)
	setFocus(win.hwnd)
	m := new(winMsg)
	for {
		switch ret := getMessage(m, 0, 0, 0); ret {
		case -1:
			win.w.log.Error("app: win32: GetMessage failed")
			win.w.destroyed()
			return
		case 0:
			// WM_QUIT received.
			win.w.destroyed()
			return
		}
		translateMessage(m)
		dispatchMessage(m)
	}
}

func windowProc(hwnd syscall.Handle, msg uint32, wParam, lParam uintptr) uintptr {
	w, exists := winMap.Load(hwnd)
	if !exists {
		return defWindowProc(hwnd, msg, wParam, lParam)
	}
	win := w.(*win32Window)

	switch msg {
	case _WM_UNICHAR:
		if wParam == _UNICODE_NOCHAR {
			// Tell the system that we accept WM_UNICHAR messages.
			return 1
		}
		fallthrough
	case _WM_CHAR:
		if r := rune(wParam); unicode.IsPrint(r) {
			win.charEvent(r, lParam)
		}
		// The message is processed.
		return 1
	case _WM_DPICHANGED:
		// Let Windows know we're prepared for runtime DPI changes.
		return 1
	case _WM_ERASEBKGND:
		// Painting is the application's business.
		return 1
	case _WM_KEYDOWN, _WM_SYSKEYDOWN:
		if e, ok := vkEvent(wParam, lParam, key.Press); ok {
			win.w.keyEvent(e)
		}
		if wParam == _VK_F10 && msg == _WM_SYSKEYDOWN {
			// Reserve F10, and don't let it open the system menu.
			// Other Windows programs such as cmd.exe and graphical
			// debuggers also reserve F10.
			return 0
		}
	case _WM_KEYUP, _WM_SYSKEYUP:
		if e, ok := vkEvent(wParam, lParam, key.Release); ok {
			win.w.keyEvent(e)
		}
		if wParam == _VK_F10 && msg == _WM_SYSKEYUP {
			return 0
		}
	case _WM_LBUTTONDOWN:
		win.pointerButton(pointer.ButtonPrimary, true, lParam)
	case _WM_LBUTTONUP:
		win.pointerButton(pointer.ButtonPrimary, false, lParam)
	case _WM_RBUTTONDOWN:
		win.pointerButton(pointer.ButtonSecondary, true, lParam)
	case _WM_RBUTTONUP:
		win.pointerButton(pointer.ButtonSecondary, false, lParam)
	case _WM_MBUTTONDOWN:
		win.pointerButton(pointer.ButtonTertiary, true, lParam)
	case _WM_MBUTTONUP:
		win.pointerButton(pointer.ButtonTertiary, false, lParam)
	case _WM_CANCELMODE:
		win.w.pointerEvent(pointer.Event{
			Kind: pointer.Cancel,
		})
	case _WM_SETFOCUS:
		win.w.focus(true)
	case _WM_KILLFOCUS:
		win.w.focus(false)
	case _WM_MOUSEMOVE:
		x, y := coordsFromlParam(lParam)
		win.w.pointerEvent(pointer.Event{
			Kind:      pointer.Move,
			Source:    pointer.Mouse,
			Position:  f32.Pt(float32(x), float32(y)),
			Buttons:   win.buttons,
			Time:      getMessageTime(),
			Modifiers: getModifiers(),
		})
	case _WM_MOUSEWHEEL:
		win.scrollEvent(wParam, lParam, false)
	case _WM_MOUSEHWHEEL:
		win.scrollEvent(wParam, lParam, true)
	case _WM_DESTROY:
		postQuitMessage(0)
	case _WM_PAINT:
		win.w.draw()
	case _WM_SIZE:
		switch wParam {
		case _SIZE_MAXIMIZED, _SIZE_RESTORED:
			size := image.Pt(int(lParam&0xffff), int((lParam>>16)&0xffff))
			win.size = size
			win.w.resized(size, win.metric)
		}
	case _WM_GETMINMAXINFO:
		mm := (*minMaxInfo)(unsafe.Pointer(lParam))
		if p := win.cfg.MinSize; p.X > 0 || p.Y > 0 {
			mm.ptMinTrackSize = winPoint{
				x: int32(p.X + win.deltas.X),
				y: int32(p.Y + win.deltas.Y),
			}
		}
		if p := win.cfg.MaxSize; p.X > 0 || p.Y > 0 {
			mm.ptMaxTrackSize = winPoint{
				x: int32(p.X + win.deltas.X),
				y: int32(p.Y + win.deltas.Y),
			}
		}
	case _WM_TIMER:
		if wParam == deadlineTimerID {
			win.w.tick(time.Now())
		}
	case _WM_WAKEUP:
		for _, f := range win.queue.drain() {
			win.w.runFunc(f)
		}
	case _WM_IME_STARTCOMPOSITION:
		// The preedit is drawn inline; suppress the system
		// composition window.
		return 1
	case _WM_IME_COMPOSITION:
		if win.imeComposition(lParam) {
			return 1
		}
	case _WM_IME_ENDCOMPOSITION:
		var b input.Batch
		b.Preedit.Set = true
		win.w.imeBatch(b)
		return 1
	}

	return defWindowProc(hwnd, msg, wParam, lParam)
}

// vkEvent translates a virtual key message. Keys that the system
// translates to characters leave their symbol to the following
// WM_CHAR, so that text arrives exactly once.
func vkEvent(wParam, lParam uintptr, state key.State) (key.Event, bool) {
	e := key.Event{
		Code:      scanCode(lParam),
		Modifiers: getModifiers(),
		State:     state,
		Repeat:    state == key.Press && lParam&(1<<30) != 0,
	}
	ext := lParam&(1<<24) != 0
	switch wParam {
	case _VK_RETURN:
		e.Name, e.Sym = key.NameReturn, key.SymReturn
		if ext {
			e.Name, e.Sym = key.NameEnter, key.SymKPEnter
		}
	case _VK_ESCAPE:
		e.Name, e.Sym = key.NameEscape, key.SymEscape
	case _VK_TAB:
		e.Name, e.Sym = key.NameTab, key.SymTab
	case _VK_BACK:
		e.Name, e.Sym = key.NameDeleteBackward, key.SymBackSpace
	case _VK_DELETE:
		e.Name, e.Sym = key.NameDeleteForward, key.SymDelete
	case _VK_LEFT:
		e.Name, e.Sym = key.NameLeftArrow, key.SymLeft
	case _VK_RIGHT:
		e.Name, e.Sym = key.NameRightArrow, key.SymRight
	case _VK_UP:
		e.Name, e.Sym = key.NameUpArrow, key.SymUp
	case _VK_DOWN:
		e.Name, e.Sym = key.NameDownArrow, key.SymDown
	case _VK_HOME:
		e.Name, e.Sym = key.NameHome, key.SymHome
	case _VK_END:
		e.Name, e.Sym = key.NameEnd, key.SymEnd
	case _VK_PRIOR:
		e.Name, e.Sym = key.NamePageUp, key.SymPageUp
	case _VK_NEXT:
		e.Name, e.Sym = key.NamePageDown, key.SymPageDown
	case _VK_SHIFT:
		e.Name, e.Sym = key.NameShift, key.SymShiftL
		if (lParam>>16)&0xff == 0x36 {
			e.Sym = key.SymShiftR
		}
	case _VK_CONTROL:
		e.Name, e.Sym = key.NameCtrl, key.SymControlL
		if ext {
			e.Sym = key.SymControlR
		}
	case _VK_MENU:
		e.Name, e.Sym = key.NameAlt, key.SymAltL
		if ext {
			e.Sym = key.SymAltR
		}
	case _VK_LWIN:
		e.Name, e.Sym = key.NameSuper, key.SymSuperL
	case _VK_RWIN:
		e.Name, e.Sym = key.NameSuper, key.SymSuperR
	case _VK_SPACE:
		e.Name = key.NameSpace
	case _VK_OEM_1:
		e.Name = ";"
	case _VK_OEM_PLUS:
		e.Name = "+"
	case _VK_OEM_COMMA:
		e.Name = ","
	case _VK_OEM_MINUS:
		e.Name = "-"
	case _VK_OEM_PERIOD:
		e.Name = "."
	case _VK_OEM_2:
		e.Name = "/"
	case _VK_OEM_3:
		e.Name = "`"
	case _VK_OEM_4:
		e.Name = "["
	case _VK_OEM_5, _VK_OEM_102:
		e.Name = "\\"
	case _VK_OEM_6:
		e.Name = "]"
	case _VK_OEM_7:
		e.Name = "'"
	default:
		switch {
		case _VK_F1 <= wParam && wParam <= _VK_F12:
			n := wParam - _VK_F1
			e.Name = key.Name(fmt.Sprintf("F%d", n+1))
			e.Sym = key.SymF1 + key.Sym(n)
		case '0' <= wParam && wParam <= '9' || 'A' <= wParam && wParam <= 'Z':
			e.Name = key.Name(rune(wParam))
		default:
			return key.Event{}, false
		}
	}
	e.Location = e.Sym.Location()
	return e, true
}

// charEvent delivers the text of a translated key press.
func (win *win32Window) charEvent(r rune, lParam uintptr) {
	sym := key.SymOf(r)
	name, _ := key.Lookup(sym)
	win.w.keyEvent(key.Event{
		Name:      name,
		Text:      string(r),
		Code:      scanCode(lParam),
		Sym:       sym,
		Modifiers: getModifiers(),
		State:     key.Press,
		Repeat:    lParam&(1<<30) != 0,
	})
}

// scanCode extracts the hardware scan code, with the extended bit
// folded in above it.
func scanCode(lParam uintptr) key.Code {
	return key.Code((lParam>>16)&0xff | (lParam>>24&1)<<8)
}

func getModifiers() key.Modifiers {
	var kmods key.Modifiers
	if getKeyState(_VK_LWIN)&0x1000 != 0 || getKeyState(_VK_RWIN)&0x1000 != 0 {
		kmods |= key.ModSuper
	}
	if getKeyState(_VK_MENU)&0x1000 != 0 {
		kmods |= key.ModAlt
	}
	if getKeyState(_VK_CONTROL)&0x1000 != 0 {
		kmods |= key.ModCtrl
	}
	if getKeyState(_VK_SHIFT)&0x1000 != 0 {
		kmods |= key.ModShift
	}
	return kmods
}

func (win *win32Window) pointerButton(btn pointer.Buttons, press bool, lParam uintptr) {
	kind := pointer.Release
	if press {
		kind = pointer.Press
		if win.buttons == 0 {
			setCapture(win.hwnd)
		}
		win.buttons |= btn
	} else {
		win.buttons &^= btn
		if win.buttons == 0 {
			releaseCapture()
		}
	}
	x, y := coordsFromlParam(lParam)
	win.w.pointerEvent(pointer.Event{
		Kind:      kind,
		Source:    pointer.Mouse,
		Position:  f32.Pt(float32(x), float32(y)),
		Buttons:   win.buttons,
		Time:      getMessageTime(),
		Modifiers: getModifiers(),
	})
}

func coordsFromlParam(lParam uintptr) (int, int) {
	x := int(int16(lParam & 0xffff))
	y := int(int16((lParam >> 16) & 0xffff))
	return x, y
}

func (win *win32Window) scrollEvent(wParam, lParam uintptr, horizontal bool) {
	x, y := coordsFromlParam(lParam)
	// The WM_MOUSEWHEEL coordinates are in screen coordinates, in
	// contrast to other mouse events.
	np := winPoint{x: int32(x), y: int32(y)}
	screenToClient(win.hwnd, &np)
	dist := float32(int16(wParam >> 16))
	var sp f32.Point
	if horizontal {
		sp.X = dist
	} else {
		sp.Y = -dist
	}
	win.w.pointerEvent(pointer.Event{
		Kind:      pointer.Scroll,
		Source:    pointer.Mouse,
		Position:  f32.Pt(float32(np.x), float32(np.y)),
		Buttons:   win.buttons,
		Scroll:    sp,
		Time:      getMessageTime(),
		Modifiers: getModifiers(),
	})
}

// imeComposition folds one composition message into a batch. A single
// message can carry both the final text of the old composition and the
// start of the next one.
func (win *win32Window) imeComposition(lParam uintptr) bool {
	imc := immGetContext(win.hwnd)
	if imc == 0 {
		return false
	}
	defer immReleaseContext(win.hwnd, imc)
	var b input.Batch
	handled := false
	if lParam&_GCS_RESULTSTR != 0 {
		b.Commit.Set = true
		b.Commit.Text = immGetCompositionString(imc, _GCS_RESULTSTR)
		handled = true
	}
	if lParam&_GCS_COMPSTR != 0 {
		text := immGetCompositionString(imc, _GCS_COMPSTR)
		b.Preedit.Set = true
		b.Preedit.Text = text
		b.Preedit.CursorBegin = -1
		b.Preedit.CursorEnd = -1
		if lParam&_GCS_CURSORPOS != 0 {
			pos := immGetCompositionValue(imc, _GCS_CURSORPOS)
			b.Preedit.CursorBegin = utf16ByteOffset(text, pos)
			b.Preedit.CursorEnd = b.Preedit.CursorBegin
		}
		handled = true
	}
	if handled {
		win.w.imeBatch(b)
	}
	return handled
}

// utf16ByteOffset converts an offset in UTF-16 units into a byte
// offset in s.
func utf16ByteOffset(s string, off int) int {
	n := 0
	for i, r := range s {
		if n >= off {
			return i
		}
		n++
		if r >= 0x10000 {
			n++
		}
	}
	return len(s)
}

func (win *win32Window) Invalidate() {
	invalidateRect(win.hwnd)
}

func (win *win32Window) SetDeadline(t time.Time) {
	if t.IsZero() {
		killTimer(win.hwnd, deadlineTimerID)
		return
	}
	ms := time.Until(t).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	setTimer(win.hwnd, deadlineTimerID, uint32(ms))
}

func (win *win32Window) Configure(options []Option) {
	win.cfg.apply(win.metric, options)
	setWindowText(win.hwnd, win.cfg.Title)
	if size := win.cfg.Size; size != win.size {
		setWindowPos(win.hwnd, 0, 0, 0,
			int32(size.X+win.deltas.X),
			int32(size.Y+win.deltas.Y),
			_SWP_NOMOVE|_SWP_NOZORDER|_SWP_NOOWNERZORDER)
	}
}

func (win *win32Window) Run(f func()) {
	win.queue.push(f)
	postMessage(win.hwnd, _WM_WAKEUP, 0, 0)
}

func (win *win32Window) Close() {
	postMessage(win.hwnd, _WM_CLOSE, 0, 0)
}

// immConn drives the system input method through IMM. The context
// applies requests immediately, so Commit has nothing to flush, and
// the document is not shared beyond the caret position.
type immConn struct {
	win *win32Window
}

func (c immConn) Enable() {
	immAssociateContextEx(c.win.hwnd, 0, _IACE_DEFAULT)
}

func (c immConn) Disable() {
	immAssociateContext(c.win.hwnd, 0)
}

func (c immConn) SetSurroundingText(text string, cursor, anchor int) {}

func (c immConn) ClearSurroundingText() {}

func (c immConn) SetTextChangeCause(cause input.Cause) {
	if cause == input.CauseIme {
		return
	}
	// The field changed under the input method; retract any
	// composition it has in flight.
	imc := immGetContext(c.win.hwnd)
	if imc == 0 {
		return
	}
	defer immReleaseContext(c.win.hwnd, imc)
	immNotifyIME(imc, _NI_COMPOSITIONSTR, _CPS_CANCEL)
}

func (c immConn) SetCursorRectangle(r f32.Rectangle) {
	imc := immGetContext(c.win.hwnd)
	if imc == 0 {
		return
	}
	defer immReleaseContext(c.win.hwnd, imc)
	ir := r.Round()
	immSetCompositionWindow(imc, int32(ir.Min.X), int32(ir.Min.Y))
	immSetCandidateWindow(imc, int32(ir.Min.X), int32(ir.Max.Y))
}

func (c immConn) Commit() {}

func configForDPI(dpi int) unit.Metric {
	const inchPrDp = 1.0 / 96.0
	ppdp := float32(dpi) * inchPrDp
	if ppdp < 1 {
		ppdp = 1
	}
	return unit.Metric{
		PxPerDp: ppdp,
		PxPerSp: ppdp,
	}
}

var (
	kernel32          = syscall.NewLazySystemDLL("kernel32.dll")
	_GetModuleHandleW = kernel32.NewProc("GetModuleHandleW")

	user32               = syscall.NewLazySystemDLL("user32.dll")
	_AdjustWindowRectEx  = user32.NewProc("AdjustWindowRectEx")
	_CreateWindowEx      = user32.NewProc("CreateWindowExW")
	_DefWindowProc       = user32.NewProc("DefWindowProcW")
	_DispatchMessage     = user32.NewProc("DispatchMessageW")
	_GetDC               = user32.NewProc("GetDC")
	_GetKeyState         = user32.NewProc("GetKeyState")
	_GetMessage          = user32.NewProc("GetMessageW")
	_GetMessageTime      = user32.NewProc("GetMessageTime")
	_InvalidateRect      = user32.NewProc("InvalidateRect")
	_KillTimer           = user32.NewProc("KillTimer")
	_LoadCursor          = user32.NewProc("LoadCursorW")
	_PostMessage         = user32.NewProc("PostMessageW")
	_PostQuitMessage     = user32.NewProc("PostQuitMessage")
	_RegisterClassExW    = user32.NewProc("RegisterClassExW")
	_ReleaseCapture      = user32.NewProc("ReleaseCapture")
	_ReleaseDC           = user32.NewProc("ReleaseDC")
	_ScreenToClient      = user32.NewProc("ScreenToClient")
	_SetCapture          = user32.NewProc("SetCapture")
	_SetFocus            = user32.NewProc("SetFocus")
	_SetForegroundWindow = user32.NewProc("SetForegroundWindow")
	_SetProcessDPIAware  = user32.NewProc("SetProcessDPIAware")
	_SetTimer            = user32.NewProc("SetTimer")
	_SetWindowPos        = user32.NewProc("SetWindowPos")
	_SetWindowText       = user32.NewProc("SetWindowTextW")
	_ShowWindow          = user32.NewProc("ShowWindow")
	_TranslateMessage    = user32.NewProc("TranslateMessage")

	gdi32          = syscall.NewLazySystemDLL("gdi32.dll")
	_GetDeviceCaps = gdi32.NewProc("GetDeviceCaps")

	imm32                    = syscall.NewLazySystemDLL("imm32.dll")
	_ImmAssociateContext     = imm32.NewProc("ImmAssociateContext")
	_ImmAssociateContextEx   = imm32.NewProc("ImmAssociateContextEx")
	_ImmGetContext           = imm32.NewProc("ImmGetContext")
	_ImmGetCompositionString = imm32.NewProc("ImmGetCompositionStringW")
	_ImmNotifyIME            = imm32.NewProc("ImmNotifyIME")
	_ImmReleaseContext       = imm32.NewProc("ImmReleaseContext")
	_ImmSetCandidateWindow   = imm32.NewProc("ImmSetCandidateWindow")
	_ImmSetCompositionWindow = imm32.NewProc("ImmSetCompositionWindow")
)

func getModuleHandle() (syscall.Handle, error) {
	h, _, err := _GetModuleHandleW.Call(uintptr(0))
	if h == 0 {
		return 0, fmt.Errorf("GetModuleHandleW failed: %v", err)
	}
	return syscall.Handle(h), nil
}

func adjustWindowRectEx(r *rect, dwStyle uint32, bMenu int, dwExStyle uint32) {
	_AdjustWindowRectEx.Call(uintptr(unsafe.Pointer(r)), uintptr(dwStyle), uintptr(bMenu), uintptr(dwExStyle))
}

func createWindowEx(dwExStyle uint32, lpClassName uint16, lpWindowName string, dwStyle uint32, x, y, w, h int32, hWndParent, hMenu, hInstance syscall.Handle, lpParam uintptr) (syscall.Handle, error) {
	hwnd, _, err := _CreateWindowEx.Call(
		uintptr(dwExStyle),
		uintptr(lpClassName),
		uintptr(unsafe.Pointer(syscall.StringToUTF16Ptr(lpWindowName))),
		uintptr(dwStyle),
		uintptr(x), uintptr(y),
		uintptr(w), uintptr(h),
		uintptr(hWndParent),
		uintptr(hMenu),
		uintptr(hInstance),
		uintptr(lpParam))
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowEx failed: %v", err)
	}
	return syscall.Handle(hwnd), nil
}

func defWindowProc(hwnd syscall.Handle, msg uint32, wparam, lparam uintptr) uintptr {
	r, _, _ := _DefWindowProc.Call(uintptr(hwnd), uintptr(msg), wparam, lparam)
	return r
}

func dispatchMessage(m *winMsg) {
	_DispatchMessage.Call(uintptr(unsafe.Pointer(m)))
}

func getDC(hwnd syscall.Handle) (syscall.Handle, error) {
	hdc, _, err := _GetDC.Call(uintptr(hwnd))
	if hdc == 0 {
		return 0, fmt.Errorf("GetDC failed: %v", err)
	}
	return syscall.Handle(hdc), nil
}

func getDeviceCaps(hdc syscall.Handle, index int32) int {
	c, _, _ := _GetDeviceCaps.Call(uintptr(hdc), uintptr(index))
	return int(c)
}

func getKeyState(nVirtKey int32) int16 {
	c, _, _ := _GetKeyState.Call(uintptr(nVirtKey))
	return int16(c)
}

func getMessage(m *winMsg, hwnd syscall.Handle, wMsgFilterMin, wMsgFilterMax uint32) int32 {
	r, _, _ := _GetMessage.Call(uintptr(unsafe.Pointer(m)),
		uintptr(hwnd),
		uintptr(wMsgFilterMin),
		uintptr(wMsgFilterMax))
	return int32(r)
}

func getMessageTime() time.Duration {
	r, _, _ := _GetMessageTime.Call()
	return time.Duration(r) * time.Millisecond
}

func invalidateRect(hwnd syscall.Handle) {
	_InvalidateRect.Call(uintptr(hwnd), 0, 0)
}

func killTimer(hwnd syscall.Handle, nIDEvent uintptr) {
	_KillTimer.Call(uintptr(hwnd), nIDEvent)
}

func loadCursor(curID uint16) (syscall.Handle, error) {
	h, _, err := _LoadCursor.Call(0, uintptr(curID))
	if h == 0 {
		return 0, fmt.Errorf("LoadCursorW failed: %v", err)
	}
	return syscall.Handle(h), nil
}

func postMessage(hwnd syscall.Handle, msg uint32, wParam, lParam uintptr) {
	_PostMessage.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
}

func postQuitMessage(exitCode uintptr) {
	_PostQuitMessage.Call(exitCode)
}

func registerClassEx(cls *wndClassEx) (uint16, error) {
	a, _, err := _RegisterClassExW.Call(uintptr(unsafe.Pointer(cls)))
	if a == 0 {
		return 0, fmt.Errorf("RegisterClassExW failed: %v", err)
	}
	return uint16(a), nil
}

func releaseCapture() {
	_ReleaseCapture.Call()
}

func releaseDC(hdc syscall.Handle) {
	_ReleaseDC.Call(uintptr(hdc))
}

func screenToClient(hwnd syscall.Handle, p *winPoint) {
	_ScreenToClient.Call(uintptr(hwnd), uintptr(unsafe.Pointer(p)))
}

func setCapture(hwnd syscall.Handle) {
	_SetCapture.Call(uintptr(hwnd))
}

func setFocus(hwnd syscall.Handle) {
	_SetFocus.Call(uintptr(hwnd))
}

func setForegroundWindow(hwnd syscall.Handle) {
	_SetForegroundWindow.Call(uintptr(hwnd))
}

func setProcessDPIAware() {
	_SetProcessDPIAware.Call()
}

func setTimer(hwnd syscall.Handle, nIDEvent uintptr, uElapse uint32) {
	_SetTimer.Call(uintptr(hwnd), nIDEvent, uintptr(uElapse), 0)
}

func setWindowPos(hwnd syscall.Handle, hwndInsertAfter syscall.Handle, x, y, dx, dy int32, style uintptr) {
	_SetWindowPos.Call(uintptr(hwnd), uintptr(hwndInsertAfter),
		uintptr(x), uintptr(y),
		uintptr(dx), uintptr(dy),
		style,
	)
}

func setWindowText(hwnd syscall.Handle, title string) {
	_SetWindowText.Call(uintptr(hwnd), uintptr(unsafe.Pointer(syscall.StringToUTF16Ptr(title))))
}

func showWindow(hwnd syscall.Handle, nCmdShow int32) {
	_ShowWindow.Call(uintptr(hwnd), uintptr(nCmdShow))
}

func translateMessage(m *winMsg) {
	_TranslateMessage.Call(uintptr(unsafe.Pointer(m)))
}

func immAssociateContext(hwnd syscall.Handle, imc syscall.Handle) {
	_ImmAssociateContext.Call(uintptr(hwnd), uintptr(imc))
}

func immAssociateContextEx(hwnd syscall.Handle, imc syscall.Handle, flags uint32) {
	_ImmAssociateContextEx.Call(uintptr(hwnd), uintptr(imc), uintptr(flags))
}

func immGetContext(hwnd syscall.Handle) syscall.Handle {
	imc, _, _ := _ImmGetContext.Call(uintptr(hwnd))
	return syscall.Handle(imc)
}

func immGetCompositionString(imc syscall.Handle, comp uint32) string {
	size, _, _ := _ImmGetCompositionString.Call(uintptr(imc), uintptr(comp), 0, 0)
	if int32(size) <= 0 {
		return ""
	}
	u16 := make([]uint16, size/2)
	_ImmGetCompositionString.Call(uintptr(imc), uintptr(comp), uintptr(unsafe.Pointer(&u16[0])), size)
	return string(utf16.Decode(u16))
}

func immGetCompositionValue(imc syscall.Handle, comp uint32) int {
	v, _, _ := _ImmGetCompositionString.Call(uintptr(imc), uintptr(comp), 0, 0)
	return int(int32(v))
}

func immNotifyIME(imc syscall.Handle, action, index uintptr) {
	_ImmNotifyIME.Call(uintptr(imc), action, index, 0)
}

func immReleaseContext(hwnd, imc syscall.Handle) {
	_ImmReleaseContext.Call(uintptr(hwnd), uintptr(imc))
}

func immSetCandidateWindow(imc syscall.Handle, x, y int32) {
	f := candidateForm{
		dwStyle:      _CFS_CANDIDATEPOS,
		ptCurrentPos: winPoint{x: x, y: y},
	}
	_ImmSetCandidateWindow.Call(uintptr(imc), uintptr(unsafe.Pointer(&f)))
}

func immSetCompositionWindow(imc syscall.Handle, x, y int32) {
	f := compositionForm{
		dwStyle:      _CFS_POINT,
		ptCurrentPos: winPoint{x: x, y: y},
	}
	_ImmSetCompositionWindow.Call(uintptr(imc), uintptr(unsafe.Pointer(&f)))
}
