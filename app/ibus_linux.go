// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"

	"oriel.dev/f32"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
)

const (
	ibusService          = "org.freedesktop.IBus"
	ibusPath             = "/org/freedesktop/IBus"
	ibusInterface        = "org.freedesktop.IBus"
	ibusContextInterface = "org.freedesktop.IBus.InputContext"
)

// Client capabilities announced to the daemon.
const (
	ibusCapPreedit     = 1 << 0
	ibusCapFocus       = 1 << 3
	ibusCapSurrounding = 1 << 5
)

// Key state masks, the X11 encoding plus the release bit.
const (
	ibusShiftMask   = 1 << 0
	ibusLockMask    = 1 << 1
	ibusControlMask = 1 << 2
	ibusMod1Mask    = 1 << 3
	ibusMod4Mask    = 1 << 6
	ibusReleaseMask = 1 << 30
)

// ibusConn is an InputContext client on the IBus private bus. Calls
// apply immediately, so the transport Commit is a no-op. All methods
// run on the window's loop goroutine; signals are read from the
// signals channel by the loop's select.
type ibusConn struct {
	conn *dbus.Conn
	ic   dbus.BusObject
	log  *slog.Logger

	signals chan *dbus.Signal

	// onBatch delivers decoded edits and onKey re-injects keys the
	// input method passed back.
	onBatch func(input.Batch)
	onKey   func(keyval, keycode, state uint32)
	// toScreen converts a window-local rectangle into the root
	// coordinates the candidate window is placed in.
	toScreen func(f32.Rectangle) (x, y, w, h int32)
	// replaying is set while a passed-back key is dispatched, so it
	// is not offered to the input method a second time.
	replaying bool

	// Snapshot of the surrounding text last pushed, for converting
	// the character offsets of DeleteSurroundingText into bytes.
	lastText   string
	lastCursor int
}

func newIBusConn(log *slog.Logger, onBatch func(input.Batch), onKey func(keyval, keycode, state uint32), toScreen func(f32.Rectangle) (x, y, w, h int32)) (*ibusConn, error) {
	addr, err := ibusAddress()
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Dial(addr)
	if err != nil {
		return nil, err
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	var path dbus.ObjectPath
	bus := conn.Object(ibusService, ibusPath)
	if err := bus.Call(ibusInterface+".CreateInputContext", 0, "oriel").Store(&path); err != nil {
		conn.Close()
		return nil, err
	}
	c := &ibusConn{
		conn:     conn,
		ic:       conn.Object(ibusService, path),
		log:      log,
		signals:  make(chan *dbus.Signal, 16),
		onBatch:  onBatch,
		onKey:    onKey,
		toScreen: toScreen,
	}
	if err := c.ic.Call(ibusContextInterface+".SetCapabilities", 0,
		uint32(ibusCapPreedit|ibusCapFocus|ibusCapSurrounding)).Err; err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(ibusContextInterface),
	); err != nil {
		conn.Close()
		return nil, err
	}
	conn.Signal(c.signals)
	return c, nil
}

func (c *ibusConn) close() {
	c.conn.RemoveSignal(c.signals)
	c.conn.Close()
}

// ibusAddress finds the daemon's private bus address, from the
// environment or from the socket file the daemon writes for the
// current display.
func ibusAddress() (string, error) {
	if addr := os.Getenv("IBUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	machine, err := machineID()
	if err != nil {
		return "", err
	}
	host, num := displayParts(os.Getenv("DISPLAY"))
	cfg := os.Getenv("XDG_CONFIG_HOME")
	if cfg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cfg = filepath.Join(home, ".config")
	}
	path := filepath.Join(cfg, "ibus", "bus", machine+"-"+host+"-"+num)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if addr, ok := strings.CutPrefix(line, "IBUS_ADDRESS="); ok {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no address in %s", path)
}

func machineID() (string, error) {
	for _, p := range []string{"/var/lib/dbus/machine-id", "/etc/machine-id"} {
		if data, err := os.ReadFile(p); err == nil {
			return strings.TrimSpace(string(data)), nil
		}
	}
	return "", errors.New("no machine-id")
}

// displayParts splits a DISPLAY value like "host:0.1" into the
// hostname and display number the socket file is named after.
func displayParts(display string) (host, num string) {
	host, rest, ok := strings.Cut(display, ":")
	if host == "" {
		host = "unix"
	}
	if !ok {
		return host, "0"
	}
	if num, _, _ = strings.Cut(rest, "."); num == "" {
		num = "0"
	}
	return host, num
}

func (c *ibusConn) call(method string, args ...interface{}) {
	if err := c.ic.Call(ibusContextInterface+"."+method, 0, args...).Err; err != nil {
		c.log.Debug("app: ibus: call failed", "method", method, "err", err)
	}
}

func (c *ibusConn) Enable() {
	c.call("FocusIn")
}

func (c *ibusConn) Disable() {
	c.call("FocusOut")
}

func (c *ibusConn) SetSurroundingText(text string, cursor, anchor int) {
	c.lastText, c.lastCursor = text, cursor
	c.call("SetSurroundingText", makeIBusText(text),
		uint32(utf8.RuneCountInString(text[:cursor])),
		uint32(utf8.RuneCountInString(text[:anchor])))
}

func (c *ibusConn) ClearSurroundingText() {
	c.lastText, c.lastCursor = "", 0
	c.call("SetSurroundingText", makeIBusText(""), uint32(0), uint32(0))
}

func (c *ibusConn) SetTextChangeCause(input.Cause) {
	// The protocol has no change cause.
}

func (c *ibusConn) SetCursorRectangle(r f32.Rectangle) {
	if c.toScreen == nil {
		return
	}
	x, y, w, h := c.toScreen(r)
	c.call("SetCursorLocation", x, y, w, h)
}

func (c *ibusConn) Commit() {}

// ForwardKey offers a key to the input method and reports whether it
// swallowed it. The call is synchronous; the daemon answers the
// filter question directly.
func (c *ibusConn) ForwardKey(e key.Event) bool {
	if c.replaying {
		return false
	}
	var state uint32
	if e.Modifiers.Contain(key.ModShift) {
		state |= ibusShiftMask
	}
	if e.Modifiers.Contain(key.ModCtrl) {
		state |= ibusControlMask
	}
	if e.Modifiers.Contain(key.ModAlt) {
		state |= ibusMod1Mask
	}
	if e.Modifiers.Contain(key.ModSuper) {
		state |= ibusMod4Mask
	}
	if e.State == key.Release {
		state |= ibusReleaseMask
	}
	// IBus wants hardware keycodes, which are X keycodes less the
	// evdev offset.
	code := uint32(e.Code)
	if code >= 8 {
		code -= 8
	}
	var handled bool
	err := c.ic.Call(ibusContextInterface+".ProcessKeyEvent", 0,
		uint32(e.Sym), code, state).Store(&handled)
	if err != nil {
		c.log.Debug("app: ibus: ProcessKeyEvent", "err", err)
		return false
	}
	return handled
}

// signal decodes one InputContext signal into seat edits.
func (c *ibusConn) signal(sig *dbus.Signal) {
	switch sig.Name {
	case ibusContextInterface + ".CommitText":
		text, ok := argText(sig.Body, 0)
		if !ok {
			c.log.Warn("app: ibus: malformed CommitText")
			return
		}
		var b input.Batch
		b.Commit.Set = true
		b.Commit.Text = text
		c.onBatch(b)
	case ibusContextInterface + ".UpdatePreeditText",
		ibusContextInterface + ".UpdatePreeditTextWithMode":
		text, ok := argText(sig.Body, 0)
		cursor, ok2 := argUint(sig.Body, 1)
		visible, ok3 := argBool(sig.Body, 2)
		if !ok || !ok2 || !ok3 {
			c.log.Warn("app: ibus: malformed UpdatePreeditText")
			return
		}
		var b input.Batch
		b.Preedit.Set = true
		if visible {
			b.Preedit.Text = text
			pos := byteForRune(text, int(cursor))
			b.Preedit.CursorBegin = pos
			b.Preedit.CursorEnd = pos
		}
		c.onBatch(b)
	case ibusContextInterface + ".HidePreeditText":
		var b input.Batch
		b.Preedit.Set = true
		c.onBatch(b)
	case ibusContextInterface + ".DeleteSurroundingText":
		offset, ok := argInt(sig.Body, 0)
		n, ok2 := argUint(sig.Body, 1)
		if !ok || !ok2 {
			c.log.Warn("app: ibus: malformed DeleteSurroundingText")
			return
		}
		if b, ok := c.deleteSurrounding(offset, n); ok {
			c.onBatch(b)
		}
	case ibusContextInterface + ".ForwardKeyEvent":
		keyval, ok := argUint(sig.Body, 0)
		keycode, ok2 := argUint(sig.Body, 1)
		state, ok3 := argUint(sig.Body, 2)
		if !ok || !ok2 || !ok3 {
			c.log.Warn("app: ibus: malformed ForwardKeyEvent")
			return
		}
		c.replaying = true
		c.onKey(keyval, keycode, state)
		c.replaying = false
	}
}

// deleteSurrounding converts the signal's character offsets, relative
// to the cursor, into byte counts against the snapshot last pushed.
// Requests outside the snapshot are dropped.
func (c *ibusConn) deleteSurrounding(offset int32, n uint32) (input.Batch, bool) {
	text, cursor := c.lastText, c.lastCursor
	start := utf8.RuneCountInString(text[:cursor]) + int(offset)
	end := start + int(n)
	if start < 0 || end < start || end > utf8.RuneCountInString(text) {
		c.log.Debug("app: ibus: DeleteSurroundingText out of range",
			"offset", offset, "chars", n)
		return input.Batch{}, false
	}
	sb := byteForRune(text, start)
	eb := byteForRune(text, end)
	var b input.Batch
	if sb < cursor {
		b.DeleteBefore = min(eb, cursor) - sb
	}
	if eb > cursor {
		b.DeleteAfter = eb - max(sb, cursor)
	}
	return b, true
}

// byteForRune returns the byte offset of the nth rune of s, clamped.
func byteForRune(s string, n int) int {
	if n <= 0 {
		return 0
	}
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// argText reads a string or serialized IBusText argument. The wire
// form is a variant holding ("IBusText", a{sv}, s, v); the text is
// the third member.
func argText(body []interface{}, i int) (string, bool) {
	if i >= len(body) {
		return "", false
	}
	v := body[i]
	if vr, ok := v.(dbus.Variant); ok {
		v = vr.Value()
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []interface{}:
		if len(t) >= 3 {
			if s, ok := t[2].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func argUint(body []interface{}, i int) (uint32, bool) {
	if i >= len(body) {
		return 0, false
	}
	u, ok := body[i].(uint32)
	return u, ok
}

func argInt(body []interface{}, i int) (int32, bool) {
	if i >= len(body) {
		return 0, false
	}
	n, ok := body[i].(int32)
	return n, ok
}

func argBool(body []interface{}, i int) (bool, bool) {
	if i >= len(body) {
		return false, false
	}
	b, ok := body[i].(bool)
	return b, ok
}

// ibusText is an IBusText value in its D-Bus form (sa{sv}sv).
type ibusText struct {
	Name        string
	Attachments map[string]dbus.Variant
	Text        string
	AttrList    dbus.Variant
}

type ibusAttrList struct {
	Name        string
	Attachments map[string]dbus.Variant
	Attrs       []dbus.Variant
}

func makeIBusText(s string) dbus.Variant {
	return dbus.MakeVariant(ibusText{
		Name:        "IBusText",
		Attachments: map[string]dbus.Variant{},
		Text:        s,
		AttrList: dbus.MakeVariant(ibusAttrList{
			Name:        "IBusAttrList",
			Attachments: map[string]dbus.Variant{},
			Attrs:       []dbus.Variant{},
		}),
	})
}
