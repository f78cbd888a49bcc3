// SPDX-License-Identifier: Unlicense OR MIT

// Package key implements key events and the keyboard symbol space.
package key

import (
	"strings"
)

// An Event is generated when a key is pressed or released.
type Event struct {
	// Name of the key.
	Name Name
	// Text is the text inserted by a press of the key, taking the
	// active layout and modifiers into account. It is empty for keys
	// that insert no text, such as named keys and dead keys.
	Text string
	// Code identifies the physical key, independent of layout.
	Code Code
	// Sym is the layout-resolved keyboard symbol for the key, or
	// SymNone when the platform could not resolve one.
	Sym Sym
	// Location distinguishes keys that appear more than once on
	// a keyboard.
	Location Location
	// Modifiers is the set of active modifiers when the key was pressed.
	Modifiers Modifiers
	// State is the state of the key when the event was fired.
	State State
	// Repeat is set for events synthesized by holding a key down.
	Repeat bool
	// IsComposing is set when the key takes part in an active
	// composition. Handlers should not treat such presses as
	// shortcuts.
	IsComposing bool
}

// A FocusEvent is generated when a window gains or loses
// keyboard focus.
type FocusEvent struct {
	Focus bool
}

// Code identifies a physical key. Its values are platform scancodes:
// evdev codes on Wayland, keycodes on X11 and virtual-key codes on
// Windows.
type Code uint32

// State is the state of a key during an event.
type State uint8

const (
	// Press is the state of a pressed key.
	Press State = iota
	// Release is the state of a key that has been released.
	Release
)

// Location is the position of a key that occurs more than
// once on a keyboard.
type Location uint8

const (
	LocationStandard Location = iota
	LocationLeft
	LocationRight
	LocationNumpad
)

// Modifiers
type Modifiers uint32

const (
	// ModCtrl is the ctrl modifier key.
	ModCtrl Modifiers = 1 << iota
	// ModShift is the shift modifier key.
	ModShift
	// ModAlt is the alt modifier key.
	ModAlt
	// ModSuper is the "logo" modifier key, often
	// represented by a Windows logo.
	ModSuper
)

// ModifierState is a platform report of the raw modifier and layout
// group state, in the platform's own mask encoding.
type ModifierState struct {
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

// Resolver translates physical keys into symbols and logical names
// for the active layout.
//
// Resolution never fails: keys the layout cannot map come back as
// SymNone and NameUnidentified.
type Resolver interface {
	// Sym resolves a physical key to its symbol under the current
	// modifier state.
	Sym(Code) Sym
	// Lookup returns the logical name for a symbol along with the
	// text a press of it inserts.
	Lookup(Sym) (Name, string)
	// UpdateModifiers replaces the modifier and group state. It is
	// idempotent and called once per platform notification.
	UpdateModifiers(ModifierState)
	// Modifiers returns the effective modifier set.
	Modifiers() Modifiers
	// Repeats reports whether a key repeats while held down.
	Repeats(Code) bool
}

// Name is the identifier for a keyboard key.
//
// For letters, the upper case form is used, via unicode.ToUpper.
// The shift modifier is taken into account, all other
// modifiers are ignored. For example, the "shift-1" and "ctrl-shift-1"
// combinations both give the Name "!" with the US keyboard layout.
type Name string

const (
	// Names for special keys.
	NameLeftArrow      Name = "←"
	NameRightArrow     Name = "→"
	NameUpArrow        Name = "↑"
	NameDownArrow      Name = "↓"
	NameReturn         Name = "⏎"
	NameEnter          Name = "⌤"
	NameEscape         Name = "⎋"
	NameHome           Name = "⇱"
	NameEnd            Name = "⇲"
	NameDeleteBackward Name = "⌫"
	NameDeleteForward  Name = "⌦"
	NamePageUp         Name = "⇞"
	NamePageDown       Name = "⇟"
	NameTab            Name = "Tab"
	NameSpace          Name = "Space"
	NameCtrl           Name = "Ctrl"
	NameShift          Name = "Shift"
	NameAlt            Name = "Alt"
	NameSuper          Name = "Super"
	NameF1             Name = "F1"
	NameF2             Name = "F2"
	NameF3             Name = "F3"
	NameF4             Name = "F4"
	NameF5             Name = "F5"
	NameF6             Name = "F6"
	NameF7             Name = "F7"
	NameF8             Name = "F8"
	NameF9             Name = "F9"
	NameF10            Name = "F10"
	NameF11            Name = "F11"
	NameF12            Name = "F12"

	// NameDeadKey identifies dead keys, which insert no text
	// themselves but modify a following key.
	NameDeadKey Name = "Dead"
	// NameCompose identifies the compose key.
	NameCompose Name = "Compose"
	// NameUnidentified identifies keys the active layout has no
	// symbol for.
	NameUnidentified Name = "Unidentified"
)

// Contain reports whether m contains all modifiers
// in m2.
func (m Modifiers) Contain(m2 Modifiers) bool {
	return m&m2 == m2
}

func (m Modifiers) String() string {
	var strs []string
	if m.Contain(ModCtrl) {
		strs = append(strs, string(NameCtrl))
	}
	if m.Contain(ModShift) {
		strs = append(strs, string(NameShift))
	}
	if m.Contain(ModAlt) {
		strs = append(strs, string(NameAlt))
	}
	if m.Contain(ModSuper) {
		strs = append(strs, string(NameSuper))
	}
	return strings.Join(strs, "-")
}

func (s State) String() string {
	switch s {
	case Press:
		return "Press"
	case Release:
		return "Release"
	default:
		panic("invalid State")
	}
}

func (Event) ImplementsEvent()      {}
func (FocusEvent) ImplementsEvent() {}
