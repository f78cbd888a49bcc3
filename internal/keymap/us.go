// SPDX-License-Identifier: Unlicense OR MIT

// Package keymap provides a layout resolver that needs no platform
// keymap: the standard US layout over evdev keycodes. The Wayland
// backend uses it until a compiled keymap is negotiated, and it backs
// the headless backend and tests.
package keymap

import (
	"unicode"

	"oriel.dev/io/key"
)

// Modifier mask bits, following the X11 encoding.
const (
	MaskShift   = 1 << 0
	MaskLock    = 1 << 1
	MaskControl = 1 << 2
	MaskMod1    = 1 << 3
	MaskMod4    = 1 << 6
)

// usChars maps evdev keycodes to their unshifted and shifted
// characters.
var usChars = map[key.Code][2]rune{
	2:  {'1', '!'},
	3:  {'2', '@'},
	4:  {'3', '#'},
	5:  {'4', '$'},
	6:  {'5', '%'},
	7:  {'6', '^'},
	8:  {'7', '&'},
	9:  {'8', '*'},
	10: {'9', '('},
	11: {'0', ')'},
	12: {'-', '_'},
	13: {'=', '+'},
	16: {'q', 'Q'},
	17: {'w', 'W'},
	18: {'e', 'E'},
	19: {'r', 'R'},
	20: {'t', 'T'},
	21: {'y', 'Y'},
	22: {'u', 'U'},
	23: {'i', 'I'},
	24: {'o', 'O'},
	25: {'p', 'P'},
	26: {'[', '{'},
	27: {']', '}'},
	30: {'a', 'A'},
	31: {'s', 'S'},
	32: {'d', 'D'},
	33: {'f', 'F'},
	34: {'g', 'G'},
	35: {'h', 'H'},
	36: {'j', 'J'},
	37: {'k', 'K'},
	38: {'l', 'L'},
	39: {';', ':'},
	40: {'\'', '"'},
	41: {'`', '~'},
	43: {'\\', '|'},
	44: {'z', 'Z'},
	45: {'x', 'X'},
	46: {'c', 'C'},
	47: {'v', 'V'},
	48: {'b', 'B'},
	49: {'n', 'N'},
	50: {'m', 'M'},
	51: {',', '<'},
	52: {'.', '>'},
	53: {'/', '?'},
	57: {' ', ' '},
}

// usNamed maps evdev keycodes to function key symbols.
var usNamed = map[key.Code]key.Sym{
	1:   key.SymEscape,
	14:  key.SymBackSpace,
	15:  key.SymTab,
	28:  key.SymReturn,
	29:  key.SymControlL,
	42:  key.SymShiftL,
	54:  key.SymShiftR,
	56:  key.SymAltL,
	58:  key.SymCapsLock,
	59:  key.SymF1,
	60:  key.SymF1 + 1,
	61:  key.SymF1 + 2,
	62:  key.SymF1 + 3,
	63:  key.SymF1 + 4,
	64:  key.SymF1 + 5,
	65:  key.SymF1 + 6,
	66:  key.SymF1 + 7,
	67:  key.SymF1 + 8,
	68:  key.SymF1 + 9,
	87:  key.SymF1 + 10,
	88:  key.SymF12,
	96:  key.SymKPEnter,
	97:  key.SymControlR,
	100: key.SymAltR,
	102: key.SymHome,
	103: key.SymUp,
	104: key.SymPageUp,
	105: key.SymLeft,
	106: key.SymRight,
	107: key.SymEnd,
	108: key.SymDown,
	109: key.SymPageDown,
	110: key.SymInsert,
	111: key.SymDelete,
	125: key.SymSuperL,
	126: key.SymSuperR,
	127: key.SymMultiKey,
}

type resolver struct {
	mods key.Modifiers
	caps bool
}

// US returns a resolver for the standard US layout.
func US() key.Resolver {
	return &resolver{}
}

func (r *resolver) Sym(code key.Code) key.Sym {
	if sym, ok := usNamed[code]; ok {
		return sym
	}
	pair, ok := usChars[code]
	if !ok {
		return key.SymNone
	}
	shift := r.mods.Contain(key.ModShift)
	if unicode.IsLetter(pair[0]) {
		shift = shift != r.caps
	}
	if shift {
		return key.SymOf(pair[1])
	}
	return key.SymOf(pair[0])
}

func (r *resolver) Lookup(sym key.Sym) (key.Name, string) {
	return key.Lookup(sym)
}

func (r *resolver) UpdateModifiers(state key.ModifierState) {
	effective := state.Depressed | state.Latched | state.Locked
	var mods key.Modifiers
	if effective&MaskShift != 0 {
		mods |= key.ModShift
	}
	if effective&MaskControl != 0 {
		mods |= key.ModCtrl
	}
	if effective&MaskMod1 != 0 {
		mods |= key.ModAlt
	}
	if effective&MaskMod4 != 0 {
		mods |= key.ModSuper
	}
	r.mods = mods
	r.caps = effective&MaskLock != 0
}

func (r *resolver) Modifiers() key.Modifiers {
	return r.mods
}

func (r *resolver) Repeats(code key.Code) bool {
	sym, ok := usNamed[code]
	if !ok {
		return true
	}
	return !sym.IsModifier()
}
