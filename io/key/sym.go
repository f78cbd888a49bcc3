// SPDX-License-Identifier: Unlicense OR MIT

package key

import "unicode"

// Sym is a keyboard symbol: the meaning a layout assigns to a physical
// key under a particular modifier state. The value space is the X
// keysym encoding, which Wayland keymaps share. Character symbols
// correspond to their Unicode codepoint, offset for codepoints beyond
// Latin-1.
type Sym uint32

// SymNone is the zero Sym, reported for keys the layout cannot map.
const SymNone Sym = 0

// symUnicodeOffset distinguishes direct Unicode symbols from the
// legacy function key space.
const symUnicodeOffset = 0x01000000

const (
	SymBackSpace Sym = 0xff08
	SymTab       Sym = 0xff09
	SymReturn    Sym = 0xff0d
	SymEscape    Sym = 0xff1b
	SymMultiKey  Sym = 0xff20
	SymHome      Sym = 0xff50
	SymLeft      Sym = 0xff51
	SymUp        Sym = 0xff52
	SymRight     Sym = 0xff53
	SymDown      Sym = 0xff54
	SymPageUp    Sym = 0xff55
	SymPageDown  Sym = 0xff56
	SymEnd       Sym = 0xff57
	SymInsert    Sym = 0xff63
	SymKPEnter   Sym = 0xff8d
	SymF1        Sym = 0xffbe
	SymF12       Sym = 0xffc9
	SymShiftL    Sym = 0xffe1
	SymShiftR    Sym = 0xffe2
	SymControlL  Sym = 0xffe3
	SymControlR  Sym = 0xffe4
	SymCapsLock  Sym = 0xffe5
	SymMetaL     Sym = 0xffe7
	SymMetaR     Sym = 0xffe8
	SymAltL      Sym = 0xffe9
	SymAltR      Sym = 0xffea
	SymSuperL    Sym = 0xffeb
	SymSuperR    Sym = 0xffec
	SymDelete    Sym = 0xffff

	// SymISOLevel3Shift selects the third symbol level, AltGr on
	// most layouts.
	SymISOLevel3Shift Sym = 0xfe03
)

// Dead key symbols. A dead key inserts no text; it begins or extends a
// composition with the key pressed after it.
const (
	SymDeadGrave       Sym = 0xfe50
	SymDeadAcute       Sym = 0xfe51
	SymDeadCircumflex  Sym = 0xfe52
	SymDeadTilde       Sym = 0xfe53
	SymDeadMacron      Sym = 0xfe54
	SymDeadBreve       Sym = 0xfe55
	SymDeadAbovedot    Sym = 0xfe56
	SymDeadDiaeresis   Sym = 0xfe57
	SymDeadAbovering   Sym = 0xfe58
	SymDeadDoubleacute Sym = 0xfe59
	SymDeadCaron       Sym = 0xfe5a
	SymDeadCedilla     Sym = 0xfe5b
	SymDeadOgonek      Sym = 0xfe5c
	SymDeadIota        Sym = 0xfe5d
	SymDeadBelowdot    Sym = 0xfe60
	SymDeadHook        Sym = 0xfe61
	SymDeadHorn        Sym = 0xfe62
	SymDeadStroke      Sym = 0xfe63
	SymDeadCurrency    Sym = 0xfe6f
	SymDeadGreek       Sym = 0xfe8c
)

var symNames = map[Sym]Name{
	SymBackSpace: NameDeleteBackward,
	SymTab:       NameTab,
	SymReturn:    NameReturn,
	SymEscape:    NameEscape,
	SymHome:      NameHome,
	SymLeft:      NameLeftArrow,
	SymUp:        NameUpArrow,
	SymRight:     NameRightArrow,
	SymDown:      NameDownArrow,
	SymPageUp:    NamePageUp,
	SymPageDown:  NamePageDown,
	SymEnd:       NameEnd,
	SymKPEnter:   NameEnter,
	SymShiftL:    NameShift,
	SymShiftR:    NameShift,
	SymControlL:  NameCtrl,
	SymControlR:  NameCtrl,
	SymAltL:      NameAlt,
	SymAltR:      NameAlt,
	SymSuperL:    NameSuper,
	SymSuperR:    NameSuper,
	SymDelete:    NameDeleteForward,

	0xffbe: NameF1,
	0xffbf: NameF2,
	0xffc0: NameF3,
	0xffc1: NameF4,
	0xffc2: NameF5,
	0xffc3: NameF6,
	0xffc4: NameF7,
	0xffc5: NameF8,
	0xffc6: NameF9,
	0xffc7: NameF10,
	0xffc8: NameF11,
	0xffc9: NameF12,
}

// SymOf returns the symbol for the character r.
func SymOf(r rune) Sym {
	if r <= 0xff {
		return Sym(r)
	}
	return Sym(symUnicodeOffset | uint32(r))
}

// Rune returns the character a press of s inserts, if any.
func (s Sym) Rune() (rune, bool) {
	switch {
	case 0x20 <= s && s <= 0x7e, 0xa0 <= s && s <= 0xff:
		return rune(s), true
	case s&0xff000000 == symUnicodeOffset:
		return rune(s &^ symUnicodeOffset), true
	case 0xffb0 <= s && s <= 0xffb9:
		// Keypad digits.
		return '0' + rune(s-0xffb0), true
	}
	switch s {
	case 0xffaa:
		return '*', true
	case 0xffab:
		return '+', true
	case 0xffad:
		return '-', true
	case 0xffae:
		return '.', true
	case 0xffaf:
		return '/', true
	}
	return 0, false
}

// IsDead reports whether s is a dead key.
func (s Sym) IsDead() bool {
	return 0xfe50 <= s && s <= 0xfe93
}

// IsModifier reports whether s is a modifier key.
func (s Sym) IsModifier() bool {
	return 0xffe1 <= s && s <= 0xffee || s == SymISOLevel3Shift
}

// Location returns the keyboard location of s.
func (s Sym) Location() Location {
	switch s {
	case SymShiftL, SymControlL, SymAltL, SymSuperL, SymMetaL:
		return LocationLeft
	case SymShiftR, SymControlR, SymAltR, SymSuperR, SymMetaR:
		return LocationRight
	}
	if 0xff80 <= s && s <= 0xffbd {
		return LocationNumpad
	}
	return LocationStandard
}

// Lookup returns the logical name for s along with the text a press of
// it inserts. It is the layout-independent half of symbol resolution;
// Resolver implementations delegate to it once a symbol is known.
func Lookup(s Sym) (Name, string) {
	switch {
	case s == SymNone:
		return NameUnidentified, ""
	case s.IsDead():
		return NameDeadKey, ""
	case s == SymMultiKey:
		return NameCompose, ""
	}
	if n, ok := symNames[s]; ok {
		return n, ""
	}
	if r, ok := s.Rune(); ok {
		if r == ' ' {
			return NameSpace, " "
		}
		return Name(string(unicode.ToUpper(r))), string(r)
	}
	return NameUnidentified, ""
}
