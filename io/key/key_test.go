// SPDX-License-Identifier: Unlicense OR MIT

package key

import (
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		sym  Sym
		name Name
		text string
	}{
		{SymOf('a'), "A", "a"},
		{SymOf('A'), "A", "A"},
		{SymOf('!'), "!", "!"},
		{SymOf('€'), "€", "€"},
		{SymOf('ø'), "Ø", "ø"},
		{SymOf(' '), NameSpace, " "},
		{SymReturn, NameReturn, ""},
		{SymKPEnter, NameEnter, ""},
		{SymBackSpace, NameDeleteBackward, ""},
		{SymDelete, NameDeleteForward, ""},
		{SymEscape, NameEscape, ""},
		{SymShiftL, NameShift, ""},
		{SymDeadGrave, NameDeadKey, ""},
		{SymDeadDiaeresis, NameDeadKey, ""},
		{SymMultiKey, NameCompose, ""},
		{SymNone, NameUnidentified, ""},
		{0xfffe, NameUnidentified, ""},
	}
	for _, tst := range tests {
		name, text := Lookup(tst.sym)
		if name != tst.name || text != tst.text {
			t.Errorf("Lookup(%#x) = %q, %q, wanted %q, %q", uint32(tst.sym), name, text, tst.name, tst.text)
		}
	}
}

func TestSymRune(t *testing.T) {
	for _, r := range []rune{'a', 'Z', '0', ' ', 'é', 'ß', '€', '漢'} {
		got, ok := SymOf(r).Rune()
		if !ok || got != r {
			t.Errorf("SymOf(%q).Rune() = %q, %v", r, got, ok)
		}
	}
	for _, s := range []Sym{SymReturn, SymEscape, SymDeadGrave, SymShiftL, SymNone} {
		if r, ok := s.Rune(); ok {
			t.Errorf("Sym(%#x).Rune() = %q, wanted no rune", uint32(s), r)
		}
	}
}

func TestSymClasses(t *testing.T) {
	for _, s := range []Sym{SymDeadGrave, SymDeadAcute, SymDeadGreek} {
		if !s.IsDead() {
			t.Errorf("Sym(%#x).IsDead() = false", uint32(s))
		}
	}
	for _, s := range []Sym{SymMultiKey, SymOf('a'), SymShiftL} {
		if s.IsDead() {
			t.Errorf("Sym(%#x).IsDead() = true", uint32(s))
		}
	}
	for _, s := range []Sym{SymShiftL, SymControlR, SymISOLevel3Shift} {
		if !s.IsModifier() {
			t.Errorf("Sym(%#x).IsModifier() = false", uint32(s))
		}
	}
	if SymOf('a').IsModifier() {
		t.Error("SymOf('a').IsModifier() = true")
	}
}

func TestSymLocation(t *testing.T) {
	tests := []struct {
		sym Sym
		loc Location
	}{
		{SymShiftL, LocationLeft},
		{SymShiftR, LocationRight},
		{SymControlL, LocationLeft},
		{SymKPEnter, LocationNumpad},
		{0xffb0, LocationNumpad},
		{SymOf('a'), LocationStandard},
		{SymReturn, LocationStandard},
	}
	for _, tst := range tests {
		if got := tst.sym.Location(); got != tst.loc {
			t.Errorf("Sym(%#x).Location() = %v, wanted %v", uint32(tst.sym), got, tst.loc)
		}
	}
}

func TestModifiersContain(t *testing.T) {
	m := ModCtrl | ModShift
	if !m.Contain(ModShift) || !m.Contain(ModCtrl|ModShift) {
		t.Errorf("%s does not contain its own modifiers", m)
	}
	if m.Contain(ModAlt) || m.Contain(ModCtrl|ModAlt) {
		t.Errorf("%s contains modifiers it should not", m)
	}
}

func TestModifiersString(t *testing.T) {
	tests := []struct {
		m    Modifiers
		want string
	}{
		{0, ""},
		{ModCtrl, "Ctrl"},
		{ModCtrl | ModShift, "Ctrl-Shift"},
		{ModShift | ModAlt | ModSuper, "Shift-Alt-Super"},
	}
	for _, tst := range tests {
		if got := tst.m.String(); got != tst.want {
			t.Errorf("Modifiers.String() = %q, wanted %q", got, tst.want)
		}
	}
}
