// SPDX-License-Identifier: Unlicense OR MIT

package keymap

import (
	"testing"

	"oriel.dev/io/key"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		code key.Code
		mods uint32
		sym  key.Sym
	}{
		{"letter", 30, 0, key.SymOf('a')},
		{"letter shifted", 30, MaskShift, key.SymOf('A')},
		{"letter capslock", 30, MaskLock, key.SymOf('A')},
		{"letter capslock shifted", 30, MaskLock | MaskShift, key.SymOf('a')},
		{"digit", 3, 0, key.SymOf('2')},
		{"digit shifted", 3, MaskShift, key.SymOf('@')},
		{"digit capslock", 3, MaskLock, key.SymOf('2')},
		{"space", 57, 0, key.SymOf(' ')},
		{"grave", 41, 0, key.SymOf('`')},
		{"enter", 28, 0, key.SymReturn},
		{"backspace", 14, MaskShift, key.SymBackSpace},
		{"menu", 127, 0, key.SymMultiKey},
		{"f5", 63, 0, key.SymF1 + 4},
		{"unknown", 240, 0, key.SymNone},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := US()
			r.UpdateModifiers(key.ModifierState{Depressed: test.mods})
			if got := r.Sym(test.code); got != test.sym {
				t.Errorf("Sym(%d) = %#x, want %#x", test.code, got, test.sym)
			}
		})
	}
}

func TestModifiers(t *testing.T) {
	r := US()
	state := key.ModifierState{Depressed: MaskControl, Locked: MaskLock}
	r.UpdateModifiers(state)
	if got := r.Modifiers(); got != key.ModCtrl {
		t.Errorf("Modifiers() = %v, want %v", got, key.ModCtrl)
	}
	// Applying the same state again must not change the result.
	r.UpdateModifiers(state)
	if got := r.Modifiers(); got != key.ModCtrl {
		t.Errorf("Modifiers() after replay = %v, want %v", got, key.ModCtrl)
	}
	r.UpdateModifiers(key.ModifierState{Latched: MaskShift, Depressed: MaskMod1 | MaskMod4})
	want := key.ModShift | key.ModAlt | key.ModSuper
	if got := r.Modifiers(); got != want {
		t.Errorf("Modifiers() = %v, want %v", got, want)
	}
}

func TestRepeats(t *testing.T) {
	r := US()
	tests := []struct {
		name   string
		code   key.Code
		repeat bool
	}{
		{"letter", 30, true},
		{"backspace", 14, true},
		{"left shift", 42, false},
		{"right ctrl", 97, false},
		{"capslock", 58, false},
		{"arrow", 105, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := r.Repeats(test.code); got != test.repeat {
				t.Errorf("Repeats(%d) = %v, want %v", test.code, got, test.repeat)
			}
		})
	}
}
