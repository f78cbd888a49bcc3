// SPDX-License-Identifier: Unlicense OR MIT

package compose

import (
	"testing"

	"oriel.dev/io/key"
)

func TestTableStatuses(t *testing.T) {
	table := NewTable([]Sequence{
		{Keys: []key.Sym{key.SymDeadGrave, key.SymOf('a')}, Result: "à"},
		{Keys: multi('-', '-', '-'), Result: "—"},
	})
	s := table.NewState()

	if got := s.Feed(key.SymOf('x')); got != StatusNothing {
		t.Fatalf("feed x from idle = %v, wanted Nothing", got)
	}
	if got := s.Feed(key.SymDeadGrave); got != StatusComposing {
		t.Fatalf("feed dead_grave = %v, wanted Composing", got)
	}
	// Modifiers are ignored mid-sequence.
	if got := s.Feed(key.SymShiftL); got != StatusComposing {
		t.Fatalf("feed Shift_L = %v, wanted Composing", got)
	}
	if got := s.Feed(key.SymOf('a')); got != StatusComposed {
		t.Fatalf("feed a = %v, wanted Composed", got)
	}
	buf := make([]byte, 8)
	n := s.Result(buf)
	if string(buf[:n]) != "à" {
		t.Fatalf("Result = %q, wanted à", buf[:n])
	}

	// A fresh sequence may start right after completion.
	if got := s.Feed(key.SymMultiKey); got != StatusComposing {
		t.Fatalf("feed Multi_key after compose = %v, wanted Composing", got)
	}
	if got := s.Feed(key.SymOf('z')); got != StatusCancelled {
		t.Fatalf("feed z mid-sequence = %v, wanted Cancelled", got)
	}
	// And again after a cancel.
	if got := s.Feed(key.SymDeadGrave); got != StatusComposing {
		t.Fatalf("feed dead_grave after cancel = %v, wanted Composing", got)
	}
	s.Reset()
	if got := s.Status(); got != StatusNothing {
		t.Fatalf("Status after Reset = %v, wanted Nothing", got)
	}
}

func TestResultTruncation(t *testing.T) {
	table := NewTable([]Sequence{
		{Keys: []key.Sym{key.SymDeadGrave, key.SymOf('a')}, Result: "longer than the buffer"},
	})
	s := table.NewState()
	s.Feed(key.SymDeadGrave)
	s.Feed(key.SymOf('a'))
	small := make([]byte, 4)
	n := s.Result(small)
	if n != len("longer than the buffer") {
		t.Fatalf("Result with small buffer = %d, wanted full length %d", n, len("longer than the buffer"))
	}
	big := make([]byte, n)
	if m := s.Result(big); m != n || string(big) != "longer than the buffer" {
		t.Fatalf("Result with regrown buffer = %q (%d)", big[:m], m)
	}
}

func TestBuiltinTable(t *testing.T) {
	table := Builtin()
	if table.Len() == 0 {
		t.Fatal("builtin table is empty")
	}
	tests := []struct {
		keys []key.Sym
		want string
	}{
		{[]key.Sym{key.SymDeadGrave, key.SymOf('a')}, "à"},
		{[]key.Sym{key.SymDeadAcute, key.SymOf('E')}, "É"},
		{[]key.Sym{key.SymDeadTilde, key.SymOf('n')}, "ñ"},
		{[]key.Sym{key.SymDeadDiaeresis, key.SymOf('u')}, "ü"},
		{[]key.Sym{key.SymDeadCedilla, key.SymOf('c')}, "ç"},
		{[]key.Sym{key.SymDeadCaron, key.SymOf('s')}, "š"},
		{[]key.Sym{key.SymDeadAbovering, key.SymOf('a')}, "å"},
		{[]key.Sym{key.SymDeadGrave, key.SymOf(' ')}, "`"},
		{[]key.Sym{key.SymDeadGrave, key.SymDeadGrave}, "`"},
		{multi('\'', 'e'), "é"},
		{multi('o', 'a'), "å"},
		{multi('a', 'e'), "æ"},
		{multi('e', '='), "€"},
		{multi('.', '.'), "…"},
	}
	for _, tst := range tests {
		s := table.NewState()
		var status Status
		for _, sym := range tst.keys {
			status = s.Feed(sym)
		}
		if status != StatusComposed {
			t.Errorf("sequence %v ended with %v, wanted Composed", tst.keys, status)
			continue
		}
		buf := make([]byte, 16)
		n := s.Result(buf)
		if got := string(buf[:n]); got != tst.want {
			t.Errorf("sequence %v = %q, wanted %q", tst.keys, got, tst.want)
		}
	}
}

func TestLocaleTable(t *testing.T) {
	for _, locale := range []string{"C", "POSIX", "en_US.UTF-8", "de_DE", "fr_FR.UTF-8@euro", "pt-BR"} {
		if LocaleTable(locale) == nil {
			t.Errorf("LocaleTable(%q) = nil, wanted a table", locale)
		}
	}
	for _, locale := range []string{"ja_JP.UTF-8", "zh_CN", "ko_KR.UTF-8"} {
		if LocaleTable(locale) != nil {
			t.Errorf("LocaleTable(%q) != nil, wanted none", locale)
		}
	}
}

func TestEnvTable(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")
	t.Setenv("LC_CTYPE", "")
	t.Setenv("LANG", "")
	if EnvTable() == nil {
		t.Fatal("EnvTable() = nil for en_US.UTF-8")
	}
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "ja_JP.UTF-8")
	if EnvTable() != nil {
		t.Fatal("EnvTable() != nil for ja_JP.UTF-8")
	}
	t.Setenv("LC_CTYPE", "")
	if EnvTable() == nil {
		t.Fatal("EnvTable() = nil for the C fallback")
	}
}
