// SPDX-License-Identifier: Unlicense OR MIT

package compose

import (
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"oriel.dev/io/key"
)

// composeMarker is the preview glyph for a pending compose key press.
const composeMarker = "·"

// placeholderBase carries combining marks that have no spacing form.
const placeholderBase = "◌"

// deadCombining maps dead keys to their combining mark.
var deadCombining = map[key.Sym]rune{
	key.SymDeadGrave:       0x0300,
	key.SymDeadAcute:       0x0301,
	key.SymDeadCircumflex:  0x0302,
	key.SymDeadTilde:       0x0303,
	key.SymDeadMacron:      0x0304,
	key.SymDeadBreve:       0x0306,
	key.SymDeadAbovedot:    0x0307,
	key.SymDeadDiaeresis:   0x0308,
	key.SymDeadAbovering:   0x030a,
	key.SymDeadDoubleacute: 0x030b,
	key.SymDeadCaron:       0x030c,
	key.SymDeadHook:        0x0309,
	key.SymDeadHorn:        0x031b,
	key.SymDeadBelowdot:    0x0323,
	key.SymDeadCedilla:     0x0327,
	key.SymDeadOgonek:      0x0328,
	key.SymDeadStroke:      0x0335,
}

// deadSpacing maps dead keys to the standalone glyph shown while a
// sequence is pending. Dead keys absent from this table display as
// their combining mark on a placeholder base.
var deadSpacing = map[key.Sym]string{
	key.SymDeadGrave:       "`",
	key.SymDeadAcute:       "´",
	key.SymDeadCircumflex:  "^",
	key.SymDeadTilde:       "~",
	key.SymDeadMacron:      "¯",
	key.SymDeadBreve:       "˘",
	key.SymDeadAbovedot:    "˙",
	key.SymDeadDiaeresis:   "¨",
	key.SymDeadAbovering:   "˚",
	key.SymDeadDoubleacute: "˝",
	key.SymDeadCaron:       "ˇ",
	key.SymDeadCedilla:     "¸",
	key.SymDeadOgonek:      "˛",
	key.SymDeadIota:        "ͺ",
	key.SymDeadCurrency:    "¤",
}

// multiMarks maps the ASCII spelling of an accent in Multi_key
// sequences to its combining mark.
var multiMarks = map[rune]rune{
	'`':  0x0300,
	'\'': 0x0301,
	'^':  0x0302,
	'~':  0x0303,
	'-':  0x0304,
	'"':  0x0308,
	'o':  0x030a,
	'v':  0x030c,
	',':  0x0327,
}

// multiSpecials are Multi_key sequences that are not accent
// spellings.
var multiSpecials = []Sequence{
	{Keys: multi('a', 'e'), Result: "æ"},
	{Keys: multi('A', 'E'), Result: "Æ"},
	{Keys: multi('s', 's'), Result: "ß"},
	{Keys: multi('/', 'o'), Result: "ø"},
	{Keys: multi('/', 'O'), Result: "Ø"},
	{Keys: multi('o', 'o'), Result: "°"},
	{Keys: multi('o', 'c'), Result: "©"},
	{Keys: multi('o', 'r'), Result: "®"},
	{Keys: multi('t', 'm'), Result: "™"},
	{Keys: multi('<', '<'), Result: "«"},
	{Keys: multi('>', '>'), Result: "»"},
	{Keys: multi('e', '='), Result: "€"},
	{Keys: multi('|', 'c'), Result: "¢"},
	{Keys: multi('-', 'L'), Result: "£"},
	{Keys: multi('+', '-'), Result: "±"},
	{Keys: multi('x', 'x'), Result: "×"},
	{Keys: multi('m', 'u'), Result: "µ"},
	{Keys: multi('1', '2'), Result: "½"},
	{Keys: multi('1', '4'), Result: "¼"},
	{Keys: multi('3', '4'), Result: "¾"},
	{Keys: multi('.', '.'), Result: "…"},
	{Keys: multi('!', '!'), Result: "¡"},
	{Keys: multi('?', '?'), Result: "¿"},
	{Keys: multi('-', '>'), Result: "→"},
	{Keys: multi('<', '-'), Result: "←"},
	{Keys: multi('-', '-', '.'), Result: "–"},
	{Keys: multi('-', '-', '-'), Result: "—"},
}

func multi(chars ...rune) []key.Sym {
	keys := make([]key.Sym, 0, len(chars)+1)
	keys = append(keys, key.SymMultiKey)
	for _, r := range chars {
		keys = append(keys, key.SymOf(r))
	}
	return keys
}

// latinBases are the characters tried against each combining mark
// when deriving accented sequences.
const latinBases = "aAcCeEgGiIlLnNoOrRsStTuUwWyYzZ"

// Builtin returns the built-in Latin table: dead key and Multi_key
// sequences for every precomposed form the bases above have.
var Builtin = sync.OnceValue(func() *Table {
	return NewTable(builtinSequences())
})

func builtinSequences() []Sequence {
	var seqs []Sequence
	for sym, comb := range deadCombining {
		if sp, ok := deadSpacing[sym]; ok {
			// The dead key followed by space, or doubled,
			// commits its spacing glyph.
			seqs = append(seqs,
				Sequence{Keys: []key.Sym{sym, key.SymOf(' ')}, Result: sp},
				Sequence{Keys: []key.Sym{sym, sym}, Result: sp},
			)
		}
		for _, base := range latinBases {
			if composed, ok := precomposed(base, comb); ok {
				seqs = append(seqs, Sequence{
					Keys:   []key.Sym{sym, key.SymOf(base)},
					Result: composed,
				})
			}
		}
	}
	for mark, comb := range multiMarks {
		for _, base := range latinBases {
			if composed, ok := precomposed(base, comb); ok {
				seqs = append(seqs, Sequence{
					Keys:   multi(mark, base),
					Result: composed,
				})
			}
		}
	}
	return append(seqs, multiSpecials...)
}

// precomposed combines base and a combining mark into a single
// precomposed character, if one exists.
func precomposed(base, comb rune) (string, bool) {
	composed := norm.NFC.String(string(base) + string(comb))
	if utf8.RuneCountInString(composed) != 1 {
		return "", false
	}
	return composed, true
}

// displayForm returns the preview glyph for a pending symbol, or ""
// for symbols with no visible form.
func displayForm(sym key.Sym) string {
	if !sym.IsDead() {
		if r, ok := sym.Rune(); ok {
			return string(r)
		}
		return ""
	}
	if s, ok := deadSpacing[sym]; ok {
		return s
	}
	if c, ok := deadCombining[sym]; ok {
		return placeholderBase + string(c)
	}
	return ""
}
