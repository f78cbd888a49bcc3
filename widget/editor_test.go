// SPDX-License-Identifier: Unlicense OR MIT

package widget

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/math/fixed"

	"oriel.dev/f32"
	"oriel.dev/io/ime"
)

// newTestEditor returns an editor with an 8x16 pixel cell at the
// given width.
func newTestEditor(text string, width float32) *Editor {
	e := new(Editor)
	e.Metrics = Metrics{Advance: fixed.I(8), Ascent: fixed.I(12), Descent: fixed.I(4)}
	e.SetBounds(f32.Rect(0, 0, width, 256))
	e.SetText(text)
	return e
}

func TestLineRange(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width float32
		off   int
		aff   ime.Affinity
		want  ime.Range
	}{
		{"single line", "abc", 64, 1, ime.Downstream, ime.Range{Start: 0, End: 3}},
		{"wrapped first", "abcdefghij", 64, 3, ime.Downstream, ime.Range{Start: 0, End: 8}},
		{"wrap upstream", "abcdefghij", 64, 8, ime.Upstream, ime.Range{Start: 0, End: 8}},
		{"wrap downstream", "abcdefghij", 64, 8, ime.Downstream, ime.Range{Start: 8, End: 10}},
		{"wrapped last", "abcdefghij", 64, 10, ime.Downstream, ime.Range{Start: 8, End: 10}},
		{"before hard break", "ab\ncd", 64, 2, ime.Downstream, ime.Range{Start: 0, End: 2}},
		{"after hard break", "ab\ncd", 64, 3, ime.Downstream, ime.Range{Start: 3, End: 5}},
		{"crlf break", "ab\r\ncd", 64, 2, ime.Downstream, ime.Range{Start: 0, End: 2}},
		{"after crlf", "ab\r\ncd", 64, 4, ime.Downstream, ime.Range{Start: 4, End: 6}},
		{"trailing break", "ab\n", 64, 3, ime.Downstream, ime.Range{Start: 3, End: 3}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEditor(test.text, test.width)
			got := e.LineRange(test.off, test.aff)
			if got != test.want {
				t.Errorf("got %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestSoftWrapElements(t *testing.T) {
	// Eight columns. The emoji is two cells wide and does not fit
	// after seven narrow cells, so it wraps as a whole.
	e := newTestEditor("aaaaaaa\U0001f600x", 64)
	if got, want := e.LineRange(0, ime.Downstream), (ime.Range{Start: 0, End: 7}); got != want {
		t.Errorf("first line %+v, want %+v", got, want)
	}
	if got, want := e.LineRange(7, ime.Downstream), (ime.Range{Start: 7, End: 12}); got != want {
		t.Errorf("second line %+v, want %+v", got, want)
	}
	if !e.IsBoundary(7) {
		t.Error("wrap offset is not an element boundary")
	}
	if e.IsBoundary(9) {
		t.Error("offset inside a wrapped element reported as boundary")
	}
}

func TestWideElements(t *testing.T) {
	// Four columns of ideographs at two cells each.
	e := newTestEditor("你好abc", 32)
	if got, want := e.LineRange(0, ime.Downstream), (ime.Range{Start: 0, End: 6}); got != want {
		t.Errorf("first line %+v, want %+v", got, want)
	}
	if got := e.Caret(3).Pos; got != f32.Pt(16, 12) {
		t.Errorf("caret after wide element at %v, want (16,12)", got)
	}
	if got := e.Caret(6).Pos; got != f32.Pt(0, 28) {
		t.Errorf("caret at wrap at %v, want (0,28)", got)
	}
	got, hit := e.HitTest(f32.Pt(20, 8))
	if got != 3 || !hit {
		t.Errorf("hit inside wide element at %d, %v, want 3, true", got, hit)
	}
}

func TestIsBoundary(t *testing.T) {
	e := newTestEditor("aéb\r\ncd", 256)
	want := []bool{true, true, false, false, true, true, false, true, true, true}
	for off, w := range want {
		if got := e.IsBoundary(off); got != w {
			t.Errorf("IsBoundary(%d) = %v, want %v", off, got, w)
		}
	}
	if e.IsBoundary(-1) || e.IsBoundary(len(want)) {
		t.Error("out of range offset reported as boundary")
	}
}

func TestCaretGeometry(t *testing.T) {
	e := newTestEditor("ab\ncd", 80)
	e.SetBounds(f32.Rect(10, 20, 90, 220))
	tests := []struct {
		off  int
		want f32.Point
	}{
		{0, f32.Pt(10, 32)},
		{1, f32.Pt(18, 32)},
		{2, f32.Pt(26, 32)},
		{3, f32.Pt(10, 48)},
		{5, f32.Pt(26, 48)},
	}
	for _, test := range tests {
		got := e.Caret(test.off)
		if got.Pos != test.want {
			t.Errorf("Caret(%d).Pos = %v, want %v", test.off, got.Pos, test.want)
		}
		if got.Ascent != 12 || got.Descent != 4 {
			t.Errorf("Caret(%d) extents (%v, %v), want (12, 4)", test.off, got.Ascent, got.Descent)
		}
	}
}

func TestHitTest(t *testing.T) {
	e := newTestEditor("ab\ncd", 80)
	e.SetBounds(f32.Rect(10, 20, 90, 220))
	tests := []struct {
		name string
		p    f32.Point
		off  int
		hit  bool
	}{
		{"first cell", f32.Pt(21, 28), 1, true},
		{"round up", f32.Pt(23, 28), 2, true},
		{"left of field", f32.Pt(5, 28), 0, false},
		{"second line", f32.Pt(12, 40), 3, true},
		{"below content", f32.Pt(15, 100), 4, true},
		{"far outside", f32.Pt(200, 300), 5, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			off, hit := e.HitTest(test.p)
			if off != test.off || hit != test.hit {
				t.Errorf("got %d, %v, want %d, %v", off, hit, test.off, test.hit)
			}
		})
	}
}

func TestReplaceAdjustsOffsets(t *testing.T) {
	tests := []struct {
		name     string
		sel      ime.Selection
		comp     ime.Range
		r        ime.Range
		insert   string
		wantText string
		wantSel  ime.Selection
		wantComp ime.Range
	}{
		{
			name:     "before",
			sel:      ime.Selection{Anchor: 0, Active: 11},
			comp:     ime.Range{Start: 6, End: 11},
			r:        ime.Range{Start: 0, End: 5},
			insert:   "hey",
			wantText: "hey world",
			wantSel:  ime.Selection{Anchor: 0, Active: 9},
			wantComp: ime.Range{Start: 4, End: 9},
		},
		{
			name:     "at range",
			sel:      ime.Selection{Anchor: 6, Active: 11},
			comp:     ime.Range{Start: 6, End: 11},
			r:        ime.Range{Start: 6, End: 11},
			insert:   "x",
			wantText: "hello x",
			wantSel:  ime.Selection{Anchor: 6, Active: 7},
			wantComp: ime.Range{Start: 6, End: 7},
		},
		{
			name:     "inside moves to end",
			sel:      ime.Selection{Anchor: 7, Active: 9},
			comp:     ime.Range{Start: 6, End: 11},
			r:        ime.Range{Start: 6, End: 11},
			insert:   "ab",
			wantText: "hello ab",
			wantSel:  ime.Selection{Anchor: 8, Active: 8},
			wantComp: ime.Range{Start: 6, End: 8},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEditor("hello world", 256)
			e.SetSelection(test.sel)
			e.SetComposition(test.comp)
			e.Replace(test.r, test.insert)
			comp, ok := e.Composition()
			got := struct {
				Text string
				Sel  ime.Selection
				Comp ime.Range
				Has  bool
			}{e.Text(), e.Selection(), comp, ok}
			want := struct {
				Text string
				Sel  ime.Selection
				Comp ime.Range
				Has  bool
			}{test.wantText, test.wantSel, test.wantComp, true}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("unexpected editor state (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeleteElements(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		anchor   int
		active   int
		elements int
		want     string
		caret    int
	}{
		{"backward cluster", "aéb", 4, 4, -1, "ab", 1},
		{"forward cluster", "aéb", 1, 1, 1, "ab", 1},
		{"selection wins", "hello", 1, 4, 1, "ho", 1},
		{"multiple back", "abc", 3, 3, -2, "a", 1},
		{"at start", "ab", 0, 0, -1, "ab", 0},
		{"crlf is one element", "a\r\nb", 3, 3, -1, "ab", 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEditor(test.text, 256)
			e.SetCaret(test.anchor, test.active)
			e.Delete(test.elements)
			if got := e.Text(); got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
			if got := e.Selection(); got.Anchor != test.caret || got.Active != test.caret {
				t.Errorf("caret at %+v, want %d", got, test.caret)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	e := newTestEditor("hello", 256)
	e.Insert(" world")
	if got := e.Text(); got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
	if got := e.Selection(); got.Anchor != 11 || got.Active != 11 {
		t.Errorf("caret at %+v, want 11", got)
	}
	e.SetCaret(5, 11)
	e.Insert("!")
	if got := e.Text(); got != "hello!" {
		t.Errorf("got %q, want %q", got, "hello!")
	}
	if got := e.SelectedText(); got != "" {
		t.Errorf("selection %q not collapsed after insert", got)
	}
}

func TestUTF16Conversions(t *testing.T) {
	e := newTestEditor("a\U0001f600b", 256)
	utf16 := []struct{ off, want int }{
		{0, 0}, {1, 1}, {5, 3}, {6, 4}, {99, 4},
	}
	for _, test := range utf16 {
		if got := e.UTF16Index(test.off); got != test.want {
			t.Errorf("UTF16Index(%d) = %d, want %d", test.off, got, test.want)
		}
	}
	bytes := []struct{ u16, want int }{
		{0, 0}, {1, 1}, {2, 5}, {3, 5}, {4, 6}, {99, 6},
	}
	for _, test := range bytes {
		if got := e.ByteIndex(test.u16); got != test.want {
			t.Errorf("ByteIndex(%d) = %d, want %d", test.u16, got, test.want)
		}
	}
}

func TestSetCaretSnaps(t *testing.T) {
	e := newTestEditor("héllo", 256)
	e.SetCaret(-3, 999)
	if got := e.Selection(); got.Anchor != 0 || got.Active != 6 {
		t.Errorf("clamped selection %+v, want {0 6}", got)
	}
	e.SetCaret(2, 2)
	if got := e.Selection(); got.Anchor != 1 || got.Active != 1 {
		t.Errorf("snapped selection %+v, want {1 1}", got)
	}
}

func TestEditorZeroValue(t *testing.T) {
	var e Editor
	e.SetText("hi")
	if got, want := e.LineRange(0, ime.Downstream), (ime.Range{Start: 0, End: 2}); got != want {
		t.Errorf("unbounded line %+v, want %+v", got, want)
	}
	if got := e.Caret(0).Pos; got != f32.Pt(0, 12) {
		t.Errorf("default metrics caret at %v, want (0,12)", got)
	}
}
