// SPDX-License-Identifier: Unlicense OR MIT

package ime

import (
	"testing"

	"oriel.dev/f32"
)

func TestSelectionRange(t *testing.T) {
	tests := []struct {
		sel  Selection
		want Range
	}{
		{Selection{Anchor: 2, Active: 5}, Range{Start: 2, End: 5}},
		{Selection{Anchor: 5, Active: 2}, Range{Start: 2, End: 5}},
		{Selection{Anchor: 3, Active: 3}, Range{Start: 3, End: 3}},
	}
	for _, tst := range tests {
		if got := tst.sel.Range(); got != tst.want {
			t.Errorf("%+v.Range() = %+v, wanted %+v", tst.sel, got, tst.want)
		}
		if got := tst.sel.Collapsed(); got != tst.want.Empty() {
			t.Errorf("%+v.Collapsed() = %v, wanted %v", tst.sel, got, tst.want.Empty())
		}
	}
}

func TestCaretRect(t *testing.T) {
	c := Caret{Pos: f32.Pt(10, 20), Ascent: 8, Descent: 2}
	want := f32.Rect(10, 12, 11, 22)
	if got := c.Rect(); got != want {
		t.Errorf("Rect() = %v, wanted %v", got, want)
	}
}
