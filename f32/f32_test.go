// SPDX-License-Identifier: Unlicense OR MIT

package f32

import (
	"image"
	"testing"
)

func TestRectRound(t *testing.T) {
	tests := []struct {
		r    Rectangle
		want image.Rectangle
	}{
		{Rect(0, 0, 10, 10), image.Rect(0, 0, 10, 10)},
		{Rect(0.2, 0.8, 9.1, 9.9), image.Rect(0, 0, 10, 10)},
		{Rect(-0.5, -1.5, 0.5, 1.5), image.Rect(-1, -2, 1, 2)},
	}
	for _, tst := range tests {
		if got := tst.r.Round(); got != tst.want {
			t.Errorf("%v.Round() = %v, wanted %v", tst.r, got, tst.want)
		}
	}
}

func TestRectContains(t *testing.T) {
	r := Rect(1, 1, 5, 5)
	for _, p := range []Point{Pt(1, 1), Pt(4.9, 4.9), Pt(3, 1)} {
		if !r.Contains(p) {
			t.Errorf("%v.Contains(%v) = false, wanted true", r, p)
		}
	}
	for _, p := range []Point{Pt(0, 0), Pt(5, 5), Pt(3, 5), Pt(-1, 3)} {
		if r.Contains(p) {
			t.Errorf("%v.Contains(%v) = true, wanted false", r, p)
		}
	}
}
