// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux

package app

import (
	"testing"
	"time"
)

func TestRepeatInterval(t *testing.T) {
	tests := []struct {
		rate int
		want time.Duration
	}{
		{rate: 25, want: 40 * time.Millisecond},
		{rate: 1, want: time.Second},
		{rate: 1000, want: time.Millisecond},
		{rate: 3, want: time.Second / 3},
		{rate: 0, want: 0},
		{rate: -1, want: 0},
	}
	for _, tc := range tests {
		r := repeatState{rate: tc.rate}
		if got := r.interval(); got != tc.want {
			t.Errorf("interval at rate %d = %v, want %v", tc.rate, got, tc.want)
		}
	}
}

func TestRepeatDisabled(t *testing.T) {
	r := repeatState{rate: 0, delay: 10 * time.Millisecond}
	r.Start(nil, 0)
	if r.stopC != nil {
		t.Fatal("disabled repeat started a timing goroutine")
	}
}

func TestRepeatStopIdle(t *testing.T) {
	var r repeatState
	r.Stop()
	r.Stop()
}
