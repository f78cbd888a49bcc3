// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"image"
	"sync"
	"time"

	"oriel.dev/io/key"
	"oriel.dev/unit"
)

// Config describes the native window configuration.
type Config struct {
	// Size is the window dimensions in pixels.
	Size image.Point
	// MinSize is the minimum window dimensions.
	MinSize image.Point
	// MaxSize is the maximum window dimensions.
	MaxSize image.Point
	// Title is the window title shown in its decoration bar.
	Title string
}

// Option alters a window configuration. The metric converts device
// independent sizes for the screen the window appears on.
type Option func(m unit.Metric, cfg *Config)

func (c *Config) apply(m unit.Metric, options []Option) {
	for _, o := range options {
		o(m, c)
	}
}

// Title sets the title of the window.
func Title(t string) Option {
	return func(_ unit.Metric, cfg *Config) {
		cfg.Title = t
	}
}

// Size sets the size of the window.
func Size(w, h unit.Value) Option {
	if w.V <= 0 {
		panic("width must be larger than or equal to 0")
	}
	if h.V <= 0 {
		panic("height must be larger than or equal to 0")
	}
	return func(m unit.Metric, cfg *Config) {
		cfg.Size = image.Point{
			X: m.Px(w),
			Y: m.Px(h),
		}
	}
}

// MinSize sets the minimum size of the window.
func MinSize(w, h unit.Value) Option {
	if w.V <= 0 {
		panic("width must be larger than or equal to 0")
	}
	if h.V <= 0 {
		panic("height must be larger than or equal to 0")
	}
	return func(m unit.Metric, cfg *Config) {
		cfg.MinSize = image.Point{
			X: m.Px(w),
			Y: m.Px(h),
		}
	}
}

// MaxSize sets the maximum size of the window.
func MaxSize(w, h unit.Value) Option {
	if w.V <= 0 {
		panic("width must be larger than or equal to 0")
	}
	if h.V <= 0 {
		panic("height must be larger than or equal to 0")
	}
	return func(m unit.Metric, cfg *Config) {
		cfg.MaxSize = image.Point{
			X: m.Px(w),
			Y: m.Px(h),
		}
	}
}

// driver is the platform side of a window. All methods except Run are
// called on the event loop goroutine.
type driver interface {
	// Invalidate requests a Paint callback on the next turn of the
	// event loop.
	Invalidate()

	// SetDeadline asks the loop to call the window's tick no later
	// than t. The zero time clears a pending deadline.
	SetDeadline(t time.Time)

	// Configure applies options to the native window.
	Configure([]Option)

	// Run schedules f on the event loop goroutine. It is the one
	// driver method that may be called from other goroutines.
	Run(f func())

	// Close requests window teardown. The loop delivers Destroyed
	// and exits.
	Close()
}

// funcQueue collects functions posted from arbitrary goroutines for
// the event loop to run. wake is polled by the loop's select.
type funcQueue struct {
	mu    sync.Mutex
	funcs []func()
	wake  chan struct{}
}

func newFuncQueue() funcQueue {
	return funcQueue{wake: make(chan struct{}, 1)}
}

func (q *funcQueue) push(f func()) {
	q.mu.Lock()
	q.funcs = append(q.funcs, f)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *funcQueue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	funcs := q.funcs
	q.funcs = nil
	return funcs
}

// resolveKey builds the portable event for a physical key through a
// layout resolver. The platform fills in state that the resolver does
// not track, such as the repeat flag.
func resolveKey(r key.Resolver, code key.Code, state key.State) key.Event {
	sym := r.Sym(code)
	name, text := r.Lookup(sym)
	return key.Event{
		Name:      name,
		Text:      text,
		Code:      code,
		Sym:       sym,
		Location:  sym.Location(),
		Modifiers: r.Modifiers(),
		State:     state,
	}
}
