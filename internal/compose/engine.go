// SPDX-License-Identifier: Unlicense OR MIT

package compose

import (
	"strings"

	"oriel.dev/io/key"
)

// OutcomeKind classifies the result of feeding a symbol to an Engine.
type OutcomeKind uint8

const (
	// None means the symbol took no part in composition and the
	// general input path should handle it.
	None OutcomeKind = iota
	// Updated means the pending display string changed.
	Updated
	// Finished means a sequence completed.
	Finished
	// Cancelled means composition ended without a result.
	Cancelled
)

// Outcome is the result of feeding one symbol to an Engine.
type Outcome struct {
	Kind OutcomeKind
	// Text is the display string for Updated and the committed
	// result for Finished.
	Text string
	// JustStarted is set on the Updated that begins a composition.
	JustStarted bool
}

// An Engine drives compose sequences for one keyboard. It tracks the
// fed symbol sequence and derives the display string shown in the
// composition preedit.
//
// An Engine with no table never composes.
type Engine struct {
	state State
	seq   []key.Sym
	// display accumulates the preview text. It can be empty while a
	// sequence is pending, so composing is tracked separately.
	display   string
	marker    bool
	composing bool
}

// NewEngine returns an engine over table. A nil table is allowed and
// produces an engine that reports None for every symbol.
func NewEngine(table *Table) *Engine {
	e := &Engine{}
	e.SetTable(table)
	return e
}

// SetTable replaces the engine's table, abandoning any composition in
// progress.
func (e *Engine) SetTable(table *Table) {
	e.state = nil
	e.clear()
	if table != nil {
		e.state = table.NewState()
	}
}

// Composing reports whether a sequence is in progress.
func (e *Engine) Composing() bool {
	return e.composing
}

// Feed advances the engine with sym.
func (e *Engine) Feed(sym key.Sym) Outcome {
	if e.state == nil {
		return Outcome{}
	}
	if sym == key.SymNone || sym.IsModifier() {
		return Outcome{}
	}
	if e.composing && sym == key.SymBackSpace {
		return e.backspace()
	}
	if !e.composing && !startsSequence(sym) {
		return Outcome{}
	}
	wasIdle := !e.composing
	switch e.state.Feed(sym) {
	case StatusComposing:
		e.seq = append(e.seq, sym)
		e.appendDisplay(sym)
		e.composing = true
		return Outcome{Kind: Updated, Text: e.display, JustStarted: wasIdle}
	case StatusComposed:
		text := e.result()
		e.clear()
		return Outcome{Kind: Finished, Text: text}
	case StatusCancelled:
		// The sequence is gone but the display is kept for
		// recovery by Cancel.
		e.seq = e.seq[:0]
		e.composing = false
		e.state.Reset()
		return Outcome{Kind: Cancelled}
	default:
		return Outcome{}
	}
}

// Cancel aborts any composition in progress and returns the display
// string accumulated so far.
func (e *Engine) Cancel() string {
	text := e.display
	e.clear()
	return text
}

// backspace pops the last symbol. The table has no undo, so the
// remaining sequence is replayed against a fresh state to recompute
// the display.
func (e *Engine) backspace() Outcome {
	e.seq = e.seq[:len(e.seq)-1]
	if len(e.seq) == 0 {
		e.clear()
		return Outcome{Kind: Cancelled}
	}
	e.state.Reset()
	e.display = ""
	e.marker = false
	status := StatusNothing
	for _, sym := range e.seq {
		status = e.state.Feed(sym)
		e.appendDisplay(sym)
	}
	switch status {
	case StatusComposing:
		return Outcome{Kind: Updated, Text: e.display}
	case StatusComposed:
		text := e.result()
		e.clear()
		return Outcome{Kind: Finished, Text: text}
	default:
		e.clear()
		return Outcome{Kind: Cancelled}
	}
}

func (e *Engine) appendDisplay(sym key.Sym) {
	if sym == key.SymMultiKey {
		e.display += composeMarker
		e.marker = true
		return
	}
	d := displayForm(sym)
	if d == "" {
		return
	}
	if e.marker {
		// The pending compose marker is replaced by the glyph
		// that follows it.
		e.display = strings.TrimSuffix(e.display, composeMarker)
		e.marker = false
	}
	e.display += d
}

func (e *Engine) result() string {
	var stack [16]byte
	buf := stack[:]
	n := e.state.Result(buf)
	if n > len(buf) {
		buf = make([]byte, n)
		n = e.state.Result(buf)
	}
	return string(buf[:n])
}

func (e *Engine) clear() {
	e.seq = e.seq[:0]
	e.display = ""
	e.marker = false
	e.composing = false
	if e.state != nil {
		e.state.Reset()
	}
}

// startsSequence reports whether sym can begin a composition.
func startsSequence(sym key.Sym) bool {
	return sym.IsDead() || sym == key.SymMultiKey
}
