// SPDX-License-Identifier: Unlicense OR MIT

// Package compose implements dead key and compose sequence handling
// for keyboard input.
package compose

import (
	"oriel.dev/io/key"
)

// Status of a compose state after feeding a symbol.
type Status uint8

const (
	// StatusNothing means the symbol is not part of a sequence.
	StatusNothing Status = iota
	// StatusComposing means a sequence is in progress.
	StatusComposing
	// StatusComposed means a sequence just completed.
	StatusComposed
	// StatusCancelled means the symbol broke the sequence in
	// progress.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusNothing:
		return "Nothing"
	case StatusComposing:
		return "Composing"
	case StatusComposed:
		return "Composed"
	case StatusCancelled:
		return "Cancelled"
	default:
		panic("unknown Status")
	}
}

// A Sequence maps an ordered list of symbols to its composed result.
type Sequence struct {
	Keys   []key.Sym
	Result string
}

// State steps through compose sequences one symbol at a time.
type State interface {
	// Feed advances the state with sym and returns the new status.
	// Modifier symbols are ignored.
	Feed(sym key.Sym) Status
	// Status returns the status of the last Feed.
	Status() Status
	// Result copies the composed result into buf and returns the
	// result's full length in bytes. Callers must retry with a
	// larger buffer when the length exceeds len(buf).
	Result(buf []byte) int
	// Reset returns the state to idle.
	Reset()
}

// A Table holds compiled compose sequences. It is immutable and
// shared; per-keyboard progress lives in the States it mints.
type Table struct {
	root *node
	size int
}

type node struct {
	result string
	edges  map[key.Sym]*node
}

// NewTable compiles sequences into a table. A sequence that is a
// prefix of another is unreachable, matching the established compose
// table behavior.
func NewTable(seqs []Sequence) *Table {
	t := &Table{root: &node{}}
	for _, seq := range seqs {
		if len(seq.Keys) == 0 || seq.Result == "" {
			continue
		}
		n := t.root
		for _, sym := range seq.Keys {
			if n.edges == nil {
				n.edges = make(map[key.Sym]*node)
			}
			next, ok := n.edges[sym]
			if !ok {
				next = &node{}
				n.edges[sym] = next
			}
			n = next
		}
		if n.result == "" {
			t.size++
		}
		n.result = seq.Result
	}
	return t
}

// Len returns the number of sequences in the table.
func (t *Table) Len() int {
	return t.size
}

// NewState returns a fresh idle state over the table.
func (t *Table) NewState() State {
	return &tableState{table: t}
}

type tableState struct {
	table  *Table
	cur    *node
	status Status
	result string
}

func (s *tableState) Feed(sym key.Sym) Status {
	if sym.IsModifier() {
		return s.status
	}
	cur := s.cur
	if cur == nil {
		cur = s.table.root
	}
	next, ok := cur.edges[sym]
	switch {
	case !ok && s.cur == nil:
		s.status = StatusNothing
	case !ok:
		s.cur = nil
		s.status = StatusCancelled
	case len(next.edges) > 0:
		s.cur = next
		s.status = StatusComposing
	default:
		s.cur = nil
		s.result = next.result
		s.status = StatusComposed
	}
	return s.status
}

func (s *tableState) Status() Status {
	return s.status
}

func (s *tableState) Result(buf []byte) int {
	if s.status != StatusComposed {
		return 0
	}
	copy(buf, s.result)
	return len(s.result)
}

func (s *tableState) Reset() {
	s.cur = nil
	s.status = StatusNothing
	s.result = ""
}
