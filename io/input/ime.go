// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"oriel.dev/f32"
	"oriel.dev/io/ime"
	"oriel.dev/io/key"
)

// EditorSource resolves field tokens to editors. It is implemented by
// the windowing layer, which asks the application for the editor
// behind a token.
type EditorSource interface {
	// Editor returns the editor for tok. It returns nil for the zero
	// token and for tokens that have been removed.
	Editor(tok ime.FieldToken) ime.Editor
}

// Cause tags a state synchronization with what provoked it, so the
// transport can tell its own edits from everyone else's.
type Cause uint8

const (
	// CauseOther covers focus changes and application edits.
	CauseOther Cause = iota
	// CauseEdit marks changes driven by user input on the keyboard
	// path.
	CauseEdit
	// CauseIme marks changes the external input method itself
	// requested.
	CauseIme
)

func (c Cause) String() string {
	switch c {
	case CauseOther:
		return "Other"
	case CauseEdit:
		return "Edit"
	case CauseIme:
		return "Ime"
	default:
		panic("unknown Cause")
	}
}

// Conn is the outbound half of an external input method transport.
// The seat drives it with the double buffering model of the Wayland
// text-input protocol: state calls accumulate and Commit applies them
// atomically. Implementations that speak an immediate protocol apply
// each call as it arrives and make Commit a no-op.
type Conn interface {
	// Enable announces an active text field to the input method.
	Enable()
	// Disable announces that no text field is active.
	Disable()
	// SetSurroundingText describes the text around the insertion
	// point. cursor and anchor are byte offsets into text; any active
	// composition has been removed from it.
	SetSurroundingText(text string, cursor, anchor int)
	// ClearSurroundingText announces that no usable excerpt of the
	// field exists, typically because the selection exceeds the
	// transport capacity.
	ClearSurroundingText()
	// SetTextChangeCause tags the pending state change.
	SetTextChangeCause(cause Cause)
	// SetCursorRectangle places the caret line box, in surface-local
	// coordinates.
	SetCursorRectangle(r f32.Rectangle)
	// Commit applies the accumulated state.
	Commit()
}

// KeyForwarder is implemented by transports that want raw key events
// before the seat interprets them, such as IBus. ForwardKey reports
// whether the input method consumed the event.
type KeyForwarder interface {
	ForwardKey(e key.Event) bool
}

// Batch is one atomic set of edits from an external input method,
// modeled on the pending state of the text-input done event. A batch
// replaces any composition in progress.
type Batch struct {
	// DeleteBefore and DeleteAfter request removal of that many bytes
	// of committed text before and after the selection.
	DeleteBefore int
	DeleteAfter  int
	// Commit inserts committed text at the selection.
	Commit struct {
		Set  bool
		Text string
	}
	// Preedit begins or replaces the composition. An empty Text
	// dismisses it. CursorBegin and CursorEnd select the caret range
	// within Text in bytes; a negative CursorBegin leaves the caret at
	// the end.
	Preedit struct {
		Set         bool
		Text        string
		CursorBegin int
		CursorEnd   int
	}
}

// Empty reports whether the batch carries no edits at all.
func (b Batch) Empty() bool {
	return b.DeleteBefore == 0 && b.DeleteAfter == 0 && !b.Commit.Set && !b.Preedit.Set
}
