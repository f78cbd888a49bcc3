// SPDX-License-Identifier: Unlicense OR MIT

/*
Package input tracks the text input state of one window seat.

The [Seat] arbitrates a window's text fields between three writers:
plain key edits, the built-in compose engine, and an external input
method connected through a [Conn]. At most one of the latter two owns
a composition at any time; see [Owner].

Backends feed resolved key events to [Seat.Key] and input method
batches to [Seat.ImeDone]. Applications register fields through
[Seat.AddField] and move focus with [Seat.RequestFocus]; the move is
folded in by [Seat.Reconcile], which backends run after every
callback. Editors are reached through the [EditorSource] the seat was
built with and are never retained between calls.
*/
package input
