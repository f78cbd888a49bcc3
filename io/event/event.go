// SPDX-License-Identifier: Unlicense OR MIT

// Package event contains the marker interface for events delivered to
// a window handler.
package event

// Event is the marker interface for events.
type Event interface {
	ImplementsEvent()
}
