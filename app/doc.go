// SPDX-License-Identifier: Unlicense OR MIT

/*
Package app connects a platform window to a Handler and routes its
keyboard, pointer and text input to the focused text field.

# Windows

A window is created with NewWindow and lives on its own event loop
goroutine. The loop calls the Handler methods, starting with Created
and ending with Destroyed; the *Window passed to Created is how the
application talks back to the loop.

All Window methods except Run must be called from the loop, that is
from inside a handler callback or a function passed to Run. Run is
safe from any goroutine and is the way other goroutines reach the
window.

For example:

	type ui struct {
		done chan struct{}
	}

	func (u *ui) Created(w *app.Window) { ... }
	func (u *ui) Destroyed()            { close(u.done) }
	...

	func main() {
		u := &ui{done: make(chan struct{})}
		if err := app.NewWindow(u, app.Title("editor")); err != nil {
			log.Fatal(err)
		}
		<-u.done
	}

# Text input

The window owns the text input state. A Handler registers fields with
AddTextField, directs keys to one of them with SetFocusedTextField and
hands out editors through its Editor method. Key presses the handler
does not consume edit the focused field, either through compose
sequences or through the platform input method, and the field's
surrounding text and caret rectangle are pushed back to the input
method after every callback.

# Compose sequences

Key composition uses the built-in table for the session locale. A user
sequence file named by ORIEL_COMPOSE_FILE, or compose.toml under the
user configuration directory, layers additional sequences over it and
is reloaded when it changes.

# Headless

NewHeadless runs the same window without a display server. Events are
injected by the caller and callbacks run synchronously, which makes it
suitable for tests and tools.
*/
package app
