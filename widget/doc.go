// SPDX-License-Identifier: Unlicense OR MIT

// Package widget implements text field state shared between the
// application and the window's input methods. Widgets contain
// persistent state and no drawing; the application renders them with
// whatever it has.
package widget
