// SPDX-License-Identifier: Unlicense OR MIT

package app

import "os"

// newOSWindow tries the display protocol the session advertises
// first, then the other one. A driver fails before it touches the
// window, so falling through to the next one is safe.
func newOSWindow(w *Window, options []Option) error {
	drivers := []func(*Window, []Option) error{newWaylandWindow, newX11Window}
	if os.Getenv("WAYLAND_DISPLAY") == "" {
		drivers[0], drivers[1] = drivers[1], drivers[0]
	}
	var errFirst error
	for _, d := range drivers {
		err := d(w, options)
		if err == nil {
			return nil
		}
		if errFirst == nil {
			errFirst = err
		}
	}
	return errFirst
}
