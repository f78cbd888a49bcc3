// SPDX-License-Identifier: Unlicense OR MIT

//go:build !linux && !windows

package app

import "errors"

func newOSWindow(w *Window, options []Option) error {
	return errors.New("app: no window driver for this platform")
}
