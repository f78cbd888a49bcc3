// SPDX-License-Identifier: Unlicense OR MIT

package app

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"oriel.dev/internal/compose"
)

// composeFilePath returns the user compose sequence file: the file
// named by ORIEL_COMPOSE_FILE, or compose.toml under the user config
// directory.
func composeFilePath() string {
	if path := os.Getenv("ORIEL_COMPOSE_FILE"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "oriel", "compose.toml")
}

// composeTable loads the user sequence file when one exists, falling
// back to the locale's built-in table.
func composeTable(log *slog.Logger) *compose.Table {
	if path := composeFilePath(); path != "" {
		t, err := compose.LoadTable(path)
		if err == nil {
			log.Debug("user compose table loaded", "path", path, "sequences", t.Len())
			return t
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("user compose table unusable", "path", path, "err", err)
		}
	}
	return compose.EnvTable()
}

// watchComposeFile reloads the compose table whenever the user
// sequence file changes. Edits land on the event loop through Run.
func (w *Window) watchComposeFile() {
	path := composeFilePath()
	if path == "" {
		return
	}
	watch, err := compose.Watch(path, w.log, func(t *compose.Table) {
		w.Run(func() {
			w.seat.SetComposeTable(t)
		})
	})
	if err != nil {
		w.log.Debug("compose table not watched", "path", path, "err", err)
		return
	}
	w.composeWatch = watch
}
