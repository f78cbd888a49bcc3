// SPDX-License-Identifier: Unlicense OR MIT

package compose

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"oriel.dev/io/key"
)

// User sequence files are TOML documents of the form
//
//	[[sequence]]
//	keys = ["dead_grave", "a"]
//	result = "à"
//
// Each element of keys is a symbol name from namedSyms, a single
// character, or a codepoint written as "U+0300". Sequences must begin
// with a dead key or "Multi_key" to be reachable. User sequences are
// layered over the built-in table and win on conflict.

type userTable struct {
	Sequence []userSequence `toml:"sequence"`
}

type userSequence struct {
	Keys   []string `toml:"keys"`
	Result string   `toml:"result"`
}

var namedSyms = map[string]key.Sym{
	"Multi_key":        key.SymMultiKey,
	"dead_grave":       key.SymDeadGrave,
	"dead_acute":       key.SymDeadAcute,
	"dead_circumflex":  key.SymDeadCircumflex,
	"dead_tilde":       key.SymDeadTilde,
	"dead_macron":      key.SymDeadMacron,
	"dead_breve":       key.SymDeadBreve,
	"dead_abovedot":    key.SymDeadAbovedot,
	"dead_diaeresis":   key.SymDeadDiaeresis,
	"dead_abovering":   key.SymDeadAbovering,
	"dead_doubleacute": key.SymDeadDoubleacute,
	"dead_caron":       key.SymDeadCaron,
	"dead_cedilla":     key.SymDeadCedilla,
	"dead_ogonek":      key.SymDeadOgonek,
	"dead_iota":        key.SymDeadIota,
	"dead_belowdot":    key.SymDeadBelowdot,
	"dead_hook":        key.SymDeadHook,
	"dead_horn":        key.SymDeadHorn,
	"dead_stroke":      key.SymDeadStroke,
	"dead_currency":    key.SymDeadCurrency,
	"dead_greek":       key.SymDeadGreek,
}

// LoadTable reads a user sequence file and returns the built-in table
// extended with its sequences.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compose: read table: %w", err)
	}
	var doc userTable
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("compose: decode table: %w", err)
	}
	seqs := builtinSequences()
	for i, us := range doc.Sequence {
		seq, err := us.sequence()
		if err != nil {
			return nil, fmt.Errorf("compose: sequence %d: %w", i, err)
		}
		seqs = append(seqs, seq)
	}
	return NewTable(seqs), nil
}

func (us userSequence) sequence() (Sequence, error) {
	if len(us.Keys) == 0 {
		return Sequence{}, fmt.Errorf("no keys")
	}
	if us.Result == "" {
		return Sequence{}, fmt.Errorf("no result")
	}
	keys := make([]key.Sym, 0, len(us.Keys))
	for _, name := range us.Keys {
		sym, err := symFromName(name)
		if err != nil {
			return Sequence{}, err
		}
		keys = append(keys, sym)
	}
	return Sequence{Keys: keys, Result: us.Result}, nil
}

func symFromName(name string) (key.Sym, error) {
	if sym, ok := namedSyms[name]; ok {
		return sym, nil
	}
	if len(name) > 2 && (name[:2] == "U+" || name[:2] == "u+") {
		cp, err := strconv.ParseUint(name[2:], 16, 32)
		if err != nil || cp > utf8.MaxRune {
			return 0, fmt.Errorf("bad codepoint %q", name)
		}
		return key.SymOf(rune(cp)), nil
	}
	if r, size := utf8.DecodeRuneInString(name); size == len(name) && r != utf8.RuneError {
		return key.SymOf(r), nil
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// Watch reloads the table at path whenever the file changes,
// delivering each new table to update. Close the returned closer to
// stop watching. Failed reloads are logged and the previous table
// stays in effect.
func Watch(path string, log *slog.Logger, update func(*Table)) (io.Closer, error) {
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("compose: create watcher: %w", err)
	}
	// Watch the directory rather than the file so that editors that
	// replace the file on save keep the watch alive.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("compose: watch %q: %w", path, err)
	}
	go watchLoop(watcher, path, log, update)
	return watcher, nil
}

func watchLoop(watcher *fsnotify.Watcher, path string, log *slog.Logger, update func(*Table)) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				table, err := LoadTable(path)
				if err != nil {
					log.Warn("compose table reload failed", "path", path, "err", err)
					return
				}
				log.Debug("compose table reloaded", "path", path, "sequences", table.Len())
				update(table)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("compose table watch error", "path", path, "err", err)
		}
	}
}
