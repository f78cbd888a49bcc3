// SPDX-License-Identifier: Unlicense OR MIT

package main

// A keyboard composition walkthrough against a headless window. It
// types a Multi_key sequence with a mid-sequence backspace, extends
// the table with a user sequence, and replays an input method
// exchange, printing the editor after every step.

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"oriel.dev/app"
	"oriel.dev/f32"
	"oriel.dev/io/ime"
	"oriel.dev/io/input"
	"oriel.dev/io/key"
	"oriel.dev/io/pointer"
	"oriel.dev/unit"
	"oriel.dev/widget"
)

// Key codes of the builtin US layout.
const (
	codeE          = 18
	codeO          = 24
	codeBackspace  = 14
	codeApostrophe = 40
	codeCompose    = 127
)

const userTable = `
[[sequence]]
keys = ["Multi_key", "o", "e"]
result = "œ"
`

type demo struct {
	w      *app.Window
	editor *widget.Editor
	field  ime.FieldToken
}

func (d *demo) Created(w *app.Window) { d.w = w }

func (d *demo) Resized(size image.Point, m unit.Metric) {}

func (d *demo) Paint() {}

func (d *demo) FocusChanged(focus bool) {}

func (d *demo) KeyDown(e key.Event) bool { return false }

func (d *demo) KeyUp(e key.Event) {}

func (d *demo) Pointer(e pointer.Event) {}

func (d *demo) Timer(tok app.TimerToken) {}

func (d *demo) Editor(tok ime.FieldToken) ime.Editor {
	if tok == d.field {
		return d.editor
	}
	return nil
}

func (d *demo) Destroyed() {}

func (d *demo) dump(label string) {
	if r, ok := d.editor.Composition(); ok {
		fmt.Printf("%-16s %-8q composing %q\n", label, d.editor.Text(), d.editor.Slice(r))
		return
	}
	fmt.Printf("%-16s %q\n", label, d.editor.Text())
}

func main() {
	// Lay the user sequence over the built-in table so the output
	// does not depend on the host locale.
	dir, err := os.MkdirTemp("", "compose")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "compose.toml")
	if err := os.WriteFile(path, []byte(userTable), 0o600); err != nil {
		log.Fatal(err)
	}
	os.Setenv("ORIEL_COMPOSE_FILE", path)

	d := &demo{editor: new(widget.Editor)}
	d.editor.SetBounds(f32.Rect(0, 0, 400, 200))
	hl := app.NewHeadless(d)
	defer hl.Close()
	hl.Window().Run(func() {
		d.field = d.w.AddTextField()
		d.w.SetFocusedTextField(d.field)
	})
	hl.Flush()

	tap := func(code key.Code, label string) {
		hl.KeyPress(code)
		hl.KeyRelease(code)
		d.dump(label)
	}

	fmt.Println("-- compose sequence, backspace replays --")
	tap(codeCompose, "Compose")
	tap(codeApostrophe, "'")
	tap(codeBackspace, "Backspace")
	tap(codeApostrophe, "'")
	tap(codeE, "e")

	fmt.Println("-- user sequence --")
	tap(codeCompose, "Compose")
	tap(codeO, "o")
	tap(codeE, "e")

	fmt.Println("-- input method exchange --")
	var b input.Batch
	b.Preedit.Set = true
	b.Preedit.Text = "ら"
	b.Preedit.CursorBegin = -1
	hl.Ime(b)
	d.dump("preedit ら")

	b = input.Batch{}
	b.Preedit.Set = true
	b.Preedit.Text = "らん"
	b.Preedit.CursorBegin = -1
	hl.Ime(b)
	d.dump("preedit らん")

	b = input.Batch{}
	b.Commit.Set = true
	b.Commit.Text = "蘭"
	hl.Ime(b)
	d.dump("commit 蘭")
}
