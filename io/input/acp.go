// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"errors"

	"oriel.dev/io/ime"
)

// ErrInvalidPos reports an application character position outside the
// document. Platform glue maps it to the transport's invalid position
// code, TS_E_INVALIDPOS on Windows.
var ErrInvalidPos = errors.New("input: invalid document position")

// The ACP functions expose an editor as the flat UTF-16 code unit
// document that Windows text services operate on. Positions are
// application character positions: UTF-16 offsets from the start of
// the field. All conversions go through the editor's own index
// mapping so surrogate pairs stay intact.

// EndACP returns the document end position.
func EndACP(e ime.Editor) int {
	return e.UTF16Index(e.Len())
}

// TextACP returns the document text between start and end. An end of
// -1 means the end of the document.
func TextACP(e ime.Editor, start, end int) (string, error) {
	last := EndACP(e)
	if end == -1 {
		end = last
	}
	if start < 0 || end < start || end > last {
		return "", ErrInvalidPos
	}
	return e.Slice(ime.Range{
		Start: e.ByteIndex(start),
		End:   e.ByteIndex(end),
	}), nil
}

// SelectionACP returns the selection as an ordered position pair.
func SelectionACP(e ime.Editor) (start, end int) {
	r := e.Selection().Range()
	return e.UTF16Index(r.Start), e.UTF16Index(r.End)
}

// SetSelectionACP replaces the selection. A caret at the document end
// is valid.
func SetSelectionACP(e ime.Editor, start, end int) error {
	last := EndACP(e)
	if start < 0 || end < start || end > last {
		return ErrInvalidPos
	}
	e.SetSelection(ime.Selection{
		Anchor: e.ByteIndex(start),
		Active: e.ByteIndex(end),
	})
	return nil
}

// ReplaceACP replaces the text between start and end. Insertions, the
// start == end case, are rejected at or past the document end.
func ReplaceACP(e ime.Editor, start, end int, text string) error {
	last := EndACP(e)
	if start < 0 || end < start || end > last {
		return ErrInvalidPos
	}
	if start == end && start >= last && last > 0 {
		return ErrInvalidPos
	}
	bs := e.ByteIndex(start)
	be := e.ByteIndex(end)
	e.Replace(ime.Range{Start: bs, End: be}, text)
	pos := bs + len(text)
	e.SetSelection(ime.Selection{Anchor: pos, Active: pos})
	return nil
}
