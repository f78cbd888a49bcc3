// SPDX-License-Identifier: Unlicense OR MIT

package compose

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// EnvTable returns the compose table for the locale in the
// environment, trying LC_ALL, LC_CTYPE and LANG in order with a final
// "C" fallback.
func EnvTable() *Table {
	locale := os.Getenv("LC_ALL")
	if locale == "" {
		locale = os.Getenv("LC_CTYPE")
	}
	if locale == "" {
		locale = os.Getenv("LANG")
	}
	if locale == "" {
		locale = "C"
	}
	return LocaleTable(locale)
}

// LocaleTable returns the compose table for a POSIX locale name such
// as "en_US.UTF-8", or nil when no table serves the locale. Locales
// written in non-Latin scripts rely on an external input method
// rather than compose sequences.
func LocaleTable(locale string) *Table {
	switch locale {
	case "C", "POSIX", "":
		return Builtin()
	}
	tag, err := language.Parse(normalizeLocale(locale))
	if err != nil {
		return Builtin()
	}
	script, conf := tag.Script()
	if conf == language.No || script.String() == "Latn" {
		return Builtin()
	}
	return nil
}

// normalizeLocale converts a POSIX locale name to a BCP 47 tag,
// dropping the encoding and modifier suffixes.
func normalizeLocale(locale string) string {
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale = locale[:i]
	}
	return strings.ReplaceAll(locale, "_", "-")
}
