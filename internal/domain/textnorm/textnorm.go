// Package textnorm canonicalizes display names for comparison.
package textnorm

import "strings"

// Canonical reduces a display name to its comparison form: lower-case,
// only Latin letters and spaces, whitespace runs collapsed to one space,
// no surrounding whitespace. Accented and non-Latin characters are removed,
// not transliterated. Empty input canonicalizes to "".
func Canonical(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true // suppress leading spaces
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}
