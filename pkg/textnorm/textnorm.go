// Package textnorm normalizes free-text place names before they are sent to
// upstream lookup APIs.
package textnorm

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes diacritical marks from s, e.g. "São Paulo" becomes
// "Sao Paulo". Letters without a canonical decomposition (such as "Ł") are
// left as they are.
func StripDiacritics(s string) string {
	// transform.Chain keeps state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
