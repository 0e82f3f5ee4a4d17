// Package textutil cleans the invisible junk that rides along in spreadsheet
// exports and copy-pasted contact data: zero-width spaces, byte-order marks,
// non-breaking spaces and friends. Validators normalise through these helpers
// before applying any format rules.
package textutil

import "strings"

// Zero-width characters that hide inside pasted values. These are not
// whitespace in the Unicode sense, so TrimSpace alone never catches them.
const obscureZeroWidth = "᠎​‌‍⁠\uFEFF"

// Non-breaking space variants that render like ordinary spaces.
const obscureFullWidth = "  "

// AllWhitespace is every character treated as whitespace when cleaning
// user-supplied contact data, visible or not.
const AllWhitespace = " \t\n\r\v\f" + obscureFullWidth + obscureZeroWidth

// StripAll trims AllWhitespace plus any extra characters from both ends of s.
func StripAll(s string, extra string) string {
	return strings.Trim(s, AllWhitespace+extra)
}

// StripObscure removes zero-width characters wherever they appear in s and
// trims ordinary and non-breaking whitespace from both ends.
func StripObscure(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, obscureZeroWidth) {
		s = RemoveAll(s, obscureZeroWidth)
	}
	return strings.TrimSpace(s)
}

// NormaliseWhitespace removes zero-width characters, trims both ends and
// collapses every interior whitespace run to a single space.
func NormaliseWhitespace(s string) string {
	if strings.ContainsAny(s, obscureZeroWidth) {
		s = RemoveAll(s, obscureZeroWidth)
	}
	return strings.Join(strings.Fields(s), " ")
}

// RemoveAll deletes every occurrence of the characters in chars from s,
// wherever they appear.
func RemoveAll(s, chars string) string {
	if !strings.ContainsAny(s, chars) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, s)
}
