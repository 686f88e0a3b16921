package sanitizer

import (
	"strings"
	"unicode"
)

// ControlSanitizer убирает управляющие символы, кроме перевода строки и
// табуляции, и битый UTF-8.
type ControlSanitizer struct{}

func (s *ControlSanitizer) Sanitize(text string) string {
	return StripControl(text)
}

func StripControl(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' || r == '\ufeff' {
			return -1
		}
		return r
	}, text)
}

// Clean StripControl и обрезка пробелов по краям.
func Clean(text string) string {
	return strings.TrimSpace(StripControl(text))
}
