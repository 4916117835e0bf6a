// Package normalize contains pure helpers that bring raw recognizer output
// into canonical display form.
package normalize

import "strings"

// UnknownName is returned by Name when no name parts are present, so
// downstream output never shows an empty name.
const UnknownName = "неизвестно"

// Phone reduces a free-form phone string to bare digits. An 11-digit number
// starting with 7 or 8 loses its leading country digit; a 10-digit number
// passes through; any other digit count is returned as-is without error.
func Phone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && (digits[0] == '7' || digits[0] == '8') {
		return digits[1:]
	}
	return digits
}

// Name joins non-blank name parts with single spaces in last/first/middle
// order. All-blank input yields UnknownName, never an empty string.
func Name(last, first, middle string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{last, first, middle} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return UnknownName
	}
	return strings.Join(parts, " ")
}
