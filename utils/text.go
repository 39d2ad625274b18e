package utils

import (
	"strings"
	"unicode"
)

// NormaliseText turns non-breaking spaces into spaces, strips leading/trailing
// whitespace and collapses internal whitespace runs to one space.
func NormaliseText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
