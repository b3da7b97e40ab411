package utils

import "strings"

// StringHelper provides string utility functions.
type StringHelper struct{}

// NewStringHelper creates a new string helper.
func NewStringHelper() *StringHelper {
	return &StringHelper{}
}

// NormalizeWhitespace replaces multiple whitespace with single space.
func (s *StringHelper) NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// Truncate hard-cuts the string to at most max runes. No ellipsis is added:
// the record store enforces field-length ceilings and rejects overlong values.
func (s *StringHelper) Truncate(str string, max int) string {
	if max <= 0 {
		return ""
	}

	runes := []rune(str)
	if len(runes) <= max {
		return str
	}

	return string(runes[:max])
}

// FirstLine returns the first non-empty line, trimmed.
func (s *StringHelper) FirstLine(str string) string {
	for line := range strings.SplitSeq(str, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
