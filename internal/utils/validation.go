package utils

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeString strips control characters and HTML-escapes the rest,
// so free-text fields (expense titles, rejection reasons) can't carry
// markup or terminal escapes into logs, CSV exports, or the audit log.
func SanitizeString(input string) string {
	sanitized := html.EscapeString(input)

	var result strings.Builder
	for _, r := range sanitized {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}

// TrimAndValidate trims whitespace, rejects blank or over-long input,
// and sanitizes what remains.
func TrimAndValidate(s string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", ErrEmptyString
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return "", ErrStringTooLong
	}
	return SanitizeString(trimmed), nil
}

var (
	ErrEmptyString   = &ValidationError{Code: "EMPTY_STRING", Message: "string cannot be empty"}
	ErrStringTooLong = &ValidationError{Code: "STRING_TOO_LONG", Message: "string exceeds maximum length"}
)

// ValidationError is a plain code/message pair, independent of the
// richer domain.ValidationError used for actor-facing API errors.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
