package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxCommentLength bounds transition comments, in runes
const MaxCommentLength = 2000

var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// ValidateIdentifier checks document, project and user ids
func ValidateIdentifier(kind, id string) error {
	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid %s: %q", kind, id)
	}
	return nil
}

// NormalizeComment strips control characters and surrounding space. Empty
// comments become nil.
func NormalizeComment(comment *string) (*string, error) {
	if comment == nil {
		return nil, nil
	}
	s := strings.TrimSpace(SanitizeString(*comment))
	if s == "" {
		return nil, nil
	}
	if n := utf8.RuneCountInString(s); n > MaxCommentLength {
		return nil, fmt.Errorf("comment exceeds %d characters: %d", MaxCommentLength, n)
	}
	return &s, nil
}

// SanitizeString removes control characters, keeping tabs and newlines
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
