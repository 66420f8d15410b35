package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidSessionID reports whether id is safe to use as a store key and as a
// file name. Path separators and dots are rejected.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// NewSessionID creates a session identifier using UUID v4.
func NewSessionID() string {
	return uuid.New().String()
}

// GenerateRequestID creates a unique request identifier using UUID v4.
func GenerateRequestID() string {
	return uuid.New().String()
}

// Preview returns the first n characters of s on a single line, for log
// fields.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			s = s[:i]
			break
		}
		count++
	}
	return strings.ReplaceAll(s, "\n", " ")
}
