package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc", true},
		{"8f14e45f-ceea-467f-a1b4-5c3d2e1f0a9b", true},
		{"chat_2024", true},
		{"", false},
		{"../etc/passwd", false},
		{"a/b", false},
		{"a.json", false},
		{strings.Repeat("x", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSessionID(tt.id))
		})
	}
}

func TestNewSessionIDIsValid(t *testing.T) {
	id := NewSessionID()
	assert.True(t, ValidSessionID(id))
	assert.NotEqual(t, id, NewSessionID())
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "short", 10, "short"},
		{"cut", "abcdef", 3, "abc"},
		{"characters_not_bytes", "题目描述入力", 4, "题目描述"},
		{"newlines_flattened", "line one\nline two\n", 100, "line one line two "},
		{"newline_past_cut_dropped", "ab\ncd", 2, "ab"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
