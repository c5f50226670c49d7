package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{name: "empty", secret: "", expected: ""},
		{name: "short fully masked", secret: "abc123", expected: "******"},
		{name: "keeps last four", secret: "super-secret-token", expected: "**************oken"},
		{name: "boundary length", secret: "12345678", expected: "********"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSecret(tt.secret))
		})
	}
}

func TestMaskContent(t *testing.T) {
	assert.Equal(t, "hello", MaskContent("hello", 10))
	assert.Equal(t, "hello...", MaskContent("hello world", 5))
	// Default cap applies when maxLen is zero.
	long := strings.Repeat("a", 40)
	assert.Equal(t, 35, len(MaskContent(long, 0)))
}
