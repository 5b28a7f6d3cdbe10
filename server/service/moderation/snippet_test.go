package moderation

import (
	"strings"
	"testing"
)

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{
			name:     "short text unchanged",
			text:     "quarterly revenue report",
			maxChars: 120,
			want:     "quarterly revenue report",
		},
		{
			name:     "empty text",
			text:     "",
			maxChars: 120,
			want:     "",
		},
		{
			name:     "cut lands on word boundary",
			text:     "alpha beta gamma delta",
			maxChars: 12,
			want:     "alpha beta gamma...",
		},
		{
			name:     "zero max falls back to default",
			text:     strings.Repeat("word ", 40),
			maxChars: 0,
			want:     strings.Repeat("word ", 24) + "word...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snippet(tt.text, tt.maxChars)
			if got != tt.want {
				t.Errorf("snippet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdjustToWordBoundary(t *testing.T) {
	runes := []rune("hello world example")
	// Position 7 is inside "world"; nearest separator forward is index 11.
	if got := adjustToWordBoundary(runes, 7); got != 11 {
		t.Errorf("adjustToWordBoundary() = %d, want 11", got)
	}
	// No separator within scan range keeps the original position.
	long := []rune(strings.Repeat("x", 40))
	if got := adjustToWordBoundary(long, 10); got != 10 {
		t.Errorf("adjustToWordBoundary() = %d, want 10", got)
	}
}
