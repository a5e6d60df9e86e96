package utils

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{
			name:     "zero",
			duration: 0,
			expected: "0s",
		},
		{
			name:     "seconds",
			duration: 42 * time.Second,
			expected: "42s",
		},
		{
			name:     "rounds to seconds",
			duration: 1500 * time.Millisecond,
			expected: "2s",
		},
		{
			name:     "minutes",
			duration: 3*time.Minute + 5*time.Second,
			expected: "3m 5s",
		},
		{
			name:     "hours",
			duration: 2*time.Hour + 30*time.Second,
			expected: "2h 0m 30s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatDuration(tt.duration)
			if result != tt.expected {
				t.Errorf("FormatDuration(%v) = %s; want %s", tt.duration, result, tt.expected)
			}
		})
	}
}

func TestExitStatus(t *testing.T) {
	if got := ExitStatus(0); got != "ok" {
		t.Errorf("ExitStatus(0) = %s; want ok", got)
	}
	if got := ExitStatus(23); got != "exit 23" {
		t.Errorf("ExitStatus(23) = %s; want exit 23", got)
	}
}
