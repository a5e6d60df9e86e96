package utils

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration as hours, minutes and seconds
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ExitStatus describes a process exit code for display
func ExitStatus(code int) string {
	if code == 0 {
		return "ok"
	}
	return fmt.Sprintf("exit %d", code)
}
