package tui

import (
	"fmt"
	"time"
)

// formatExpiry renders how far in the future t is, e.g. "in 2h 14m", rounded
// to the nearest minute. Mirrors
// internal/cli's FormatExpiry; kept as a separate copy since internal/cli
// imports this package and a shared helper would create an import cycle.
func formatExpiry(t time.Time) string {
	remaining := time.Until(t)
	if remaining <= 0 {
		return "expired"
	}
	remaining = remaining.Round(time.Minute)

	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("in %dh", hours)
	default:
		return fmt.Sprintf("in %dm", minutes)
	}
}
