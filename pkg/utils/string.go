// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Truncate shortens s to at most maxLen characters, marking the cut with an
// ellipsis. Used to keep record content previews in log output bounded.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
