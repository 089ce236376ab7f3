package utils

// Truncate shortens s to at most maxLen runes, appending an ellipsis when
// anything was cut. Safe on multi-byte content.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
