package utils

// Truncate returns s cut to maxLen bytes with "..." appended when cut.
// If maxLen is 0 or negative, s is returned unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
