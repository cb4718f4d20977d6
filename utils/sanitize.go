package utils

import "strings"

// SanitizeUsername maps a username to the directory name used on disk and in
// logical paths. Every rune outside [a-zA-Z0-9] becomes a single underscore.
func SanitizeUsername(username string) string {
	var b strings.Builder
	b.Grow(len(username))
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
