package util

import "unicode/utf8"

// TruncateRunes caps s at n characters (runes, not bytes).
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
