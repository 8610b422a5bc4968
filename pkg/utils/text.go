package utils

import "unicode"

// HasControl reports whether s contains control characters such as CR, LF
// or NUL. Tabs count too.
func HasControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
