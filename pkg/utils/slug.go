package utils

import (
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_]+`)
)

// Slugify lowercases s, drops characters other than letters, combining marks,
// digits, whitespace and hyphens, turns whitespace and underscore runs into a
// single hyphen and trims hyphens from both ends.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparate.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
