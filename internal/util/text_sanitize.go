package util

import (
	"regexp"
	"strings"
)

var blankRuns = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

// SanitizeText drops NUL and other control characters that Postgres text
// columns reject or that PDF extractors leave behind, collapses runs of blank
// lines, and trims the result. Newlines and tabs are kept.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case r < 0x20 || r == 0x7f || r == '�':
			return -1
		}
		return r
	}, strings.ReplaceAll(s, "\r\n", "\n"))
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
