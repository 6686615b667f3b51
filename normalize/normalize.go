package normalize

import (
	"regexp"
	"strings"
)

// MinLineLength is the shortest trimmed line kept by StripBoilerplate.
const MinLineLength = 3

var (
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t]{2,}`)
	boilerplate    = regexp.MustCompile(`(?i)^\s*(cookies?|privacy|terms|subscribe|sign in|login)\b`)
)

// Whitespace normalizes line endings to LF, collapses three or more
// consecutive newlines into one blank line, collapses runs of spaces and
// tabs of two or more into a single space and trims the result.
func Whitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	s = horizontalRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripBoilerplate drops empty lines, lines shorter than MinLineLength and
// lines that open with a cookie, privacy, terms, subscribe or login prompt.
func StripBoilerplate(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < MinLineLength {
			continue
		}
		if boilerplate.MatchString(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// Clean applies Whitespace followed by StripBoilerplate. It never fails;
// input made only of boilerplate yields the empty string.
func Clean(s string) string {
	return StripBoilerplate(Whitespace(s))
}
