package acquisition

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`(?i)^(?:page\s+)?-?\s*\d{1,4}\s*-?(?:\s+of\s+\d{1,4})?$`)
	caseHeaderLine = regexp.MustCompile(`(?i)^case\s+[\d:.\-a-z]+\s+document\s+\d+\s+filed\b.*page\s+\d+\s+of\s+\d+.*$`)
	innerSpace     = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
)

// Clean normalizes extracted text: it collapses runs of spaces, drops
// page-number and court filing header lines, and squeezes blank lines so
// paragraphs are separated by exactly one empty line.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(innerSpace.ReplaceAllString(line, " "))
		if pageNumberLine.MatchString(line) || caseHeaderLine.MatchString(line) {
			continue
		}
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
