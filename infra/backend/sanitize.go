package backend

import (
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy  = bluemonday.StrictPolicy()
	lineBreakRe = regexp.MustCompile(`(?i)</p>|<br\s*/?>`)
)

// sanitizeText turns user-supplied post bodies into plain terminal text:
// markup is stripped, entities decoded and escape sequences removed so a
// post cannot drive the terminal.
func sanitizeText(s string) string {
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = textPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(sanitizeForTerminal(s))
}

// sanitizeForTerminal removes ANSI sequences and control characters other
// than newlines and tabs.
func sanitizeForTerminal(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}
