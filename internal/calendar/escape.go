package calendar

import (
	"html"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Escaper neutralises user-supplied text for the markup it will be
// embedded in.
type Escaper interface {
	Escape(s string) string
}

// EscaperFunc adapts a function to Escaper.
type EscaperFunc func(string) string

func (f EscaperFunc) Escape(s string) string { return f(s) }

// HTMLEscaper escapes for HTML text and attribute content.
var HTMLEscaper Escaper = EscaperFunc(html.EscapeString)

// TerminalEscaper strips escape sequences and control characters so that
// entry text cannot drive the terminal. Newlines and tabs survive.
var TerminalEscaper Escaper = EscaperFunc(func(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r < 0xa0:
			return -1
		}
		return r
	}, s)
})
