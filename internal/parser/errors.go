package parser

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/addisoncrump/delegatord/internal/lexer"
)

// allKeywords is the full candidate set for the fuzzy suggestion below: the
// reserved words plus the two structural words that aren't reserved ("with",
// "delegate") and the four right names.
var allKeywords = []string{
	"all", "append", "as", "change", "create", "default", "delegate",
	"delegation", "delegator", "delete", "do", "exit", "foreach", "in",
	"local", "password", "principal", "read", "replacewith", "return",
	"set", "to", "with", "write",
}

// Error is a parse error. Like lexer.Error, its only wire effect is
// {status: FAILED} — this type exists to carry a diagnostic for logs, with
// a Rust/Clang-style caret snippet.
type Error struct {
	Line, Column int
	Message      string
	input        string
}

func (e *Error) Error() string {
	snippet := e.snippet()
	if snippet == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s\n%s", e.Line, e.Column, e.Message, snippet)
}

func (e *Error) snippet() string {
	if e.input == "" || e.Line == 0 {
		return ""
	}
	lines := strings.Split(e.input, "\n")
	if e.Line > len(lines) {
		return ""
	}
	line := lines[e.Line-1]

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %d:%d\n", e.Line, e.Column)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", e.Line, line)
	b.WriteString("   | ")
	if e.Column > 0 && e.Column <= len(line)+1 {
		b.WriteString(strings.Repeat(" ", e.Column-1) + "^")
	}
	return b.String()
}

func (p *Parser) errf(tok lexer.Token, format string, args ...interface{}) error {
	return &Error{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...), input: p.input}
}

// suggestKeyword returns the closest known keyword to a misspelled word, for
// the parser's callers to log in their own diagnostics. Only keywords that
// fuzzily contain got (its letters in order, case-insensitively) are
// candidates; with none, it returns "". It never changes the wire-visible
// outcome, which is always {status: FAILED} regardless of whether a
// suggestion was found.
func suggestKeyword(got string) string {
	ranks := fuzzy.RankFindFold(got, allKeywords)
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}
