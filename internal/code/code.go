// Package code implements the Code parser: a recursive-descent,
// precedence-aware reader that turns UTF-8 source text into a graph
// of internal/model nodes held in an internal/container.Many.
package code

import (
	"strings"

	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/registry"
)

// Code wraps a slice of source text, exposing cursor helpers
// (LeftOf/RightOf/StartsWith*) in addition to Parse.
type Code struct {
	runes []rune
}

// New wraps src as Code.
func New(src string) Code {
	return Code{runes: []rune(src)}
}

func (c Code) String() string { return string(c.runes) }

// Len reports the number of runes in the code.
func (c Code) Len() int { return len(c.runes) }

// LeftOf returns the already-seen text up to position n, used to
// build parse-error context.
func (c Code) LeftOf(n int) string {
	if n > len(c.runes) {
		n = len(c.runes)
	}
	if n < 0 {
		n = 0
	}
	return string(c.runes[:n])
}

// RightOf returns the remaining text from position n onward.
func (c Code) RightOf(n int) string {
	if n > len(c.runes) {
		n = len(c.runes)
	}
	if n < 0 {
		n = 0
	}
	return string(c.runes[n:])
}

// StartsWithSkippable reports whether position n begins whitespace or
// a comment.
func (c Code) StartsWithSkippable(n int) bool {
	return isSkippable(c.runes, n)
}

// StartsWithOperator reports whether position n begins one of the
// built-in lexical operator tokens.
func (c Code) StartsWithOperator(n int) bool {
	_, ok := matchBuiltinOperator(c.runes, n)
	return ok
}

// StartsWithKeyword reports whether position n begins an alpha
// keyword token.
func (c Code) StartsWithKeyword(n int) bool {
	return n < len(c.runes) && isAlpha(c.runes[n])
}

// StartsWithNumber reports whether position n begins a digit.
func (c Code) StartsWithNumber(n int) bool {
	return n < len(c.runes) && isDigit(c.runes[n])
}

// Parse parses the wrapped code against reg, returning the resulting
// graph. If optimize is true, arithmetic verbs over literal reals are
// constant-folded and the result collapsed via Many.Optimize.
func (c Code) Parse(reg *registry.Registry, optimize bool) (*container.Many, error) {
	p := &parser{src: c.runes, reg: reg}
	result, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if p.pos < len(p.src) {
		// Unconsumed trailing characters: a warning, not a hard
		// failure - the parse already produced a graph.
		p.warnings = append(p.warnings, "unconsumed trailing input: "+string(p.src[p.pos:]))
	}
	if optimize {
		result = optimizeTree(reg, result)
		result.Optimize()
	}
	return result, nil
}

// ParseWithWarnings behaves like Parse but also returns any trailing-
// input warnings collected during the parse.
func (c Code) ParseWithWarnings(reg *registry.Registry, optimize bool) (*container.Many, []string, error) {
	p := &parser{src: c.runes, reg: reg}
	result, err := p.parseBody()
	if err != nil {
		return nil, nil, err
	}
	p.skipWhitespaceAndComments()
	if p.pos < len(p.src) {
		p.warnings = append(p.warnings, "unconsumed trailing input: "+string(p.src[p.pos:]))
	}
	if optimize {
		result = optimizeTree(reg, result)
		result.Optimize()
	}
	return result, p.warnings, nil
}

func isAlpha(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isAlphaNumericKeyword(r rune) bool {
	return isAlpha(r) || isDigit(r) || r == ':'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSkippable(src []rune, pos int) bool {
	if pos >= len(src) {
		return false
	}
	r := src[pos]
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ',' || r == '|'
}

// builtinOperatorTokens is the closed set of built-in lexical
// operators, longest first so a greedy scan never stops short
// ("?" before "??").
var builtinOperatorTokens = []string{
	"const", "??", "0x", "(", ")", "[", "]", "|", "\"", "`", "'", "?", "*", "^", "@", "!",
}

func matchBuiltinOperator(src []rune, pos int) (string, bool) {
	for _, tok := range builtinOperatorTokens {
		runes := []rune(tok)
		if pos+len(runes) > len(src) {
			continue
		}
		match := true
		for i, r := range runes {
			if src[pos+i] != r {
				match = false
				break
			}
		}
		if match {
			return tok, true
		}
	}
	return "", false
}

func trimHint(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
