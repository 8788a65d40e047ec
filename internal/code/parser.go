package code

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowlang/flow/internal/charge"
	"github.com/flowlang/flow/internal/container"
	"github.com/flowlang/flow/internal/flowerr"
	"github.com/flowlang/flow/internal/model"
	"github.com/flowlang/flow/internal/registry"
)

// parser holds the mutable cursor state of one Parse call. It is built
// fresh per call - nothing here is safe to share across goroutines or
// across Code values.
type parser struct {
	src      []rune
	pos      int
	reg      *registry.Registry
	warnings []string
	opTokens []string // lazily cached, longest-first
}

func (p *parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *parser) peekRune() rune {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekRuneAt(offset int) rune {
	i := p.pos + offset
	if i < 0 || i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

// skipWhitespaceAndComments consumes layout noise: ASCII whitespace,
// the comma (a scope's sequence is built purely by adjacency, so a
// comma between two terms is skippable exactly like whitespace), and
// `| … |`-delimited comments.
func (p *parser) skipWhitespaceAndComments() {
	for !p.atEnd() {
		r := p.peekRune()
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ',':
			p.pos++
		case r == '|':
			p.pos++
			for !p.atEnd() && p.peekRune() != '|' {
				p.pos++
			}
			if !p.atEnd() {
				p.pos++ // consume closing '|'
			}
		default:
			return
		}
	}
}

// parseBody parses a sequence of terms, SmartPush-merging each into an
// accumulating container - this is how a scope's default AND sequence is
// built: purely by adjacency of successfully parsed terms, no separator
// token required. Parsing halts (without consuming) at a ')': inside a
// scope that is the closer, at top level it surfaces as the trailing-
// input warning.
func (p *parser) parseBody() (*container.Many, error) {
	acc := container.Empty()
	for {
		p.skipWhitespaceAndComments()
		if p.atEnd() {
			break
		}
		if p.peekRune() == ')' {
			break
		}
		term, err := p.parseOperatorExpr(0)
		if err != nil {
			return nil, err
		}
		if acc.IsConstant() {
			// A const term earlier in the sequence made the accumulator
			// itself constant; demote it to a child so the sequence can
			// keep growing while the term keeps its bit.
			acc = container.NewDeep(acc)
		}
		if err := acc.SmartPush(term); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// parseOperatorExpr is the precedence-climbing loop: parse one
// primary term, then keep extending it with reflected operators and
// verbs whose precedence exceeds minPrec.
func (p *parser) parseOperatorExpr(minPrec int) (*container.Many, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespaceAndComments()
		meta, tok, consumed, prec, ok := p.matchInfix()
		if !ok || prec <= minPrec {
			break
		}
		p.pos += consumed
		rhs, err := p.parseOperatorExpr(prec)
		if err != nil {
			return nil, err
		}
		lhs = p.buildVerbApplication(meta, tok, lhs, rhs)
	}
	return lhs, nil
}

// matchInfix looks for a reflected operator token or a reflected verb
// keyword at the cursor, without consuming anything - the caller decides
// whether to consume based on precedence.
func (p *parser) matchInfix() (meta *registry.VerbMeta, tok string, consumed, precedence int, ok bool) {
	if p.atEnd() || p.peekRune() == ')' {
		return nil, "", 0, 0, false
	}
	if t, op, found := p.matchOperatorToken(); found {
		return op.Verb, t, len([]rune(t)), op.Precedence, true
	}
	if isAlpha(p.peekRune()) {
		kw, end := p.peekKeyword()
		m := p.reg.DisambiguateMeta(kw)
		if m != nil && m.Verb != nil {
			return m.Verb, kw, end - p.pos, m.Verb.Precedence(), true
		}
	}
	return nil, "", 0, 0, false
}

func (p *parser) operatorTokens() []string {
	if p.opTokens == nil {
		p.opTokens = p.reg.OperatorTokens()
		if p.opTokens == nil {
			p.opTokens = []string{}
		}
	}
	return p.opTokens
}

func (p *parser) matchOperatorToken() (string, *registry.Operator, bool) {
	for _, tok := range p.operatorTokens() {
		if p.hasPrefixAt(p.pos, tok) {
			return tok, p.reg.GetOperator(tok), true
		}
	}
	return "", nil, false
}

func (p *parser) hasPrefixAt(pos int, s string) bool {
	runes := []rune(s)
	if pos+len(runes) > len(p.src) {
		return false
	}
	for i, r := range runes {
		if p.src[pos+i] != r {
			return false
		}
	}
	return true
}

// peekKeyword reads the alpha-numeric-colon identifier starting at the
// cursor without consuming it, returning the text and its end position.
func (p *parser) peekKeyword() (string, int) {
	end := p.pos
	for end < len(p.src) && isAlphaNumericKeyword(p.src[end]) {
		end++
	}
	return string(p.src[p.pos:end]), end
}

// buildVerbApplication produces Verb{meta, source=lhs, argument=rhs},
// setting mass=-1 if tok is meta's reverse token.
func (p *parser) buildVerbApplication(meta *registry.VerbMeta, tok string, lhs, rhs *container.Many) *container.Many {
	v := model.NewVerb(meta)
	v.SetSource(lhs)
	v.SetArgument(rhs)
	if meta.ReverseToken() != "" && tok == meta.ReverseToken() {
		v.WithMass(-1)
	}
	return wrapVerb(v)
}

// parsePrimary is the tail of the unknown-parser loop: skippable
// input is already gone by the time this runs, so what remains is a
// builtin-operator sub-parser, a keyword, a number, or a parse error.
func (p *parser) parsePrimary() (*container.Many, error) {
	p.skipWhitespaceAndComments()
	if p.atEnd() {
		return container.Empty(), nil
	}
	r := p.peekRune()
	switch {
	case r == '(':
		return p.parseScope()
	case r == '[':
		return p.parseCodeLiteral()
	case r == '"':
		return p.parseStringScope('"')
	case r == '`':
		return p.parseStringScope('`')
	case r == '\'':
		return p.parseStringScope('\'')
	case r == '?':
		return p.parseMissingMarker()
	case r == '0' && p.peekRuneAt(1) == 'x':
		return p.parseByteLiteral()
	case isDigit(r):
		return p.parseNumberLiteral()
	case isAlpha(r):
		return p.parseKeywordTerm()
	}
	// A bare reflected operator token with nothing to its left: apply
	// it with an empty source. Unary minus and friends fall out of the
	// general verb-application rule instead of a dedicated grammar.
	if tok, op, ok := p.matchOperatorToken(); ok {
		p.pos += len([]rune(tok))
		rhs, err := p.parseOperatorExpr(op.Precedence)
		if err != nil {
			return nil, err
		}
		v := model.NewVerb(op.Verb)
		v.SetArgument(rhs)
		if op.ReverseToken != "" && tok == op.ReverseToken {
			v.WithMass(-1)
		}
		return wrapVerb(v), nil
	}
	return nil, p.errorf("unexpected character %q", r)
}

// parseScope parses `(` expr `)` at the lowest precedence, returning
// the body content directly - insertion into whatever preceded the
// scope (if anything) is the caller's job (parseKeywordTerm).
func (p *parser) parseScope() (*container.Many, error) {
	p.pos++ // consume '('
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	p.skipWhitespaceAndComments()
	if p.atEnd() || p.peekRune() != ')' {
		return nil, p.errorf("unterminated scope: expected ')'")
	}
	p.pos++ // consume ')'
	return body, nil
}

// parseCodeLiteral parses a `[ … ]` code literal, tracking nested
// brackets, and returns the raw inner text as an unparsed text value - a
// caller that wants it as a graph re-parses it with Code.Parse.
func (p *parser) parseCodeLiteral() (*container.Many, error) {
	p.pos++ // consume '['
	start := p.pos
	depth := 1
	for !p.atEnd() && depth > 0 {
		switch p.peekRune() {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				text := string(p.src[start:p.pos])
				p.pos++ // consume ']'
				return p.wrapText(text), nil
			}
		}
		p.pos++
	}
	return nil, p.errorf("unterminated code literal: expected ']'")
}

// parseStringScope parses string / string-alt / char scopes (closer
// is the matching delimiter), decoding the escape scheme
// `\\ \" \' \` \n \t \r \0 \xHH`. Any other escape is a parse error.
func (p *parser) parseStringScope(closer rune) (*container.Many, error) {
	p.pos++ // consume opening delimiter
	var sb strings.Builder
	for {
		if p.atEnd() {
			return nil, p.errorf("unterminated scope: expected %q", closer)
		}
		r := p.peekRune()
		if r == closer {
			p.pos++
			break
		}
		if r == '\\' {
			p.pos++
			decoded, err := p.decodeEscape()
			if err != nil {
				return nil, err
			}
			sb.WriteRune(decoded)
			continue
		}
		sb.WriteRune(r)
		p.pos++
	}
	return p.wrapText(sb.String()), nil
}

func (p *parser) decodeEscape() (rune, error) {
	if p.atEnd() {
		return 0, p.errorf("unterminated escape sequence")
	}
	r := p.peekRune()
	p.pos++
	switch r {
	case '\\':
		return '\\', nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case '`':
		return '`', nil
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case 'x':
		if p.pos+2 > len(p.src) {
			return 0, p.errorf("truncated \\x escape")
		}
		hex := string(p.src[p.pos : p.pos+2])
		v, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return 0, p.errorf("invalid \\x escape %q", hex)
		}
		p.pos += 2
		return rune(v), nil
	default:
		return 0, p.errorf("unknown escape sequence \\%c", r)
	}
}

// parseByteLiteral parses `0x[0-9a-f]+`, accumulating nibbles into a
// byte sequence.
func (p *parser) parseByteLiteral() (*container.Many, error) {
	p.pos += 2 // consume "0x"
	start := p.pos
	for !p.atEnd() && isHexDigit(p.peekRune()) {
		p.pos++
	}
	digits := string(p.src[start:p.pos])
	if len(digits) == 0 {
		return nil, p.errorf("byte literal requires at least one hex digit")
	}
	if len(digits)%2 != 0 {
		digits = "0" + digits
	}
	buf := make([]byte, len(digits)/2)
	for i := 0; i < len(buf); i++ {
		v, err := strconv.ParseUint(digits[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, p.errorf("invalid byte literal %q", digits)
		}
		buf[i] = byte(v)
	}
	meta := p.reg.GetMetaData("bytes")
	if meta == nil {
		return nil, p.errorf("byte literal requires a registered 'bytes' data type")
	}
	return container.NewTyped(meta, buf), nil
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// parseMissingMarker parses `?` or `??`, optionally filtered by a
// preceding type/trait meta (the `A::Text??` form).
func (p *parser) parseMissingMarker(filter ...container.Meta) (*container.Many, error) {
	p.pos++ // consume first '?'
	future := false
	if p.peekRune() == '?' {
		p.pos++
		future = true
	}
	var point *model.MissingPoint
	if future {
		point = model.NewMissingFuture(filter...)
	} else {
		point = model.NewMissingPast(filter...)
	}
	return point.Wrap(), nil
}

// parseNumberLiteral parses an unsigned real literal as a primary term.
func (p *parser) parseNumberLiteral() (*container.Many, error) {
	v, err := p.scanNumber()
	if err != nil {
		return nil, err
	}
	meta := p.reg.GetMetaData("number")
	if meta == nil {
		return nil, p.errorf("number literal requires a registered 'number' data type")
	}
	return container.NewTyped(meta, v), nil
}

func (p *parser) scanNumber() (float64, error) {
	start := p.pos
	if p.peekRune() == '-' {
		p.pos++
	}
	for !p.atEnd() && isDigit(p.peekRune()) {
		p.pos++
	}
	if !p.atEnd() && p.peekRune() == '.' && isDigit(p.peekRuneAt(1)) {
		p.pos++
		for !p.atEnd() && isDigit(p.peekRune()) {
			p.pos++
		}
	}
	if !p.atEnd() && (p.peekRune() == 'e' || p.peekRune() == 'E') {
		la := 1
		if p.peekRuneAt(1) == '+' || p.peekRuneAt(1) == '-' {
			la = 2
		}
		if isDigit(p.peekRuneAt(la)) {
			p.pos += la + 1
			for !p.atEnd() && isDigit(p.peekRune()) {
				p.pos++
			}
		}
	}
	text := string(p.src[start:p.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, p.errorf("invalid number literal %q", text)
	}
	return v, nil
}

// parseKeywordTerm reads an identifier, disambiguates it, and
// branches per the kind of meta it resolved to - applying the charge
// sub-parser and the scope-insertion rules along the way.
func (p *parser) parseKeywordTerm() (*container.Many, error) {
	start := p.pos
	kw, end := p.peekKeyword()
	p.pos = end

	if kw == "const" {
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return inner.MakeConst(), nil
	}

	resolved := p.reg.DisambiguateMeta(kw)
	if resolved == nil {
		p.pos = start
		suggestion := p.reg.SuggestToken(kw)
		var suggestions []string
		if suggestion != "" {
			suggestions = []string{suggestion}
		}
		return nil, &flowerr.ParseError{
			Position:     p.pos,
			Message:      "unknown token " + strconv.Quote(kw),
			LeftContext:  trimHint(p.LeftOfRunes(p.pos), 40),
			RightContext: trimHint(p.RightOfRunes(p.pos), 40),
			Suggestions:  suggestions,
		}
	}

	// A type/trait meta immediately followed by a missing marker
	// becomes that marker's filter instead of a bare Construct/Trait
	// (`A::Text??`).
	if (resolved.Data != nil || resolved.Trait != nil) && p.peekRune() == '?' {
		var filterMeta container.Meta
		if resolved.Data != nil {
			filterMeta = resolved.Data
		} else {
			filterMeta = resolved.Trait
		}
		return p.parseMissingMarker(filterMeta)
	}

	switch {
	case resolved.Data != nil:
		return p.parseConstructTerm(resolved.Data)
	case resolved.Trait != nil:
		return p.parseTraitTerm(resolved.Trait)
	case resolved.Verb != nil:
		return p.parseVerbTerm(resolved.Verb, strings.EqualFold(kw, resolved.Verb.ReverseToken()))
	case resolved.Constant != nil:
		return container.NewTyped(resolved.Constant.Meta(), resolved.Constant.Value()), nil
	}
	return container.Empty(), nil
}

func (p *parser) parseConstructTerm(meta *registry.DataMeta) (*container.Many, error) {
	c := model.NewConstruct(meta)
	if err := p.parseChargeOps(&c.Charge); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespaceAndComments()
		if p.peekRune() != '(' {
			break
		}
		content, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		if err := c.Descriptor.SmartPush(content); err != nil {
			return nil, err
		}
	}
	// The verb base opened with a scope becomes Verb(content), not a
	// Construct (the insertion table's verb-base row).
	if meta.Token() == "verb" && !c.Descriptor.IsEmpty() {
		return wrapVerb(verbFromContent(c)), nil
	}
	if c.Descriptor.IsEmpty() && meta.DefaultConstructor() != nil {
		meta.DefaultConstructor()()
	}
	return wrapConstruct(c), nil
}

// verbFromContent realizes `Verb(content)`: the first term of the
// content becomes the verb's source, the remainder its argument. A
// single-term content is all argument.
func verbFromContent(c *model.Construct) *model.Verb {
	v := model.NewVerb(c.TypeMeta)
	v.Charge = c.Charge
	content := c.Descriptor
	if content.IsDeep() && content.Len() > 1 {
		v.SetSource(content.DeepAt(0))
		rest := container.FromStateOf(content)
		for i := 1; i < content.Len(); i++ {
			_ = rest.SmartPush(content.DeepAt(i))
		}
		v.SetArgument(rest)
		return v
	}
	v.SetArgument(content)
	return v
}

func (p *parser) parseTraitTerm(meta *registry.TraitMeta) (*container.Many, error) {
	t := model.NewTrait(meta)
	for {
		p.skipWhitespaceAndComments()
		if p.peekRune() != '(' {
			break
		}
		content, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		if err := t.Content.SmartPush(content); err != nil {
			return nil, err
		}
	}
	return wrapTrait(t), nil
}

func (p *parser) parseVerbTerm(meta *registry.VerbMeta, reverse bool) (*container.Many, error) {
	v := model.NewVerb(meta)
	if reverse {
		v.WithMass(-1)
	}
	if err := p.parseChargeOps(&v.Charge); err != nil {
		return nil, err
	}
	for {
		p.skipWhitespaceAndComments()
		if p.peekRune() != '(' {
			break
		}
		content, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		if err := v.Argument.SmartPush(content); err != nil {
			return nil, err
		}
	}
	return wrapVerb(v), nil
}

// parseChargeOps consumes a run of `*`/`^`/`@`/`!` charge operators, each
// followed by a signed number literal, accumulating into c. A charge
// token not followed by a number is left unconsumed - it belongs to
// the Multiply/Exponent operator entries instead: the charge reading
// of `*`/`^` wins right after a keyword, the reflected operator wins
// everywhere else.
func (p *parser) parseChargeOps(c *charge.Charge) error {
	for {
		p.skipWhitespaceAndComments()
		if p.atEnd() {
			return nil
		}
		op := p.peekRune()
		if op != '*' && op != '^' && op != '@' && op != '!' {
			return nil
		}
		next := p.peekRuneAt(1)
		if !isDigit(next) && !(next == '-' && isDigit(p.peekRuneAt(2))) {
			return nil
		}
		p.pos++
		v, err := p.scanNumber()
		if err != nil {
			return err
		}
		switch op {
		case '*':
			*c = c.Scale(v)
		case '^':
			*c = c.ScaleRate(v)
		case '@':
			*c = c.WithTime(v)
		case '!':
			*c = c.WithPriority(v)
		}
	}
}

func (p *parser) wrapText(s string) *container.Many {
	meta := p.reg.GetMetaData("text")
	if meta == nil {
		// Falls back to a nil-meta typed container only if the caller
		// never registered a text type - SmartPush/Equal still work
		// structurally, just without a castable identity.
		return container.NewTyped(nil, s)
	}
	return container.NewTyped(meta, s)
}

// LeftOfRunes/RightOfRunes mirror Code.LeftOf/RightOf but operate directly
// on the parser's own rune buffer (used for error context mid-parse).
func (p *parser) LeftOfRunes(n int) string  { return Code{runes: p.src}.LeftOf(n) }
func (p *parser) RightOfRunes(n int) string { return Code{runes: p.src}.RightOf(n) }

func (p *parser) errorf(format string, args ...any) error {
	return &flowerr.ParseError{
		Position:     p.pos,
		Message:      fmt.Sprintf(format, args...),
		LeftContext:  trimHint(p.LeftOfRunes(p.pos), 40),
		RightContext: trimHint(p.RightOfRunes(p.pos), 40),
	}
}

// wrapVerb/wrapConstruct/wrapTrait box a graph node as the single-element
// typed Many every scope-level term is represented as.
func wrapVerb(v *model.Verb) *container.Many         { return container.NewTyped(v.VerbMeta, v) }
func wrapConstruct(c *model.Construct) *container.Many { return container.NewTyped(c.TypeMeta, c) }
func wrapTrait(t *model.Trait) *container.Many         { return container.NewTyped(t.TraitMeta, t) }
