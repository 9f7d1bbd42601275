package token

import (
	"fmt"
	"strings"

	terrors "github.com/hrygo/timenorm/internal/errors"
)

// SyntaxError reports a structural mismatch in tagger output at a byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Parse deserializes tagger output into an ordered token list.
//
//	input := (ws* entry)*      entry := key ws "{" ws attr* "}"
//	attr  := key ":" ws value  value := quoted | bare-numeral
//
// Parsing is a single forward pass. Any structural mismatch aborts with a
// MALFORMED_INPUT error wrapping a *SyntaxError; no partial list is returned.
func Parse(text string) ([]Token, error) {
	p := &parser{src: text}
	tokens, err := p.parse()
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrCodeMalformedInput, "malformed tagger output")
	}
	return tokens, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) parse() ([]Token, error) {
	var tokens []Token
	for {
		p.skipSpace()
		if p.eof() {
			return tokens, nil
		}
		tok, err := p.entry()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func (p *parser) entry() (Token, error) {
	typ, err := p.key()
	if err != nil {
		return Token{}, err
	}
	p.skipSpace()
	if err := p.expect('{'); err != nil {
		return Token{}, err
	}
	tok := Token{Type: typ}
	for {
		p.skipSpace()
		if p.eof() {
			return Token{}, p.errorf("unterminated entry %q, expected '}'", typ)
		}
		if p.peek() == '}' {
			p.pos++
			return tok, nil
		}
		k, err := p.key()
		if err != nil {
			return Token{}, err
		}
		if err := p.expect(':'); err != nil {
			return Token{}, err
		}
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return Token{}, err
		}
		tok.Attrs = append(tok.Attrs, Attr{Key: k, Value: v})
	}
}

func (p *parser) key() (string, error) {
	start := p.pos
	for !p.eof() && isKeyByte(p.peek(), p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		if p.eof() {
			return "", p.errorf("expected key, found end of input")
		}
		return "", p.errorf("expected key, found %q", p.peek())
	}
	return p.src[start:p.pos], nil
}

func (p *parser) value() (string, error) {
	if p.eof() {
		return "", p.errorf("expected value, found end of input")
	}
	if p.peek() == '"' {
		return p.quoted()
	}
	return p.numeral()
}

func (p *parser) quoted() (string, error) {
	open := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", &SyntaxError{Offset: open, Msg: "unterminated quoted value"}
		}
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return normalizeValue(b.String()), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return "", &SyntaxError{Offset: open, Msg: "unterminated quoted value"}
			}
			next := p.src[p.pos+1]
			if next != '\\' && next != '"' {
				b.WriteByte(c)
			}
			b.WriteByte(next)
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) numeral() (string, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	digits := 0
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
		digits++
	}
	if !p.eof() && p.peek() == '.' && digits > 0 {
		p.pos++
		frac := 0
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
			frac++
		}
		if frac == 0 {
			return "", &SyntaxError{Offset: start, Msg: "malformed numeral"}
		}
	}
	if digits == 0 {
		p.pos = start
		return "", p.errorf("expected quoted value or numeral, found %q", p.peek())
	}
	return p.src[start:p.pos], nil
}

func (p *parser) expect(c byte) error {
	if p.eof() {
		return p.errorf("expected %q, found end of input", c)
	}
	if p.peek() != c {
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// normalizeValue trims surrounding whitespace. A value made only of whitespace
// collapses to a single space: word-boundary tokens are significant upstream.
func normalizeValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" && v != "" {
		return " "
	}
	return trimmed
}

func isKeyByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case isDigit(c):
		return !first
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
