package parser

import (
	"fmt"
	"strings"

	"github.com/Limetric/mysqlcat/internal/lexer"
)

// SyntaxError describes a position where input did not match the grammar.
type SyntaxError struct {
	Offset  int
	Line    int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// abort is the panic payload used by Failf to unwind an extraction.
type abort struct{ err SyntaxError }

// Cursor walks the token stream of one statement. Extractors only move
// forward; the cursor never fails on reads past the end and reports EOF
// there instead.
type Cursor struct {
	src    string
	tokens []lexer.Token
	pos    int
	errs   []SyntaxError
}

// NewCursor creates a cursor over already lexed tokens. The token slice must
// end with an EOF token.
func NewCursor(src string, tokens []lexer.Token) *Cursor {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != lexer.EOF {
		tokens = append(tokens, lexer.Token{Kind: lexer.EOF, Offset: len(src), End: len(src)})
	}
	return &Cursor{src: src, tokens: tokens}
}

// Source returns the text the cursor was built from.
func (c *Cursor) Source() string { return c.src }

// Tokens returns all tokens including the trailing EOF.
func (c *Cursor) Tokens() []lexer.Token { return c.tokens }

// Errors returns the syntax errors recorded so far.
func (c *Cursor) Errors() []SyntaxError { return c.errs }

// Token returns the current token.
func (c *Cursor) Token() lexer.Token { return c.tokens[c.pos] }

// Peek returns the token n positions ahead of the current one.
func (c *Cursor) Peek(n int) lexer.Token {
	i := c.pos + n
	if i >= len(c.tokens) {
		return c.tokens[len(c.tokens)-1]
	}
	return c.tokens[i]
}

// Kind returns the current token kind.
func (c *Cursor) Kind() lexer.Kind { return c.tokens[c.pos].Kind }

// Text returns the current token text as written, quotes included.
func (c *Cursor) Text() string { return c.tokens[c.pos].Text }

// Unquoted returns the current token text with quoting removed.
func (c *Cursor) Unquoted() string { return c.tokens[c.pos].Value() }

// Is reports whether the current token is the keyword kw.
func (c *Cursor) Is(kw string) bool { return c.tokens[c.pos].Is(kw) }

// IsAny reports whether the current token is one of the given keywords.
func (c *Cursor) IsAny(kws ...string) bool {
	for _, kw := range kws {
		if c.Is(kw) {
			return true
		}
	}
	return false
}

// IsKind reports whether the current token has kind k.
func (c *Cursor) IsKind(k lexer.Kind) bool { return c.Kind() == k }

// PeekIs reports whether the token n positions ahead is the keyword kw.
func (c *Cursor) PeekIs(n int, kw string) bool { return c.Peek(n).Is(kw) }

// AtEnd reports whether the statement has been fully consumed.
func (c *Cursor) AtEnd() bool {
	k := c.Kind()
	return k == lexer.EOF || k == lexer.Semicolon
}

// Next advances by n tokens, stopping at EOF.
func (c *Cursor) Next(n int) {
	c.pos += n
	if c.pos >= len(c.tokens) {
		c.pos = len(c.tokens) - 1
	}
}

// Advance moves one token forward.
func (c *Cursor) Advance() { c.Next(1) }

// SkipIf advances past the keyword kw and n further tokens when the current
// token is kw.
func (c *Cursor) SkipIf(kw string, n int) bool {
	if !c.Is(kw) {
		return false
	}
	c.Next(1 + n)
	return true
}

// SkipKind advances past the current token when it has kind k.
func (c *Cursor) SkipKind(k lexer.Kind) bool {
	if c.Kind() != k {
		return false
	}
	c.Advance()
	return true
}

// SkipSubtree moves past the current token. If it opens a parenthesized
// group the whole group is skipped, including the closing parenthesis.
func (c *Cursor) SkipSubtree() {
	if c.Kind() != lexer.LParen {
		c.Advance()
		return
	}
	depth := 0
	for c.Kind() != lexer.EOF {
		switch c.Kind() {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
			if depth == 0 {
				c.Advance()
				return
			}
		}
		c.Advance()
	}
}

// SkipExpression moves past an expression: tokens are consumed until a comma,
// a closing parenthesis or one of the stop keywords appears outside of any
// nested group, or the statement ends.
func (c *Cursor) SkipExpression(stops ...string) {
	for !c.AtEnd() {
		switch c.Kind() {
		case lexer.Comma, lexer.RParen:
			return
		case lexer.LParen:
			c.SkipSubtree()
			continue
		}
		if c.IsAny(stops...) {
			return
		}
		c.Advance()
	}
}

// LookAhead reports whether the keyword kw appears anywhere after the
// current position without moving.
func (c *Cursor) LookAhead(kw string) bool {
	for i := c.pos; i < len(c.tokens); i++ {
		if c.tokens[i].Is(kw) {
			return true
		}
	}
	return false
}

// AdvanceTo moves forward until the current token is kw. If kw is not found
// the position is left unchanged and false is returned.
func (c *Cursor) AdvanceTo(kw string) bool {
	for i := c.pos; i < len(c.tokens); i++ {
		if c.tokens[i].Is(kw) {
			c.pos = i
			return true
		}
	}
	return false
}

// Mark returns the current position for later use with TextSince or Reset.
func (c *Cursor) Mark() int { return c.pos }

// Reset moves the cursor back to a mark.
func (c *Cursor) Reset(mark int) { c.pos = mark }

// TextSince returns the verbatim source from the token at mark up to the
// end of the token before the current position.
func (c *Cursor) TextSince(mark int) string {
	if mark >= c.pos || mark >= len(c.tokens) {
		return ""
	}
	return c.src[c.tokens[mark].Offset:c.tokens[c.pos-1].End]
}

// TextForTree returns the source text of the current token, or of the whole
// parenthesized group it opens, without moving.
func (c *Cursor) TextForTree() string {
	mark := c.pos
	c.SkipSubtree()
	text := c.TextSince(mark)
	c.pos = mark
	return text
}

// TextToEnd returns the source from the current token to the end of the
// statement, excluding a trailing semicolon.
func (c *Cursor) TextToEnd() string {
	start := c.Token().Offset
	end := start
	for i := c.pos; i < len(c.tokens); i++ {
		t := c.tokens[i]
		if t.Kind == lexer.EOF || (t.Kind == lexer.Semicolon && i == len(c.tokens)-2) {
			break
		}
		end = t.End
	}
	return strings.TrimSpace(c.src[start:end])
}

// Expect consumes the keyword kw or fails.
func (c *Cursor) Expect(kw string) {
	if !c.SkipIf(kw, 0) {
		c.Failf("expected %s but found %q", kw, c.Text())
	}
}

// ExpectKind consumes a token of kind k or fails.
func (c *Cursor) ExpectKind(k lexer.Kind) {
	if !c.SkipKind(k) {
		c.Failf("expected %s but found %q", k, c.Text())
	}
}

// Failf records a syntax error at the current token and aborts the running
// extraction. It must only be called inside Run.
func (c *Cursor) Failf(format string, args ...any) {
	t := c.Token()
	msg := fmt.Sprintf(format, args...)
	if t.Kind == lexer.EOF {
		msg += " at end of input"
	}
	err := SyntaxError{Offset: t.Offset, Line: t.Line, Message: msg}
	c.errs = append(c.errs, err)
	panic(abort{err})
}

// Run executes fn and converts an abort raised by Failf into a returned
// error. Other panics propagate.
func (c *Cursor) Run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(abort)
			if !ok {
				panic(r)
			}
			err = a.err
		}
	}()
	fn()
	return nil
}
