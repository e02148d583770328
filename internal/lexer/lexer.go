// Package lexer tokenizes MySQL text. Whitespace and comments are not
// returned as tokens; the source text between two tokens can always be
// recovered from their offsets.
package lexer

import (
	"fmt"
	"strings"
)

// Error is a lexical error at a byte offset.
type Error struct {
	Offset int
	Line   int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var singleCharTokens = map[byte]Kind{
	'(': LParen,
	')': RParen,
	',': Comma,
	'.': Dot,
	';': Semicolon,
	'=': Equal,
	'@': At,
	'-': Minus,
	'+': Plus,
}

var multiCharOps = []string{"<=>", "->>", "<=", ">=", "<>", "!=", ":=", "||", "&&", "<<", ">>", "->"}

// Lexer scans one source string.
type Lexer struct {
	src      string
	pos      int
	line     int
	inHidden bool
}

// New returns a lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

// Tokenize returns all tokens of src, terminated by an EOF token.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token, skipping whitespace and comments.
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipHidden(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Offset: len(l.src), End: len(l.src), Line: l.line}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '`' || c == '\'' || c == '"':
		if err := l.scanQuoted(c); err != nil {
			return Token{}, err
		}
		kind := String
		if c == '`' {
			kind = QuotedIdent
		}
		return l.token(kind, start), nil

	case isDigit(c) || (c == '.' && isDigit(l.peek(1)) && !l.afterIdentifier(start)):
		return l.scanNumber(start), nil

	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return l.token(Word, start), nil
	}

	for _, op := range multiCharOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return l.token(Op, start), nil
		}
	}

	l.pos++
	if kind, ok := singleCharTokens[c]; ok {
		return l.token(kind, start), nil
	}
	return l.token(Op, start), nil
}

func (l *Lexer) token(kind Kind, start int) Token {
	text := l.src[start:l.pos]
	line := l.line
	l.line += strings.Count(text, "\n")
	return Token{Kind: kind, Text: text, Offset: start, End: l.pos, Line: line}
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

// afterIdentifier reports whether the byte before start ends an identifier,
// so ".5" in "t.5col" is a qualifier dot and not a number.
func (l *Lexer) afterIdentifier(start int) bool {
	if start == 0 {
		return false
	}
	p := l.src[start-1]
	return isIdentChar(p) || p == '`'
}

func (l *Lexer) skipHidden() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '#':
			l.skipLine()
		case c == '-' && l.peek(1) == '-' && (isSpace(l.peek(2)) || l.pos+2 >= len(l.src)):
			l.skipLine()
		case c == '*' && l.peek(1) == '/' && l.inHidden:
			l.inHidden = false
			l.pos += 2
		case c == '/' && l.peek(1) == '*':
			if l.peek(2) == '!' && !l.inHidden {
				l.inHidden = true
				l.pos += 3
				for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
					l.pos++
				}
				continue
			}
			start := l.pos
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return &Error{Offset: start, Line: l.line, Msg: "unterminated comment"}
			}
			l.pos += end + 4
			l.line += strings.Count(l.src[start:l.pos], "\n")
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) scanQuoted(q byte) error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && q != '`':
			l.pos += 2
		case c == q:
			if l.peek(1) == q {
				l.pos += 2
				continue
			}
			l.pos++
			return nil
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
	return &Error{Offset: start, Line: l.line, Msg: fmt.Sprintf("unterminated quoted text starting with %c", q)}
}

func (l *Lexer) scanNumber(start int) Token {
	if l.src[l.pos] == '0' && (l.peek(1) == 'x' || l.peek(1) == 'b') {
		l.pos += 2
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return l.token(Number, start)
	}

	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	// Identifiers may start with digits (e.g. 1st_table).
	if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) && l.src[l.pos] != 'e' && l.src[l.pos] != 'E' {
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return l.token(Word, start)
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && !l.afterIdentifier(start) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if c := l.peek(0); (c == 'e' || c == 'E') && (isDigit(l.peek(1)) || ((l.peek(1) == '-' || l.peek(1) == '+') && isDigit(l.peek(2)))) {
		l.pos += 2
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	} else if c == 'e' || c == 'E' {
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		return l.token(Word, start)
	}
	return l.token(Number, start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c >= 0x80 || c == '_' || c == '$' || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
