package lexer

import "strings"

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Word
	QuotedIdent
	String
	Number
	LParen
	RParen
	Comma
	Dot
	Semicolon
	Equal
	At
	Minus
	Plus
	Op
)

var kindNames = map[Kind]string{
	EOF:         "EOF",
	Word:        "WORD",
	QuotedIdent: "QUOTED_IDENTIFIER",
	String:      "STRING",
	Number:      "NUMBER",
	LParen:      "(",
	RParen:      ")",
	Comma:       ",",
	Dot:         ".",
	Semicolon:   ";",
	Equal:       "=",
	At:          "@",
	Minus:       "-",
	Plus:        "+",
	Op:          "OPERATOR",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a lexical unit with its byte span in the source text.
type Token struct {
	Kind   Kind
	Text   string
	Offset int
	End    int
	Line   int
}

// Upper returns the token text in upper case. Only meaningful for words.
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

// Is reports whether t is the unquoted keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, kw)
}

// IsIdentifier reports whether t can name an object.
func (t Token) IsIdentifier() bool {
	return t.Kind == Word || t.Kind == QuotedIdent || t.Kind == String
}

// Value returns the token text with quotes removed and escapes resolved
// for quoted identifiers and strings. Other tokens are returned as is.
func (t Token) Value() string {
	switch t.Kind {
	case QuotedIdent, String:
		return Unquote(t.Text)
	}
	return t.Text
}

// Unquote strips one level of MySQL quoting from s. Doubled quote characters
// collapse to one and backslash escapes are resolved inside string literals.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '`' && q != '\'' && q != '"') || s[len(s)-1] != q {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.ContainsRune(body, rune(q)) && (q == '`' || !strings.ContainsRune(body, '\\')) {
		return body
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == q && i+1 < len(body) && body[i+1] == q:
			b.WriteByte(q)
			i++
		case c == '\\' && q != '`' && i+1 < len(body):
			i++
			b.WriteByte(unescape(body[i]))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 'b':
		return '\b'
	case 'Z':
		return 0x1a
	}
	return c
}
