package ddl

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
)

// Identifier is an object name with an optional schema qualifier.
type Identifier struct {
	Qualifier string
	Name      string
}

func (id Identifier) String() string {
	if id.Qualifier == "" {
		return id.Name
	}
	return id.Qualifier + "." + id.Name
}

// ColumnIdentifier is a column name with optional schema and table parts.
type ColumnIdentifier struct {
	Schema string
	Table  string
	Column string
}

// identifier reads name or qualifier.name.
func identifier(c *parser.Cursor) Identifier {
	id, ok := tryIdentifier(c)
	if !ok {
		c.Failf("expected identifier but found %q", c.Text())
	}
	return id
}

// tryIdentifier is identifier without failing. It is used while recovering
// names from input that did not parse.
func tryIdentifier(c *parser.Cursor) (Identifier, bool) {
	if !c.Token().IsIdentifier() {
		return Identifier{}, false
	}
	id := Identifier{Name: c.Unquoted()}
	c.Advance()
	if c.IsKind(lexer.Dot) && c.Peek(1).IsIdentifier() {
		c.Advance()
		id.Qualifier, id.Name = id.Name, c.Unquoted()
		c.Advance()
	}
	return id, true
}

// columnIdentifier reads column, table.column or schema.table.column.
func columnIdentifier(c *parser.Cursor) ColumnIdentifier {
	var parts []string
	for {
		if !c.Token().IsIdentifier() {
			c.Failf("expected column name but found %q", c.Text())
		}
		parts = append(parts, c.Unquoted())
		c.Advance()
		if len(parts) == 3 || !c.IsKind(lexer.Dot) {
			break
		}
		c.Advance()
	}
	switch len(parts) {
	case 1:
		return ColumnIdentifier{Column: parts[0]}
	case 2:
		return ColumnIdentifier{Table: parts[0], Column: parts[1]}
	}
	return ColumnIdentifier{Schema: parts[0], Table: parts[1], Column: parts[2]}
}

// optionalName reads a name when the cursor is on one that is not among
// keywords, as for the optional symbol after CONSTRAINT.
func optionalName(c *parser.Cursor, keywords ...string) string {
	if !c.Token().IsIdentifier() || c.IsAny(keywords...) {
		return ""
	}
	name := c.Unquoted()
	c.Advance()
	return name
}

// definer reads DEFINER [=] user[@host] or CURRENT_USER[()]. The current
// token must be DEFINER. Quotes are kept as written.
func definer(c *parser.Cursor) string {
	c.Expect("DEFINER")
	c.SkipKind(lexer.Equal)
	if c.SkipIf("CURRENT_USER", 0) {
		if c.IsKind(lexer.LParen) && c.Peek(1).Kind == lexer.RParen {
			c.Next(2)
		}
		return "CURRENT_USER"
	}
	if !c.Token().IsIdentifier() {
		c.Failf("expected user name but found %q", c.Text())
	}
	user := c.Text()
	c.Advance()
	if c.SkipKind(lexer.At) {
		user += "@" + c.Text()
		c.Advance()
	}
	return user
}

// valueList reads a parenthesized, comma separated list of expressions and
// joins them with ", ". With keepQuotes unset single string values lose
// their quotes.
func valueList(c *parser.Cursor, keepQuotes bool) string {
	c.ExpectKind(lexer.LParen)
	var values []string
	for {
		mark := c.Mark()
		single := c.Peek(1).Kind == lexer.Comma || c.Peek(1).Kind == lexer.RParen
		quoted := c.IsKind(lexer.String) || c.IsKind(lexer.QuotedIdent)
		c.SkipExpression()
		if single && quoted && !keepQuotes {
			values = append(values, c.Tokens()[mark].Value())
		} else {
			values = append(values, c.TextSince(mark))
		}
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)
	return strings.Join(values, ", ")
}

// namesList reads ( name [, name]* ). Key part extras like a prefix length
// or sort order are skipped.
func namesList(c *parser.Cursor) []string {
	c.ExpectKind(lexer.LParen)
	var names []string
	for {
		if !c.Token().IsIdentifier() {
			c.Failf("expected name but found %q", c.Text())
		}
		names = append(names, c.Unquoted())
		c.Advance()
		if c.IsKind(lexer.LParen) {
			c.SkipSubtree()
		}
		if !c.SkipIf("ASC", 0) {
			c.SkipIf("DESC", 0)
		}
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)
	return names
}

// parenBody returns the text inside the parenthesized group at the cursor
// and moves past it.
func parenBody(c *parser.Cursor) string {
	if !c.IsKind(lexer.LParen) {
		c.Failf("expected ( but found %q", c.Text())
	}
	text := c.TextForTree()
	c.SkipSubtree()
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	return strings.TrimSpace(text)
}

// textUntil consumes an expression up to one of the stop keywords and
// returns its source text.
func textUntil(c *parser.Cursor, stops ...string) string {
	mark := c.Mark()
	c.SkipExpression(stops...)
	return c.TextSince(mark)
}

// optionValue reads the value of a NAME [=] value option.
func optionValue(c *parser.Cursor) string {
	c.SkipKind(lexer.Equal)
	if c.AtEnd() {
		c.Failf("missing option value")
	}
	v := c.Unquoted()
	c.Advance()
	return v
}

// isCharsetStart reports whether the cursor is on CHARSET, CHAR SET or
// CHARACTER SET.
func isCharsetStart(c *parser.Cursor) bool {
	if c.Is("CHARSET") {
		return true
	}
	return (c.Is("CHAR") || c.Is("CHARACTER")) && c.PeekIs(1, "SET")
}

// charsetName reads a character set clause and returns the lower-cased
// name. BINARY is a valid name.
func charsetName(c *parser.Cursor) string {
	if !c.SkipIf("CHARSET", 0) {
		c.Next(2)
	}
	c.SkipKind(lexer.Equal)
	if !c.Token().IsIdentifier() {
		c.Failf("expected character set name but found %q", c.Text())
	}
	name := strings.ToLower(c.Unquoted())
	c.Advance()
	return name
}

// detailsForCharset returns the charset/collation pair for an explicit
// character set. "default" maps to defaultCharset. The collation is dropped
// when it is the charset's default or belongs to a different charset.
func detailsForCharset(charset, collation, defaultCharset string) (string, string) {
	if charset == "" {
		return "", ""
	}
	charset = strings.ToLower(charset)
	if charset == "default" {
		charset = strings.ToLower(defaultCharset)
	}
	if collation == "" {
		return charset, ""
	}
	collation = strings.ToLower(collation)
	if collation == catalog.DefaultCollation(charset) || catalog.CharsetForCollation(collation) != charset {
		collation = ""
	}
	return charset, collation
}

// detailsForCollation returns the charset/collation pair for an explicit
// collation. "default" maps to defaultCollation and a charset's default
// collation is stored empty.
func detailsForCollation(collation, defaultCollation string) (string, string) {
	if collation == "" {
		return "", ""
	}
	collation = strings.ToLower(collation)
	if collation == "default" {
		collation = strings.ToLower(defaultCollation)
	}
	charset := catalog.CharsetForCollation(collation)
	if catalog.DefaultCollation(charset) == collation {
		collation = ""
	}
	return charset, collation
}

// formatIndexType upper-cases the first word of an index kind and maps KEY
// to INDEX.
func formatIndexType(s string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	word = strings.ToUpper(word)
	if word == "KEY" {
		return catalog.IndexPlain
	}
	return word
}

// atoi parses a decimal or 0x prefixed hex number, returning 0 for
// anything else.
func atoi(s string) int64 {
	s = strings.TrimSpace(s)
	base := 10
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s, base = s[2:], 16
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseSize parses a size with an optional K, M or G suffix.
func parseSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var factor int64 = 1
	switch s[len(s)-1] {
	case 'k', 'K':
		factor = 1 << 10
	case 'm', 'M':
		factor = 1 << 20
	case 'g', 'G':
		factor = 1 << 30
	}
	if factor != 1 {
		s = s[:len(s)-1]
	}
	return atoi(s) * factor
}

// generateFKName returns a name for an unnamed foreign key.
func generateFKName() string {
	return "fk_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
