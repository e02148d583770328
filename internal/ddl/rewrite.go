package ddl

import (
	"context"
	"sort"
	"strings"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
	"github.com/Limetric/mysqlcat/internal/splitter"
)

// GetSQLStatementRanges splits sql at semicolons and DELIMITER changes.
func GetSQLStatementRanges(sql string) []splitter.Range {
	return splitter.Ranges(sql)
}

// DetermineStatementRanges splits sql with a custom initial delimiter and
// line break sequence. The context's stop flag, cleared on entry, and ctx end
// the scan early.
func DetermineStatementRanges(ctx context.Context, pc *Context, sql, delimiter, lineBreak string) []splitter.Range {
	pc.resetStop()
	return splitter.Determine(ctx, sql, delimiter, lineBreak, pc.stopFlag())
}

// ReplaceTokenSequenceWithText replaces count tokens of sql, starting at the
// first token that is the keyword start, with the given texts. Text between
// tokens is kept as is. Replaced tokens keep the separator that follows
// them; tokens without a replacement are removed together with the
// separator in front of them, and surplus replacements are appended without
// any separator. A count larger than the number of remaining tokens removes
// everything up to the end.
//
// sql is returned unchanged when start does not occur and "" when sql does
// not lex or has unbalanced parentheses.
func ReplaceTokenSequenceWithText(pc *Context, sql, start string, count int, replacements []string) string {
	c, errs := parser.Recognize(sql, parser.UnitStatement)
	if len(errs) > 0 {
		pc.logger().Debugf("token replacement skipped: %v", errs[0])
		return ""
	}
	if !c.AdvanceTo(start) {
		return sql
	}

	tokens := c.Tokens()
	first := c.Mark()
	// The EOF token is never replaced.
	if available := len(tokens) - 1 - first; count > available {
		count = available
	}
	if count < 0 {
		count = 0
	}
	paired := count
	if len(replacements) < paired {
		paired = len(replacements)
	}

	var b strings.Builder
	b.WriteString(sql[:tokens[first].Offset])
	for j := 0; j < paired; j++ {
		b.WriteString(replacements[j])
		if j < paired-1 {
			b.WriteString(sql[tokens[first+j].End:tokens[first+j+1].Offset])
		}
	}
	for _, r := range replacements[paired:] {
		b.WriteString(r)
	}
	if count == 0 {
		b.WriteString(sql[tokens[first].Offset:])
	} else {
		b.WriteString(sql[tokens[first+count-1].End:])
	}
	return b.String()
}

// RenameSchemaReferences rewrites schema qualifiers equal to oldName in the
// stored SQL of every view, routine and trigger of cat. An empty newName
// removes the qualifier including its dot. Definitions that no longer parse
// are left alone; their error count is returned.
func RenameSchemaReferences(pc *Context, cat *catalog.Catalog, oldName, newName string) int {
	log := pc.logger()
	cs := pc.caseSensitive()
	errorCount := 0

	rename := func(sql string, unit parser.Unit) string {
		c, errs := parser.Recognize(sql, unit)
		if len(errs) > 0 {
			errorCount += len(errs)
			log.Debugf("schema rename skipped a definition: %v", errs[0])
			return sql
		}
		tokens := c.Tokens()
		return replaceSchemaNames(sql, tokens, schemaQualifiers(tokens, oldName, cs), newName)
	}

	for _, s := range cat.Schemata.Items() {
		for _, v := range s.Views.Items() {
			v.SQLDefinition = rename(v.SQLDefinition, parser.UnitView)
		}
		for _, r := range s.Routines.Items() {
			r.SQLDefinition = rename(r.SQLDefinition, parser.UnitRoutine)
		}
		for _, t := range s.Tables.Items() {
			for _, tr := range t.Triggers.Items() {
				tr.SQLDefinition = rename(tr.SQLDefinition, parser.UnitTrigger)
			}
		}
	}
	return errorCount
}

// objectIntroducers precede a name that may be schema qualified.
var objectIntroducers = []string{
	"FROM", "JOIN", "STRAIGHT_JOIN", "INTO", "UPDATE", "TABLE", "VIEW", "PROCEDURE",
	"FUNCTION", "TRIGGER", "EVENT", "CALL", "EXISTS", "REFERENCES", "FOLLOWS", "PRECEDES",
}

// schemaQualifiers returns the positions of tokens that qualify an object
// name with the schema called name. Two part names count when the context
// shows they name an object (after FROM, JOIN, CALL and the like, or when
// followed by a parenthesis as in a function call); three part column
// names always do.
func schemaQualifiers(tokens []lexer.Token, name string, caseSensitive bool) []int {
	var found []int
	for k := 0; k+2 < len(tokens); k++ {
		t := tokens[k]
		if !t.IsIdentifier() || !catalog.SameName(t.Value(), name, caseSensitive) {
			continue
		}
		if tokens[k+1].Kind != lexer.Dot || !tokens[k+2].IsIdentifier() {
			continue
		}
		if k > 0 && tokens[k-1].Kind == lexer.Dot {
			continue
		}
		threePart := k+4 < len(tokens) && tokens[k+3].Kind == lexer.Dot && tokens[k+4].IsIdentifier()
		call := k+3 < len(tokens) && tokens[k+3].Kind == lexer.LParen
		if threePart || call || namesObject(tokens, k) {
			found = append(found, k)
		}
	}
	return found
}

// namesObject reports whether the name starting at k is in a position where
// only object names appear.
func namesObject(tokens []lexer.Token, k int) bool {
	if k == 0 {
		return false
	}
	prev := tokens[k-1]
	for _, kw := range objectIntroducers {
		if prev.Is(kw) {
			return true
		}
	}
	// Trigger target: ... INSERT ON db.t
	if prev.Is("ON") && k >= 2 && (tokens[k-2].Is("INSERT") || tokens[k-2].Is("UPDATE") || tokens[k-2].Is("DELETE")) {
		return true
	}
	if prev.Kind == lexer.Comma {
		return inFromList(tokens, k-1)
	}
	return false
}

// clauseKeywords end the search for the clause a comma belongs to.
var clauseKeywords = []string{"SELECT", "WHERE", "SET", "ON", "GROUP", "ORDER", "HAVING", "VALUES", "LIMIT", "AS", "USING"}

// inFromList reports whether the comma at k separates table references of a
// FROM clause.
func inFromList(tokens []lexer.Token, k int) bool {
	depth := 0
	for i := k - 1; i >= 0; i-- {
		t := tokens[i]
		switch t.Kind {
		case lexer.RParen:
			depth++
			continue
		case lexer.LParen:
			if depth == 0 {
				return false
			}
			depth--
			continue
		}
		if depth > 0 {
			continue
		}
		if t.Is("FROM") {
			return true
		}
		for _, kw := range clauseKeywords {
			if t.Is(kw) {
				return false
			}
		}
	}
	return false
}

// replaceSchemaNames replaces the qualifier tokens at positions in sql.
// Quoting of each occurrence is kept.
func replaceSchemaNames(sql string, tokens []lexer.Token, positions []int, newName string) string {
	if len(positions) == 0 {
		return sql
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	for _, k := range positions {
		t := tokens[k]
		if newName == "" {
			dot := tokens[k+1]
			sql = sql[:t.Offset] + sql[dot.End:]
			continue
		}
		replacement := newName
		if t.Kind == lexer.QuotedIdent || t.Kind == lexer.String {
			q := t.Text[:1]
			replacement = q + strings.ReplaceAll(newName, q, q+q) + q
		}
		sql = sql[:t.Offset] + replacement + sql[t.End:]
	}
	return sql
}
