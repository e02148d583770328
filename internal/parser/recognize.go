// Package parser turns statement text into a navigable token cursor. It also
// provides a light statement classifier used to skip statements without a
// full parse.
package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/lexer"
)

// Unit names the kind of statement a caller expects to parse.
type Unit int

const (
	UnitStatement Unit = iota
	UnitTable
	UnitView
	UnitTrigger
	UnitRoutine
	UnitIndex
	UnitSchema
	UnitEvent
	UnitTablespace
	UnitLogfileGroup
	UnitServer
)

var unitKinds = map[Unit][]StatementKind{
	UnitTable:        {KindCreateTable},
	UnitView:         {KindCreateView},
	UnitTrigger:      {KindCreateTrigger},
	UnitRoutine:      {KindCreateProcedure, KindCreateFunction, KindCreateUdf},
	UnitIndex:        {KindCreateIndex},
	UnitSchema:       {KindCreateDatabase},
	UnitEvent:        {KindCreateEvent},
	UnitTablespace:   {KindCreateTablespace},
	UnitLogfileGroup: {KindCreateLogfileGroup},
	UnitServer:       {KindCreateServer},
}

// Recognize lexes sql and checks that it has the overall shape of unit:
// balanced parentheses and the expected leading keywords. It always returns
// a cursor positioned at the first token (over the tokens lexed so far when
// lexing failed) so callers can recover names from broken input.
//
// An unknown unit is a programming error and panics.
func Recognize(sql string, unit Unit) (*Cursor, []SyntaxError) {
	expected, ok := unitKinds[unit]
	if !ok && unit != UnitStatement {
		panic(errors.Errorf("parser: invalid parse unit %d", unit))
	}

	tokens, err := lexer.Tokenize(sql)
	c := NewCursor(sql, tokens)
	if err != nil {
		var lexErr *lexer.Error
		se := SyntaxError{Message: err.Error()}
		if errors.As(err, &lexErr) {
			se = SyntaxError{Offset: lexErr.Offset, Line: lexErr.Line, Message: lexErr.Msg}
		}
		c.errs = append(c.errs, se)
		return c, c.errs
	}

	if se, bad := checkStructure(c.tokens); bad {
		c.errs = append(c.errs, se)
	}

	if ok {
		kind := classifyTokens(c)
		c.Reset(0)
		if !containsKind(expected, kind) {
			t := c.Token()
			c.errs = append(c.errs, SyntaxError{
				Offset:  t.Offset,
				Line:    t.Line,
				Message: fmt.Sprintf("statement is %s, not a %s definition", kind, unitName(unit)),
			})
		}
	}
	return c, c.errs
}

func containsKind(kinds []StatementKind, k StatementKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func unitName(u Unit) string {
	switch u {
	case UnitTable:
		return "table"
	case UnitView:
		return "view"
	case UnitTrigger:
		return "trigger"
	case UnitRoutine:
		return "routine"
	case UnitIndex:
		return "index"
	case UnitSchema:
		return "schema"
	case UnitEvent:
		return "event"
	case UnitTablespace:
		return "tablespace"
	case UnitLogfileGroup:
		return "logfile group"
	case UnitServer:
		return "server"
	}
	return "statement"
}

// checkStructure verifies parenthesis nesting. Compound statement bodies
// contain semicolons, so statement boundaries are left to the extractors.
func checkStructure(tokens []lexer.Token) (SyntaxError, bool) {
	depth := 0
	for _, t := range tokens {
		switch t.Kind {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
			if depth < 0 {
				return SyntaxError{Offset: t.Offset, Line: t.Line, Message: "unexpected ')'"}, true
			}
		case lexer.EOF:
			if depth > 0 {
				return SyntaxError{Offset: t.Offset, Line: t.Line, Message: "missing ')'"}, true
			}
		}
	}
	return SyntaxError{}, false
}
