package parser

import (
	"github.com/Limetric/mysqlcat/internal/lexer"
)

// StatementKind is the coarse type of a statement as determined by Classify.
type StatementKind int

const (
	KindUnknown StatementKind = iota
	KindEmpty
	KindOther

	KindAlterDatabase
	KindAlterLogfileGroup
	KindAlterFunction
	KindAlterProcedure
	KindAlterServer
	KindAlterTable
	KindAlterTablespace
	KindAlterEvent
	KindAlterView

	KindCreateTable
	KindCreateIndex
	KindCreateDatabase
	KindCreateEvent
	KindCreateView
	KindCreateProcedure
	KindCreateFunction
	KindCreateUdf
	KindCreateTrigger
	KindCreateLogfileGroup
	KindCreateServer
	KindCreateTablespace
	KindCreateUser

	KindDropDatabase
	KindDropEvent
	KindDropFunction
	KindDropProcedure
	KindDropIndex
	KindDropLogfileGroup
	KindDropServer
	KindDropTable
	KindDropTablespace
	KindDropTrigger
	KindDropView

	KindRenameTable
	KindUse
	KindGrant
)

var statementKindNames = map[StatementKind]string{
	KindUnknown:            "unknown",
	KindEmpty:              "empty",
	KindOther:              "other",
	KindAlterDatabase:      "ALTER DATABASE",
	KindAlterLogfileGroup:  "ALTER LOGFILE GROUP",
	KindAlterFunction:      "ALTER FUNCTION",
	KindAlterProcedure:     "ALTER PROCEDURE",
	KindAlterServer:        "ALTER SERVER",
	KindAlterTable:         "ALTER TABLE",
	KindAlterTablespace:    "ALTER TABLESPACE",
	KindAlterEvent:         "ALTER EVENT",
	KindAlterView:          "ALTER VIEW",
	KindCreateTable:        "CREATE TABLE",
	KindCreateIndex:        "CREATE INDEX",
	KindCreateDatabase:     "CREATE DATABASE",
	KindCreateEvent:        "CREATE EVENT",
	KindCreateView:         "CREATE VIEW",
	KindCreateProcedure:    "CREATE PROCEDURE",
	KindCreateFunction:     "CREATE FUNCTION",
	KindCreateUdf:          "CREATE FUNCTION (UDF)",
	KindCreateTrigger:      "CREATE TRIGGER",
	KindCreateLogfileGroup: "CREATE LOGFILE GROUP",
	KindCreateServer:       "CREATE SERVER",
	KindCreateTablespace:   "CREATE TABLESPACE",
	KindCreateUser:         "CREATE USER",
	KindDropDatabase:       "DROP DATABASE",
	KindDropEvent:          "DROP EVENT",
	KindDropFunction:       "DROP FUNCTION",
	KindDropProcedure:      "DROP PROCEDURE",
	KindDropIndex:          "DROP INDEX",
	KindDropLogfileGroup:   "DROP LOGFILE GROUP",
	KindDropServer:         "DROP SERVER",
	KindDropTable:          "DROP TABLE",
	KindDropTablespace:     "DROP TABLESPACE",
	KindDropTrigger:        "DROP TRIGGER",
	KindDropView:           "DROP VIEW",
	KindRenameTable:        "RENAME TABLE",
	KindUse:                "USE",
	KindGrant:              "GRANT",
}

func (k StatementKind) String() string {
	if s, ok := statementKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Classify determines the statement kind from its leading keywords without a
// full parse. An error is returned only when the text cannot be tokenized.
func Classify(sql string) (StatementKind, error) {
	tokens, err := lexer.Tokenize(sql)
	if err != nil {
		return KindUnknown, err
	}
	return classifyTokens(NewCursor(sql, tokens)), nil
}

func classifyTokens(c *Cursor) StatementKind {
	if c.AtEnd() {
		return KindEmpty
	}

	switch {
	case c.SkipIf("CREATE", 0):
		return classifyCreate(c)
	case c.SkipIf("ALTER", 0):
		return classifyAlter(c)
	case c.SkipIf("DROP", 0):
		return classifyDrop(c)
	case c.Is("RENAME"):
		if c.PeekIs(1, "TABLE") || c.PeekIs(1, "TABLES") {
			return KindRenameTable
		}
	case c.Is("USE"):
		return KindUse
	case c.Is("GRANT"):
		return KindGrant
	}
	return KindOther
}

// skipDefiner moves past DEFINER = user[@host] | CURRENT_USER[()].
func skipDefiner(c *Cursor) {
	if !c.SkipIf("DEFINER", 0) {
		return
	}
	c.SkipKind(lexer.Equal)
	if c.SkipIf("CURRENT_USER", 0) {
		if c.Kind() == lexer.LParen && c.Peek(1).Kind == lexer.RParen {
			c.Next(2)
		}
		return
	}
	c.Advance()
	if c.SkipKind(lexer.At) {
		c.Advance()
	}
}

func classifyCreate(c *Cursor) StatementKind {
	c.SkipIf("OR", 1)
modifiers:
	for {
		switch {
		case c.SkipIf("ALGORITHM", 2):
		case c.Is("DEFINER"):
			skipDefiner(c)
		case c.SkipIf("SQL", 2):
		case c.IsAny("TEMPORARY", "ONLINE", "OFFLINE", "UNIQUE", "FULLTEXT", "SPATIAL", "AGGREGATE"):
			c.Advance()
		default:
			break modifiers
		}
	}

	switch c.Token().Upper() {
	case "TABLE":
		return KindCreateTable
	case "INDEX":
		return KindCreateIndex
	case "DATABASE", "SCHEMA":
		return KindCreateDatabase
	case "EVENT":
		return KindCreateEvent
	case "VIEW":
		return KindCreateView
	case "PROCEDURE":
		return KindCreateProcedure
	case "FUNCTION":
		if isUdf(c) {
			return KindCreateUdf
		}
		return KindCreateFunction
	case "TRIGGER":
		return KindCreateTrigger
	case "LOGFILE":
		return KindCreateLogfileGroup
	case "SERVER":
		return KindCreateServer
	case "TABLESPACE":
		return KindCreateTablespace
	case "USER":
		return KindCreateUser
	}
	return KindOther
}

// isUdf reports whether a CREATE FUNCTION is a loadable function
// (FUNCTION name RETURNS type SONAME 'lib').
func isUdf(c *Cursor) bool {
	mark := c.Mark()
	defer c.Reset(mark)
	c.Advance()
	for i := 0; i < 4 && !c.AtEnd(); i++ {
		if c.Is("SONAME") {
			return true
		}
		if c.Kind() == lexer.LParen {
			return false
		}
		c.Advance()
	}
	return c.Is("SONAME")
}

func classifyAlter(c *Cursor) StatementKind {
modifiers:
	for {
		switch {
		case c.SkipIf("ALGORITHM", 2):
		case c.Is("DEFINER"):
			skipDefiner(c)
		case c.SkipIf("SQL", 2):
		case c.IsAny("ONLINE", "OFFLINE", "IGNORE"):
			c.Advance()
		default:
			break modifiers
		}
	}

	switch c.Token().Upper() {
	case "DATABASE", "SCHEMA":
		return KindAlterDatabase
	case "LOGFILE":
		return KindAlterLogfileGroup
	case "FUNCTION":
		return KindAlterFunction
	case "PROCEDURE":
		return KindAlterProcedure
	case "SERVER":
		return KindAlterServer
	case "TABLE":
		return KindAlterTable
	case "TABLESPACE":
		return KindAlterTablespace
	case "EVENT":
		return KindAlterEvent
	case "VIEW":
		return KindAlterView
	}
	return KindOther
}

func classifyDrop(c *Cursor) StatementKind {
	for c.IsAny("TEMPORARY", "ONLINE", "OFFLINE") {
		c.Advance()
	}
	switch c.Token().Upper() {
	case "DATABASE", "SCHEMA":
		return KindDropDatabase
	case "EVENT":
		return KindDropEvent
	case "FUNCTION":
		return KindDropFunction
	case "PROCEDURE":
		return KindDropProcedure
	case "INDEX":
		return KindDropIndex
	case "LOGFILE":
		return KindDropLogfileGroup
	case "SERVER":
		return KindDropServer
	case "TABLE", "TABLES":
		return KindDropTable
	case "TABLESPACE":
		return KindDropTablespace
	case "TRIGGER":
		return KindDropTrigger
	case "VIEW":
		return KindDropView
	}
	return KindOther
}
