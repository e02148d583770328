package parser

import (
	"testing"

	"github.com/Limetric/mysqlcat/internal/lexer"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sql  string
		want StatementKind
	}{
		{"CREATE TABLE t (a INT)", KindCreateTable},
		{"create temporary table t (a int)", KindCreateTable},
		{"CREATE UNIQUE INDEX i ON t (a)", KindCreateIndex},
		{"CREATE OR REPLACE ALGORITHM=MERGE DEFINER=`root`@`%` SQL SECURITY INVOKER VIEW v AS SELECT 1", KindCreateView},
		{"CREATE DEFINER=CURRENT_USER() PROCEDURE p() BEGIN END", KindCreateProcedure},
		{"CREATE FUNCTION f() RETURNS INT RETURN 1", KindCreateFunction},
		{"CREATE AGGREGATE FUNCTION f RETURNS STRING SONAME 'f.so'", KindCreateUdf},
		{"CREATE DEFINER = root@localhost TRIGGER tr BEFORE INSERT ON t FOR EACH ROW SET @x = 1", KindCreateTrigger},
		{"CREATE SCHEMA s", KindCreateDatabase},
		{"CREATE LOGFILE GROUP lg ADD UNDOFILE 'u'", KindCreateLogfileGroup},
		{"CREATE TABLESPACE ts ADD DATAFILE 'd'", KindCreateTablespace},
		{"CREATE SERVER s FOREIGN DATA WRAPPER mysql OPTIONS (HOST 'h')", KindCreateServer},
		{"CREATE EVENT e ON SCHEDULE EVERY 1 DAY DO SELECT 1", KindCreateEvent},
		{"CREATE USER u", KindCreateUser},
		{"ALTER TABLE t ADD COLUMN b INT", KindAlterTable},
		{"ALTER ONLINE IGNORE TABLE t ADD INDEX (a)", KindAlterTable},
		{"ALTER DATABASE s CHARACTER SET utf8", KindAlterDatabase},
		{"DROP TEMPORARY TABLE IF EXISTS t", KindDropTable},
		{"DROP INDEX i ON t", KindDropIndex},
		{"DROP TRIGGER tr", KindDropTrigger},
		{"RENAME TABLE a TO b", KindRenameTable},
		{"USE db", KindUse},
		{"GRANT ALL ON *.* TO u", KindGrant},
		{"INSERT INTO t VALUES (1)", KindOther},
		{"/* only a comment */", KindEmpty},
	}

	for _, tt := range tests {
		got, err := Classify(tt.sql)
		if err != nil {
			t.Errorf("Classify(%q) error: %v", tt.sql, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestClassify_LexError(t *testing.T) {
	if _, err := Classify("CREATE TABLE 't (a INT)"); err == nil {
		t.Error("expected lexical error for unterminated string")
	}
}

func TestRecognize(t *testing.T) {
	if _, errs := Recognize("CREATE TABLE t (a INT)", UnitTable); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if _, errs := Recognize("CREATE VIEW v AS SELECT 1", UnitTable); len(errs) != 1 {
		t.Errorf("unit mismatch should give one error, got %v", errs)
	}
	if _, errs := Recognize("CREATE TABLE t (a INT", UnitTable); len(errs) == 0 {
		t.Error("unbalanced parenthesis should be reported")
	}
	c, errs := Recognize("CREATE TABLE `t", UnitTable)
	if len(errs) != 1 {
		t.Fatalf("lex error count = %d, want 1", len(errs))
	}
	if !c.Is("CREATE") {
		t.Error("cursor should cover tokens lexed before the error")
	}
}

func TestRecognize_InvalidUnitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid unit")
		}
	}()
	Recognize("SELECT 1", Unit(999))
}

func newCursor(t *testing.T, sql string) *Cursor {
	t.Helper()
	toks, err := lexer.Tokenize(sql)
	if err != nil {
		t.Fatal(err)
	}
	return NewCursor(sql, toks)
}

func TestCursor_Navigation(t *testing.T) {
	c := newCursor(t, "a (b, (c)) d, e")
	c.Advance()
	if got := c.TextForTree(); got != "(b, (c))" {
		t.Errorf("TextForTree = %q", got)
	}
	c.SkipSubtree()
	if !c.Is("d") {
		t.Fatalf("after SkipSubtree at %q", c.Text())
	}
	if !c.LookAhead("e") || c.LookAhead("a") {
		t.Error("LookAhead mismatch")
	}
	mark := c.Mark()
	c.SkipExpression()
	if c.Kind() != lexer.Comma {
		t.Errorf("SkipExpression stopped at %q", c.Text())
	}
	if got := c.TextSince(mark); got != "d" {
		t.Errorf("TextSince = %q", got)
	}
	if c.AdvanceTo("zzz") {
		t.Error("AdvanceTo found a missing keyword")
	}
	if !c.AdvanceTo("e") {
		t.Error("AdvanceTo missed e")
	}
	c.Next(10)
	if c.Kind() != lexer.EOF {
		t.Error("Next past the end should stop at EOF")
	}
}

func TestCursor_RunFailf(t *testing.T) {
	c := newCursor(t, "CREATE VIEW")
	err := c.Run(func() {
		c.Expect("CREATE")
		c.Expect("TABLE")
		t.Error("Expect did not abort")
	})
	if err == nil {
		t.Fatal("Run returned nil error")
	}
	if len(c.Errors()) != 1 {
		t.Errorf("Errors() = %v", c.Errors())
	}
	if !c.Is("VIEW") {
		t.Error("cursor should stay at the failing token")
	}
}

func TestCursor_TextToEnd(t *testing.T) {
	c := newCursor(t, "SELECT a FROM t;")
	c.Advance()
	if got := c.TextToEnd(); got != "a FROM t" {
		t.Errorf("TextToEnd = %q", got)
	}
}
