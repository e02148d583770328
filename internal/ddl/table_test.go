package ddl

import (
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

func parseTable(t *testing.T, sql string) *catalog.Table {
	t.Helper()
	tbl := catalog.NewTable("")
	if errs := ParseTable(NewContext(false, nil), tbl, sql); errs != 0 {
		t.Fatalf("ParseTable(%q) errors = %d", sql, errs)
	}
	return tbl
}

func TestParseTable_DefaultsAndNullability(t *testing.T) {
	tbl := parseTable(t, `CREATE TABLE t (
		ts TIMESTAMP NOT NULL DEFAULT NOW() ON UPDATE CURRENT_TIMESTAMP,
		u TIMESTAMP ON UPDATE NOW(3) DEFAULT CURRENT_TIMESTAMP(3),
		s VARCHAR(5) DEFAULT '',
		n INT DEFAULT -1,
		m INT NULL DEFAULT NULL,
		plain INT,
		flip INT NULL NOT NULL
	)`)

	tests := []struct {
		column    string
		def       string
		defIsNull bool
		notNull   bool
	}{
		{"ts", "CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP", false, true},
		{"u", "CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3)", false, true},
		{"s", "''", false, false},
		{"n", "-1", false, false},
		{"m", "NULL", true, false},
		{"plain", "NULL", true, false},
		{"flip", "", false, true},
	}
	for _, tt := range tests {
		col := tbl.FindColumn(tt.column)
		if col == nil {
			t.Errorf("column %s missing", tt.column)
			continue
		}
		if col.DefaultValue != tt.def || col.DefaultValueIsNull != tt.defIsNull || col.IsNotNull != tt.notNull {
			t.Errorf("%s: default %q (null %v) not null %v, want %q (null %v) not null %v",
				tt.column, col.DefaultValue, col.DefaultValueIsNull, col.IsNotNull, tt.def, tt.defIsNull, tt.notNull)
		}
	}
}

func TestParseTable_TypesAndImplicitIndexes(t *testing.T) {
	tbl := parseTable(t, "CREATE TABLE t (id SERIAL, code CHAR(3) UNIQUE, e ENUM('a','b') NOT NULL, d DECIMAL(10,2) UNSIGNED ZEROFILL, v NATIONAL CHAR VARYING(20))")

	id := tbl.FindColumn("id")
	if id.SimpleType.Name != "BIGINT" || !id.HasFlag("UNSIGNED") || !id.IsNotNull || !id.AutoIncrement {
		t.Errorf("SERIAL column = %+v", id)
	}
	code := tbl.FindColumn("code")
	if code.SimpleType.Name != "CHAR" || code.Length != 3 {
		t.Errorf("code = %s(%d)", code.SimpleType.Name, code.Length)
	}
	if e := tbl.FindColumn("e"); e.DatatypeExplicitParams != "('a', 'b')" {
		t.Errorf("enum params = %q", e.DatatypeExplicitParams)
	}
	d := tbl.FindColumn("d")
	if d.Precision != 10 || d.Scale != 2 || !d.HasFlag("ZEROFILL") {
		t.Errorf("decimal = (%d,%d) flags %v", d.Precision, d.Scale, d.Flags)
	}
	if v := tbl.FindColumn("v"); v.SimpleType.Name != "VARCHAR" || v.Length != 20 {
		t.Errorf("national char varying = %s(%d)", v.SimpleType.Name, v.Length)
	}

	if tbl.Indexes.Len() != 2 {
		t.Fatalf("indexes = %d, want 2", tbl.Indexes.Len())
	}
	for i, name := range []string{"id", "code"} {
		idx := tbl.Indexes.At(i)
		if idx.Name != name || idx.Kind != catalog.IndexUnique || !idx.Unique {
			t.Errorf("index %d = %s kind %s", i, idx.Name, idx.Kind)
		}
		if idx.Columns[0].Column != tbl.FindColumn(name) {
			t.Errorf("index %s should cover its column", name)
		}
	}
}

func TestParseTable_KeyParts(t *testing.T) {
	tbl := parseTable(t, "CREATE TABLE t (name VARCHAR(100), a INT, KEY k_name (name(10) DESC), UNIQUE KEY (name), KEY (a), KEY (a), FULLTEXT INDEX ft (name) WITH PARSER ngram, INDEX fx ((a + 1)))")

	k := tbl.FindIndex("k_name")
	if k == nil || k.Columns[0].Length != 10 || !k.Columns[0].Descending {
		t.Fatalf("k_name = %+v", k)
	}
	if u := tbl.FindIndex("name"); u == nil || u.Kind != catalog.IndexUnique {
		t.Error("unnamed unique key should be named after its first column")
	}
	if tbl.FindIndex("a") == nil || tbl.FindIndex("a_2") == nil {
		t.Error("repeated unnamed keys should get numbered names")
	}
	ft := tbl.FindIndex("ft")
	if ft == nil || ft.Kind != catalog.IndexFulltext || ft.WithParser != "ngram" {
		t.Errorf("fulltext index = %+v", ft)
	}
	fx := tbl.FindIndex("fx")
	if fx == nil || fx.Columns[0].Name != "(a + 1)" || fx.Columns[0].Column != nil {
		t.Errorf("functional key part = %+v", fx.Columns[0])
	}
}

func TestParseTable_GeneratedColumns(t *testing.T) {
	tbl := parseTable(t, "CREATE TABLE t (a INT, b INT GENERATED ALWAYS AS (a * 2) STORED, c INT AS (a + 1))")

	b := tbl.FindColumn("b")
	if !b.Generated || b.Expression != "a * 2" || b.GeneratedStorage != "STORED" {
		t.Errorf("b = generated %v %q %q", b.Generated, b.Expression, b.GeneratedStorage)
	}
	c := tbl.FindColumn("c")
	if !c.Generated || c.Expression != "a + 1" || c.GeneratedStorage != "" {
		t.Errorf("c = generated %v %q %q", c.Generated, c.Expression, c.GeneratedStorage)
	}
}

func TestParseTable_Options(t *testing.T) {
	tbl := parseTable(t, "CREATE TABLE t (a INT) ENGINE=MyISAM AUTO_INCREMENT=10 COMMENT='hello' ROW_FORMAT=compact, MAX_ROWS=100 UNION=(t1, other.t2) INSERT_METHOD=last")

	if tbl.Engine != "MyISAM" || tbl.Comment != "hello" {
		t.Errorf("engine %q comment %q", tbl.Engine, tbl.Comment)
	}
	o := tbl.Options
	if o.NextAutoInc != "10" || o.RowFormat != "COMPACT" || o.MaxRows != "100" || o.MergeInsert != "LAST" {
		t.Errorf("options = %+v", o)
	}
	if o.MergeUnion != "t1, other.t2" {
		t.Errorf("merge union = %q", o.MergeUnion)
	}
}

func TestParseTable_CharsetCascade(t *testing.T) {
	cat := catalog.New()
	sql := `
CREATE SCHEMA s DEFAULT CHARACTER SET latin1;
CREATE TABLE s.t (a VARCHAR(10) CHARACTER SET latin1 COLLATE latin1_swedish_ci, b TEXT COLLATE utf8mb4_bin) DEFAULT CHARSET=DEFAULT;
CREATE TABLE s.u (a INT) COLLATE utf8mb4_general_ci;
`
	if errs := parseScript(t, cat, sql, Options{}); errs != 0 {
		t.Fatalf("errors = %d", errs)
	}
	s := mustSchema(t, cat, "s")
	tbl := mustTable(t, s, "t")
	if tbl.DefaultCharset != "latin1" || tbl.DefaultCollation != "" {
		t.Errorf("table charset = %q collation = %q, want schema default latin1", tbl.DefaultCharset, tbl.DefaultCollation)
	}
	a := tbl.FindColumn("a")
	if a.CharacterSet != "latin1" || a.Collation != "" {
		t.Errorf("a = %q/%q, default collation should be dropped", a.CharacterSet, a.Collation)
	}
	b := tbl.FindColumn("b")
	if b.CharacterSet != "utf8mb4" || b.Collation != "utf8mb4_bin" {
		t.Errorf("b = %q/%q", b.CharacterSet, b.Collation)
	}
	u := mustTable(t, s, "u")
	if u.DefaultCharset != "utf8mb4" || u.DefaultCollation != "utf8mb4_general_ci" {
		t.Errorf("u = %q/%q", u.DefaultCharset, u.DefaultCollation)
	}
}

func TestParseTable_InlineReference(t *testing.T) {
	cat := catalog.New()
	sql := "CREATE TABLE p (id INT PRIMARY KEY); CREATE TABLE c (pid INT NOT NULL REFERENCES p (id) ON DELETE CASCADE);"
	if errs := parseScript(t, cat, sql, Options{GenFKNamesWhenEmpty: true}); errs != 0 {
		t.Fatalf("errors = %d", errs)
	}
	s := mustSchema(t, cat, DefaultSchemaName)
	c := mustTable(t, s, "c")
	if c.ForeignKeys.Len() != 1 {
		t.Fatalf("foreign keys = %d, want 1", c.ForeignKeys.Len())
	}
	fk := c.ForeignKeys.At(0)
	if fk.Name != "" {
		t.Errorf("inline references are not named, got %q", fk.Name)
	}
	if fk.ReferencedTable != mustTable(t, s, "p") || fk.DeleteRule != "CASCADE" || !fk.ReferencedMandatory {
		t.Errorf("fk = %+v", fk)
	}
	if fk.Index == nil || fk.Index.Name != "pid" {
		t.Error("inline reference should get a covering index")
	}
}

func TestParseTable_SelfReferenceWithoutCatalog(t *testing.T) {
	tbl := parseTable(t, "CREATE TABLE node (id INT PRIMARY KEY, parent INT, FOREIGN KEY (parent) REFERENCES node (id))")
	fk := tbl.ForeignKeys.At(0)
	if fk.ReferencedTable != tbl {
		t.Error("self reference should resolve to the table itself")
	}
	if len(fk.ReferencedColumns) != 1 || fk.ReferencedColumns[0] != tbl.FindColumn("id") {
		t.Error("referenced column should be id")
	}
	if fk.Name == "" {
		t.Error("single table parses generate foreign key names")
	}
}

func TestParseTable_OwnedTableResolvesInSchema(t *testing.T) {
	cat := catalog.New()
	s := catalog.NewSchema("app")
	cat.AddSchema(s)
	tbl := catalog.NewTable("")
	s.AddTable(tbl)

	sql := "CREATE TABLE orders (id INT, cid INT, FOREIGN KEY (cid) REFERENCES customers (id))"
	if errs := ParseTable(NewContext(false, nil), tbl, sql); errs != 0 {
		t.Fatalf("errors = %d", errs)
	}
	if tbl.Name != "orders" {
		t.Errorf("name = %q", tbl.Name)
	}
	stub := s.FindTable("customers")
	if stub == nil || !stub.IsStub {
		t.Fatal("missing target should become a stub in the owning schema")
	}
	if tbl.ForeignKeys.At(0).ReferencedTable != stub {
		t.Error("foreign key should point at the stub")
	}
}

func TestParseTable_SelectAndLikeForms(t *testing.T) {
	if tbl := parseTable(t, "CREATE TABLE t (a INT) SELECT 1 AS a"); tbl.Columns.Len() != 1 {
		t.Errorf("columns = %d", tbl.Columns.Len())
	}
	if tbl := parseTable(t, "CREATE TABLE t AS SELECT 1 AS a"); tbl.Columns.Len() != 0 {
		t.Errorf("query columns are not modeled, got %d", tbl.Columns.Len())
	}
}

func TestParseTable_Failures(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantName string
	}{
		{"unknown type", "CREATE TABLE broken (a NOSUCHTYPE)", "broken_SYNTAX_ERROR"},
		{"two primary keys", "CREATE TABLE twice (a INT PRIMARY KEY, b INT, PRIMARY KEY (b))", "twice_SYNTAX_ERROR"},
		{"unbalanced", "CREATE TABLE IF NOT EXISTS open (a INT", "open_SYNTAX_ERROR"},
		{"no name", "CREATE TABLE `unterminated (a INT)", "previous"},
		{"not a table", "CREATE VIEW v AS SELECT 1", "previous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := catalog.NewTable("previous")
			col := catalog.NewColumn("kept")
			tbl.AddColumn(col)

			if errs := ParseTable(NewContext(false, nil), tbl, tt.sql); errs == 0 {
				t.Fatal("expected errors")
			}
			if tbl.Name != tt.wantName {
				t.Errorf("name = %q, want %q", tbl.Name, tt.wantName)
			}
			if !tbl.ModelOnly {
				t.Error("failed table should be model-only")
			}
			if tbl.Columns.Len() != 1 || tbl.Columns.At(0) != col {
				t.Error("failed parse must leave the previous structure in place")
			}
		})
	}
}
