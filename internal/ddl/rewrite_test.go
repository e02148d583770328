package ddl

import (
	"context"
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

func TestReplaceTokenSequenceWithText(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		start        string
		count        int
		replacements []string
		want         string
	}{
		{
			name:  "definer",
			sql:   "CREATE DEFINER=`root`@`%` VIEW v AS SELECT 1",
			start: "DEFINER", count: 5, replacements: []string{"DEFINER=CURRENT_USER"},
			want: "CREATE DEFINER=CURRENT_USER VIEW v AS SELECT 1",
		},
		{
			name:  "pairwise keeps separators",
			sql:   "ALTER TABLE old_t ADD x INT",
			start: "TABLE", count: 2, replacements: []string{"TABLE", "new_t"},
			want: "ALTER TABLE new_t ADD x INT",
		},
		{
			name:  "insert before",
			sql:   "SELECT 1",
			start: "SELECT", count: 0, replacements: []string{"/*x*/ "},
			want: "/*x*/ SELECT 1",
		},
		{
			name:  "unreplaced tokens are removed",
			sql:   "SELECT a, b FROM t",
			start: "SELECT", count: 3, replacements: []string{"SELECT"},
			want: "SELECT b FROM t",
		},
		{
			name:  "count past the end",
			sql:   "DROP TABLE t",
			start: "TABLE", count: 10, replacements: []string{"VIEW"},
			want: "DROP VIEW",
		},
		{
			name:  "start not found",
			sql:   "SELECT 1",
			start: "FROM", count: 1, replacements: []string{"x"},
			want: "SELECT 1",
		},
		{
			name:  "unbalanced",
			sql:   "SELECT (1",
			start: "SELECT", count: 1, replacements: []string{"x"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplaceTokenSequenceWithText(NewContext(false, nil), tt.sql, tt.start, tt.count, tt.replacements)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func renameCatalog() (*catalog.Catalog, *catalog.View, *catalog.Trigger, *catalog.Routine) {
	cat := catalog.New()
	s := catalog.NewSchema("main")
	cat.AddSchema(s)

	v := catalog.NewView("v")
	v.SQLDefinition = "CREATE VIEW v AS SELECT app.t.y, app.f(1) FROM app.t, `app`.w JOIN APP.u ON u.id = t.id WHERE app.t.y > 0"
	s.AddView(v)

	tbl := catalog.NewTable("t")
	s.AddTable(tbl)
	tr := catalog.NewTrigger("tr")
	tr.SQLDefinition = "CREATE TRIGGER tr BEFORE INSERT ON app.t FOR EACH ROW SET NEW.x = (SELECT app.x FROM app.t2 app LIMIT 1)"
	tbl.AddTrigger(tr)

	r := catalog.NewRoutine("p")
	r.SQLDefinition = "CREATE PROCEDURE p() BEGIN CALL app.p2(); END"
	s.AddRoutine(r)
	return cat, v, tr, r
}

func TestRenameSchemaReferences(t *testing.T) {
	cat, v, tr, r := renameCatalog()
	if errs := RenameSchemaReferences(NewContext(false, nil), cat, "app", "core"); errs != 0 {
		t.Fatalf("errors = %d", errs)
	}

	if want := "CREATE VIEW v AS SELECT core.t.y, core.f(1) FROM core.t, `core`.w JOIN core.u ON u.id = t.id WHERE core.t.y > 0"; v.SQLDefinition != want {
		t.Errorf("view =\n%s\nwant\n%s", v.SQLDefinition, want)
	}
	// Column references and aliases that happen to equal the schema name
	// stay untouched.
	if want := "CREATE TRIGGER tr BEFORE INSERT ON core.t FOR EACH ROW SET NEW.x = (SELECT app.x FROM core.t2 app LIMIT 1)"; tr.SQLDefinition != want {
		t.Errorf("trigger =\n%s\nwant\n%s", tr.SQLDefinition, want)
	}
	if want := "CREATE PROCEDURE p() BEGIN CALL core.p2(); END"; r.SQLDefinition != want {
		t.Errorf("routine = %s", r.SQLDefinition)
	}
}

func TestRenameSchemaReferences_RemoveQualifier(t *testing.T) {
	cat, _, _, r := renameCatalog()
	RenameSchemaReferences(NewContext(false, nil), cat, "app", "")
	if want := "CREATE PROCEDURE p() BEGIN CALL p2(); END"; r.SQLDefinition != want {
		t.Errorf("routine = %s, want %s", r.SQLDefinition, want)
	}
}

func TestRenameSchemaReferences_CaseSensitive(t *testing.T) {
	cat, v, _, _ := renameCatalog()
	RenameSchemaReferences(NewContext(true, nil), cat, "app", "core")
	if want := "CREATE VIEW v AS SELECT core.t.y, core.f(1) FROM core.t, `core`.w JOIN APP.u ON u.id = t.id WHERE core.t.y > 0"; v.SQLDefinition != want {
		t.Errorf("view = %s", v.SQLDefinition)
	}
}

func TestRenameSchemaReferences_BrokenDefinition(t *testing.T) {
	cat, v, _, _ := renameCatalog()
	broken := "CREATE VIEW v AS SELECT (app.x FROM app.t"
	v.SQLDefinition = broken
	if errs := RenameSchemaReferences(NewContext(false, nil), cat, "app", "core"); errs != 1 {
		t.Fatalf("errors = %d, want 1", errs)
	}
	if v.SQLDefinition != broken {
		t.Errorf("broken definition was modified: %s", v.SQLDefinition)
	}
}

func TestStatementRanges(t *testing.T) {
	sql := "SELECT 1; SELECT 2;"
	ranges := GetSQLStatementRanges(sql)
	if len(ranges) != 2 || ranges[1].Text(sql) != "SELECT 2" {
		t.Fatalf("ranges = %v", ranges)
	}

	pc := NewContext(false, nil)
	custom := "SELECT 1$$\r\nSELECT 2$$\r\n"
	ranges = DetermineStatementRanges(context.Background(), pc, custom, "$$", "\r\n")
	if len(ranges) != 2 || ranges[0].Text(custom) != "SELECT 1" {
		t.Fatalf("custom delimiter ranges = %v", ranges)
	}

	// A stop left over from an earlier run does not carry over.
	pc.Stop.Store(true)
	if ranges = DetermineStatementRanges(context.Background(), pc, custom, "$$", "\r\n"); len(ranges) != 2 {
		t.Errorf("reused context returned %d ranges, want 2", len(ranges))
	}
}
