package ddl

import (
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

func TestParseRoutines(t *testing.T) {
	s := catalog.NewSchema("app")
	existing := catalog.NewRoutine("p1_SYNTAX_ERROR")
	existing.Type = catalog.RoutineProcedure
	existing.ModelOnly = true
	s.AddRoutine(existing)

	group := catalog.NewRoutineGroup("grp")
	group.Owner = s

	sql := "DELIMITER $$\n" +
		"CREATE PROCEDURE p1() BEGIN SELECT 1; END$$\n" +
		"CREATE FUNCTION f1() RETURNS INT RETURN 1$$\n" +
		"garbage here$$\n" +
		"CREATE PROCEDURE p2( BEGIN END$$\n"

	if errs := ParseRoutines(NewContext(false, nil), group, sql); errs != 2 {
		t.Fatalf("errors = %d, want 2", errs)
	}

	var names []string
	for i, r := range group.Routines {
		names = append(names, r.Name)
		if r.Sequence != i {
			t.Errorf("%s sequence = %d, want %d", r.Name, r.Sequence, i)
		}
	}
	want := []string{"p1", "f1", "grp_SYNTAX_ERROR_1", "p2_SYNTAX_ERROR"}
	if !sameStrings(names, want) {
		t.Fatalf("group routines = %v, want %v", names, want)
	}

	if group.Routines[0] != existing || existing.ModelOnly {
		t.Error("the previously failed routine should be updated in place")
	}
	if existing.SQLDefinition != "CREATE PROCEDURE p1() BEGIN SELECT 1; END" {
		t.Errorf("definition = %q", existing.SQLDefinition)
	}
	if f := group.Routines[1]; f.Type != catalog.RoutineFunction || f.Owner != s {
		t.Errorf("f1 = %s owned by %v", f.Type, f.Owner)
	}
	if !group.Routines[2].ModelOnly || !group.Routines[3].ModelOnly {
		t.Error("unparsable entries are model-only")
	}
	if s.Routines.Len() != 4 {
		t.Errorf("schema routines = %d, want 4", s.Routines.Len())
	}
}

func TestParseRoutines_NeedsSchema(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a group without schema")
		}
	}()
	ParseRoutines(NewContext(false, nil), catalog.NewRoutineGroup("orphan"), "CREATE PROCEDURE p() BEGIN END")
}

func TestDoSyntaxCheck(t *testing.T) {
	tests := []struct {
		sql  string
		kind string
		want int
	}{
		{"CREATE TABLE t (a INT)", "table", 0},
		{"CREATE TABLE t (a INT);", "table", 0},
		{"CREATE TABLE t (a INT) garbage", "table", 1},
		{"CREATE TABLE t (a NOSUCHTYPE)", "table", 1},
		{"CREATE VIEW v AS SELECT 1", "view", 0},
		{"CREATE VIEW v AS SELECT 1", "table", 1},
		{"CREATE TRIGGER tr BEFORE INSERT ON x FOR EACH ROW SET @a = 1", "trigger", 0},
		{"CREATE EVENT e ON SCHEDULE EVERY 1 DAY DO SELECT 1", "event", 0},
		{"CREATE PROCEDURE p() BEGIN END", "routine", 0},
		{"SELECT (1", "statement", 1},
		{"SELECT 1", "other", 0},
	}
	for _, tt := range tests {
		if got := DoSyntaxCheck(NewContext(false, nil), tt.sql, tt.kind); got != tt.want {
			t.Errorf("DoSyntaxCheck(%q, %s) = %d, want %d", tt.sql, tt.kind, got, tt.want)
		}
	}
}

func TestFailedName(t *testing.T) {
	if got := failedName("t", "old"); got != "t_SYNTAX_ERROR" {
		t.Errorf("failedName = %q", got)
	}
	if got := failedName("", "old"); got != "old" {
		t.Errorf("failedName without recovered name = %q", got)
	}
}
