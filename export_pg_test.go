package main

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

type fakeSchemaRow struct {
	exists bool
	err    error
}

func (r fakeSchemaRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("expected one destination")
	}
	b, ok := dest[0].(*bool)
	if !ok {
		return errors.New("expected *bool destination")
	}
	*b = r.exists
	return nil
}

type fakePG struct {
	exists    bool
	queryErr  error
	execCalls []string
	copied    map[string]int
	copyErr   error
}

func (f *fakePG) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execCalls = append(f.execCalls, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakePG) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeSchemaRow{exists: f.exists, err: f.queryErr}
}

func (f *fakePG) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return n, err
		}
		if len(vals) != len(columns) {
			return n, errors.Errorf("%v: %d values for %d columns", table, len(vals), len(columns))
		}
		n++
	}
	if f.copied == nil {
		f.copied = map[string]int{}
	}
	f.copied[table[len(table)-1]] = int(n)
	return n, nil
}

func TestPgTableName(t *testing.T) {
	tests := []struct {
		schema, table, want string
	}{
		{"meta", "mc_tables", `"meta"."mc_tables"`},
		{"Meta", "user", `"Meta"."user"`},
		{`we"ird`, "t", `"we""ird"."t"`},
	}
	for _, tt := range tests {
		if got := pgTableName(tt.schema, tt.table); got != tt.want {
			t.Errorf("pgTableName(%q, %q) = %s, want %s", tt.schema, tt.table, got, tt.want)
		}
	}
}

func TestCreateSnapshotSchema(t *testing.T) {
	tests := []struct {
		name    string
		exec    *fakePG
		mode    string
		wantSQL []string
		wantErr string
	}{
		{"error mode, schema exists", &fakePG{exists: true}, "error", nil, "already exists"},
		{"error mode, schema missing", &fakePG{}, "error", []string{`CREATE SCHEMA "app"`}, ""},
		{"recreate existing", &fakePG{exists: true}, "recreate", []string{`DROP SCHEMA "app" CASCADE`, `CREATE SCHEMA "app"`}, ""},
		{"recreate missing", &fakePG{}, "recreate", []string{`CREATE SCHEMA "app"`}, ""},
		{"unsupported", &fakePG{}, "merge", nil, "unsupported on_schema_exists"},
		{"query error", &fakePG{queryErr: errors.New("db offline")}, "error", nil, "look up snapshot schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := createSnapshotSchema(context.Background(), tt.exec, "app", tt.mode)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("createSnapshotSchema() error: %v", err)
			}
			if strings.Join(tt.exec.execCalls, ";") != strings.Join(tt.wantSQL, ";") {
				t.Errorf("exec calls = %q, want %q", tt.exec.execCalls, tt.wantSQL)
			}
		})
	}
}

func TestPgCreateTable(t *testing.T) {
	got := pgCreateTable("Meta", snapshotTable{name: "mc_x", columns: joinCols(textCols("id", "collation"), intCols("position"), boolCols("model_only"))})
	want := `CREATE TABLE "Meta"."mc_x" ("id" text, "collation" text, "position" bigint, "model_only" boolean)`
	if got != want {
		t.Errorf("pgCreateTable() = %s, want %s", got, want)
	}
}

func TestWriteSnapshot(t *testing.T) {
	cat := catalog.New()
	s := catalog.NewSchema("shop")
	cat.AddSchema(s)
	tbl := catalog.NewTable("items")
	tbl.AddColumn(catalog.NewColumn("id"))
	s.AddTable(tbl)
	s.AddView(catalog.NewView("v"))

	w := &fakePG{exists: true}
	if err := writeSnapshot(context.Background(), w, "meta", "recreate", buildSnapshot(cat)); err != nil {
		t.Fatalf("writeSnapshot() error: %v", err)
	}

	// drop + create schema, then one CREATE TABLE per snapshot table
	if len(w.execCalls) != 2+len(snapshotTables) {
		t.Errorf("exec calls = %d, want %d", len(w.execCalls), 2+len(snapshotTables))
	}
	want := map[string]int{"mc_snapshot": 1, "mc_schemata": 1, "mc_tables": 1, "mc_columns": 1, "mc_views": 1}
	if len(w.copied) != len(want) {
		t.Errorf("copied tables = %v, want %v", w.copied, want)
	}
	for table, n := range want {
		if w.copied[table] != n {
			t.Errorf("%s rows = %d, want %d", table, w.copied[table], n)
		}
	}
}

func TestWriteSnapshot_ExistingSchemaRefused(t *testing.T) {
	w := &fakePG{exists: true}
	err := writeSnapshot(context.Background(), w, "meta", "error", buildSnapshot(catalog.New()))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("error = %v", err)
	}
	if len(w.execCalls) != 0 || len(w.copied) != 0 {
		t.Errorf("nothing may be written after a refusal, got exec %q copied %v", w.execCalls, w.copied)
	}
}

func TestWriteSnapshot_CopyError(t *testing.T) {
	cat := catalog.New()
	cat.AddSchema(catalog.NewSchema("shop"))
	err := writeSnapshot(context.Background(), &fakePG{copyErr: errors.New("boom")}, "meta", "recreate", buildSnapshot(cat))
	if err == nil || !strings.Contains(err.Error(), "copy into mc_snapshot") {
		t.Fatalf("error = %v", err)
	}
}
