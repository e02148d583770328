package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		delimiter string
		want      []string
	}{
		{"two statements", "SELECT 1; SELECT 2;", ";", []string{"SELECT 1", "SELECT 2"}},
		{"trailing whitespace trimmed", "CREATE TABLE a (x INT)  \n", ";", []string{"CREATE TABLE a (x INT)"}},
		{"semicolon inside quotes", "SELECT 'hello;world'; SELECT 2", ";", []string{"SELECT 'hello;world'", "SELECT 2"}},
		{"comments only", "-- nothing\n", ";", []string{}},
		{
			"delimiter block",
			"DELIMITER $$\nCREATE PROCEDURE p() BEGIN SELECT 1; END$$\nDELIMITER ;\nSELECT 2;",
			";",
			[]string{"CREATE PROCEDURE p() BEGIN SELECT 1; END", "SELECT 2"},
		},
		{"custom delimiter", "SELECT 1 $$ SELECT 2", "$$", []string{"SELECT 1", "SELECT 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(context.Background(), tt.sql, tt.delimiter)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestExpandSchema(t *testing.T) {
	sql := "CREATE TABLE {{schema}}.t (a INT); CREATE VIEW {{schema}}.v AS SELECT 1"
	want := "CREATE TABLE app.t (a INT); CREATE VIEW app.v AS SELECT 1"
	if got := expandSchema(sql, "app"); got != want {
		t.Errorf("expandSchema() = %q, want %q", got, want)
	}
	if got := expandSchema(sql, ""); got != sql {
		t.Errorf("expandSchema without schema = %q", got)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "init.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE {{schema}}.t (a INT);"), 0644); err != nil {
		t.Fatal(err)
	}

	src := newFileSource(path, "app")
	if src.Name() != "init.sql" || src.Schema() != "app" {
		t.Errorf("source = %s/%s", src.Name(), src.Schema())
	}
	got, err := src.Script(context.Background())
	if err != nil {
		t.Fatalf("Script() error: %v", err)
	}
	if got != "CREATE TABLE app.t (a INT);" {
		t.Errorf("Script() = %q", got)
	}

	if _, err := newFileSource(filepath.Join(dir, "missing.sql"), "").Script(context.Background()); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestScriptSources(t *testing.T) {
	cfg := &Config{
		Catalog:   CatalogConfig{DefaultSchema: "app"},
		Scripts:   ScriptsConfig{Before: []string{"before.sql"}, After: []string{"/abs/after.sql"}},
		configDir: "/etc/mysqlcat",
	}
	sources := scriptSources(cfg, []string{"main.sql"})

	var paths []string
	for _, s := range sources {
		fs := s.(*fileSource)
		paths = append(paths, fs.path)
		if fs.schema != "app" {
			t.Errorf("%s schema = %q", fs.path, fs.schema)
		}
	}
	want := []string{"/etc/mysqlcat/before.sql", "main.sql", "/abs/after.sql"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}
