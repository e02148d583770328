package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/ddl"
)

const exportScript = `
CREATE DATABASE shop DEFAULT CHARACTER SET latin1;
CREATE TABLE shop.orders (
  id INT NOT NULL AUTO_INCREMENT,
  item_id INT,
  note VARCHAR(20) DEFAULT 'x',
  PRIMARY KEY (id),
  CONSTRAINT fk_item FOREIGN KEY (item_id) REFERENCES shop.items (id) ON DELETE CASCADE
);
CREATE TABLE shop.items (id INT PRIMARY KEY);
CREATE VIEW shop.v AS SELECT id FROM shop.items;
`

func exportCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	if errs := ddl.ParseSQLIntoCatalog(context.Background(), ddl.NewContext(false, nil), cat, exportScript, ddl.Options{}); errs != 0 {
		t.Fatalf("ParseSQLIntoCatalog() = %d errors", errs)
	}
	return cat
}

func queryInt(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestExportSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	snap := buildSnapshot(exportCatalog(t))
	if err := exportSQLite(context.Background(), path, snap, false); err != nil {
		t.Fatalf("exportSQLite() error: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	counts := map[string]int{
		"mc_snapshot":     1,
		"mc_schemata":     1,
		"mc_tables":       2,
		"mc_columns":      4,
		"mc_foreign_keys": 1,
		"mc_views":        1,
		"mc_routines":     0,
	}
	for table, want := range counts {
		if got := queryInt(t, db, `SELECT COUNT(*) FROM "`+table+`"`); got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	var charset string
	if err := db.QueryRow(`SELECT default_charset FROM mc_schemata WHERE name = ?`, "shop").Scan(&charset); err != nil {
		t.Fatal(err)
	}
	if charset != "latin1" {
		t.Errorf("shop charset = %q", charset)
	}

	var refName, deleteRule string
	err = db.QueryRow(`
		SELECT t.name, f.delete_rule
		FROM mc_foreign_keys f JOIN mc_tables t ON t.id = f.referenced_table_id
		WHERE f.name = ?`, "fk_item").Scan(&refName, &deleteRule)
	if err != nil {
		t.Fatal(err)
	}
	if refName != "items" || deleteRule != "CASCADE" {
		t.Errorf("fk_item -> %s on delete %s", refName, deleteRule)
	}

	autoInc := queryInt(t, db, `
		SELECT c.auto_increment
		FROM mc_columns c JOIN mc_tables t ON t.id = c.table_id
		WHERE t.name = ? AND c.name = ?`, "orders", "id")
	if autoInc != 1 {
		t.Errorf("orders.id auto_increment = %d", autoInc)
	}
	if got := queryInt(t, db, `SELECT COUNT(*) FROM mc_index_columns WHERE column_id = ''`); got != 0 {
		t.Errorf("%d index columns are unresolved", got)
	}
}

func TestExportSQLite_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	if err := os.WriteFile(path, []byte("not a database"), 0644); err != nil {
		t.Fatal(err)
	}
	snap := buildSnapshot(catalog.New())

	if err := exportSQLite(context.Background(), path, snap, false); err == nil {
		t.Fatal("expected error for an existing file")
	}
	if err := exportSQLite(context.Background(), path, snap, true); err != nil {
		t.Fatalf("exportSQLite(overwrite) error: %v", err)
	}
}

func TestExportSQLite_EmptyPath(t *testing.T) {
	if err := exportSQLite(context.Background(), "", buildSnapshot(catalog.New()), true); err == nil {
		t.Fatal("expected error for empty path")
	}
}
