package main

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

func sqliteColumnType(kind int) string {
	switch kind {
	case kindInt, kindBool:
		return "INTEGER"
	}
	return "TEXT"
}

// exportSQLite writes the snapshot into a new SQLite file. An existing file
// is replaced only when overwrite is set.
func exportSQLite(ctx context.Context, path string, snap *snapshot, overwrite bool) error {
	if path == "" {
		return errors.New("sqlite export path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return errors.Errorf("sqlite file %s already exists (on_schema_exists=error)", path)
		}
		if err := os.Remove(path); err != nil {
			return errors.Wrap(err, "remove existing sqlite file")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin sqlite transaction")
	}
	defer tx.Rollback()

	for _, t := range snapshotTables {
		if _, err := tx.ExecContext(ctx, sqliteCreateTable(t)); err != nil {
			return errors.Wrapf(err, "create %s", t.name)
		}
		rows := snap.Rows(t.name)
		if len(rows) == 0 {
			continue
		}
		stmt, err := tx.PrepareContext(ctx, sqliteInsert(t))
		if err != nil {
			return errors.Wrapf(err, "prepare insert into %s", t.name)
		}
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return errors.Wrapf(err, "insert into %s: row %d", t.name, i+1)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit sqlite transaction")
	}
	return nil
}

func sqliteCreateTable(t snapshotTable) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = `"` + c.name + `" ` + sqliteColumnType(c.kind)
	}
	return `CREATE TABLE "` + t.name + `" (` + strings.Join(defs, ", ") + `)`
}

func sqliteInsert(t snapshotTable) string {
	names := t.columnNames()
	for i, n := range names {
		names[i] = `"` + n + `"`
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	return `INSERT INTO "` + t.name + `" (` + strings.Join(names, ", ") + `) VALUES (` + marks + `)`
}
