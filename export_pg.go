package main

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// pgTableName is the quoted, schema qualified name of a snapshot table.
func pgTableName(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func pgColumnType(kind int) string {
	switch kind {
	case kindInt:
		return "bigint"
	case kindBool:
		return "boolean"
	}
	return "text"
}

type schemaExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// snapshotWriter is the part of pgx.Tx the export uses.
type snapshotWriter interface {
	schemaExecutor
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// createSnapshotSchema creates the schema the snapshot tables go into. An
// existing schema is dropped with everything in it when onSchemaExists is
// "recreate" and refused when it is "error".
func createSnapshotSchema(ctx context.Context, exec schemaExecutor, schema, onSchemaExists string) error {
	if onSchemaExists != "recreate" && onSchemaExists != "error" {
		return errors.Errorf("unsupported on_schema_exists value %q", onSchemaExists)
	}
	quoted := pgx.Identifier{schema}.Sanitize()

	var exists bool
	if err := exec.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)", schema).Scan(&exists); err != nil {
		return errors.Wrap(err, "look up snapshot schema")
	}
	if exists {
		if onSchemaExists == "error" {
			return errors.Errorf("snapshot schema %q already exists (on_schema_exists=error)", schema)
		}
		if _, err := exec.Exec(ctx, "DROP SCHEMA "+quoted+" CASCADE"); err != nil {
			return errors.Wrapf(err, "drop snapshot schema %s", schema)
		}
	}
	if _, err := exec.Exec(ctx, "CREATE SCHEMA "+quoted); err != nil {
		return errors.Wrapf(err, "create snapshot schema %s", schema)
	}
	return nil
}

func pgCreateTable(schema string, t snapshotTable) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = pgx.Identifier{c.name}.Sanitize() + " " + pgColumnType(c.kind)
	}
	return "CREATE TABLE " + pgTableName(schema, t.name) + " (" + strings.Join(defs, ", ") + ")"
}

// writeSnapshot creates schema and the snapshot tables in it and bulk loads
// them.
func writeSnapshot(ctx context.Context, w snapshotWriter, schema, onSchemaExists string, snap *snapshot) error {
	if err := createSnapshotSchema(ctx, w, schema, onSchemaExists); err != nil {
		return err
	}
	for _, t := range snapshotTables {
		if _, err := w.Exec(ctx, pgCreateTable(schema, t)); err != nil {
			return errors.Wrapf(err, "create %s", t.name)
		}
		rows := snap.Rows(t.name)
		if len(rows) == 0 {
			continue
		}
		n, err := w.CopyFrom(ctx, pgx.Identifier{schema, t.name}, t.columnNames(), pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrapf(err, "copy into %s", t.name)
		}
		if int(n) != len(rows) {
			return errors.Errorf("copy into %s: wrote %d of %d rows", t.name, n, len(rows))
		}
	}
	return nil
}

// exportPostgres writes the snapshot into schema of the database at dsn in
// one transaction. onSchemaExists decides what happens to an existing schema.
func exportPostgres(ctx context.Context, dsn, schema, onSchemaExists string, snap *snapshot) error {
	if dsn == "" {
		return errors.New("export.postgres_dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping postgres")
	}

	// Schema DDL is transactional in PostgreSQL, so a failed export leaves
	// no schema behind.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin postgres transaction")
	}
	defer tx.Rollback(ctx)

	if err := writeSnapshot(ctx, tx, schema, onSchemaExists, snap); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit postgres transaction")
	}
	return nil
}
