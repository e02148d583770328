package main

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// sourceObject is one object definition read from a live server.
type sourceObject struct {
	Kind string // database|table|view|procedure|function|trigger|event
	Name string
	DDL  string
}

// compound reports whether the definition may contain semicolons and needs
// a custom delimiter.
func (o sourceObject) compound() bool {
	switch o.Kind {
	case "procedure", "function", "trigger", "event":
		return true
	}
	return false
}

// showCreateStatements names the SHOW statement and the result column holding the
// definition for each object kind.
var showCreateStatements = map[string]struct {
	stmt   string
	column string
}{
	"database":  {"SHOW CREATE DATABASE", "Create Database"},
	"table":     {"SHOW CREATE TABLE", "Create Table"},
	"view":      {"SHOW CREATE VIEW", "Create View"},
	"procedure": {"SHOW CREATE PROCEDURE", "Create Procedure"},
	"function":  {"SHOW CREATE FUNCTION", "Create Function"},
	"trigger":   {"SHOW CREATE TRIGGER", "SQL Original Statement"},
	"event":     {"SHOW CREATE EVENT", "Create Event"},
}

// mysqlSource reads object definitions from INFORMATION_SCHEMA and
// SHOW CREATE statements of one schema.
type mysqlSource struct {
	db     *sql.DB
	schema string
}

// openMySQLSource connects to the server named by cfg. The schema defaults to
// the database of the DSN.
func openMySQLSource(cfg SourceConfig) (*mysqlSource, error) {
	if cfg.DSN == "" {
		return nil, errors.New("source.dsn is required")
	}
	dsn, err := mysqlDSNWithReadOptions(cfg.DSN, cfg.Charset)
	if err != nil {
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		if schema, err = mysqlDBName(cfg.DSN); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return &mysqlSource{db: db, schema: schema}, nil
}

func (m *mysqlSource) Name() string   { return "MySQL " + m.schema }
func (m *mysqlSource) Schema() string { return m.schema }
func (m *mysqlSource) Close() error   { return m.db.Close() }

func (m *mysqlSource) Script(ctx context.Context) (string, error) {
	if err := m.db.PingContext(ctx); err != nil {
		return "", errors.Wrap(err, "ping mysql")
	}
	objs, err := m.objects(ctx)
	if err != nil {
		return "", err
	}
	return sourceScript(objs), nil
}

// objects lists every object of the schema with its definition, database
// first, then tables, views, routines, triggers and events.
func (m *mysqlSource) objects(ctx context.Context) ([]sourceObject, error) {
	objs := []sourceObject{{Kind: "database", Name: m.schema}}

	rows, err := m.db.QueryContext(ctx,
		`SELECT TABLE_NAME, TABLE_TYPE FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		 ORDER BY TABLE_TYPE, TABLE_NAME`,
		m.schema,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list tables")
	}
	if err := scanObjects(rows, &objs, func(typ string) string {
		if typ == "VIEW" {
			return "view"
		}
		return "table"
	}); err != nil {
		return nil, errors.Wrap(err, "list tables")
	}

	rows, err = m.db.QueryContext(ctx,
		`SELECT ROUTINE_NAME, ROUTINE_TYPE FROM INFORMATION_SCHEMA.ROUTINES
		 WHERE ROUTINE_SCHEMA = ?
		 ORDER BY ROUTINE_TYPE, ROUTINE_NAME`,
		m.schema,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list routines")
	}
	if err := scanObjects(rows, &objs, strings.ToLower); err != nil {
		return nil, errors.Wrap(err, "list routines")
	}

	rows, err = m.db.QueryContext(ctx,
		`SELECT TRIGGER_NAME, 'trigger' FROM INFORMATION_SCHEMA.TRIGGERS
		 WHERE TRIGGER_SCHEMA = ?
		 ORDER BY EVENT_OBJECT_TABLE, ACTION_ORDER`,
		m.schema,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list triggers")
	}
	if err := scanObjects(rows, &objs, strings.ToLower); err != nil {
		return nil, errors.Wrap(err, "list triggers")
	}

	rows, err = m.db.QueryContext(ctx,
		`SELECT EVENT_NAME, 'event' FROM INFORMATION_SCHEMA.EVENTS
		 WHERE EVENT_SCHEMA = ?
		 ORDER BY EVENT_NAME`,
		m.schema,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	if err := scanObjects(rows, &objs, strings.ToLower); err != nil {
		return nil, errors.Wrap(err, "list events")
	}

	for i := range objs {
		ddl, err := m.showCreate(ctx, objs[i])
		if err != nil {
			return nil, err
		}
		objs[i].DDL = ddl
	}
	return objs, nil
}

func scanObjects(rows *sql.Rows, out *[]sourceObject, kind func(string) string) error {
	defer rows.Close()
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return err
		}
		*out = append(*out, sourceObject{Kind: kind(typ), Name: name})
	}
	return rows.Err()
}

// showCreate fetches the definition of obj. SHOW CREATE result sets differ
// per kind, so the definition column is picked by name.
func (m *mysqlSource) showCreate(ctx context.Context, obj sourceObject) (string, error) {
	sc, ok := showCreateStatements[obj.Kind]
	if !ok {
		return "", errors.Errorf("no SHOW CREATE statement for %s", obj.Kind)
	}
	query := sc.stmt + " " + quoteMySQLIdent(obj.Name)
	if obj.Kind != "database" {
		query = sc.stmt + " " + quoteMySQLIdent(m.schema) + "." + quoteMySQLIdent(obj.Name)
	}

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return "", errors.Wrapf(err, "show create %s %s", obj.Kind, obj.Name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", errors.Wrapf(err, "show create %s %s", obj.Kind, obj.Name)
	}
	want := -1
	for i, c := range cols {
		if strings.EqualFold(c, sc.column) {
			want = i
		}
	}
	if want < 0 {
		return "", errors.Errorf("show create %s %s: no %q column in %v", obj.Kind, obj.Name, sc.column, cols)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", errors.Wrapf(err, "show create %s %s", obj.Kind, obj.Name)
		}
		return "", errors.Errorf("show create %s %s: no rows", obj.Kind, obj.Name)
	}

	vals := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", errors.Wrapf(err, "show create %s %s", obj.Kind, obj.Name)
	}
	// The definition column is NULL when the user lacks privileges on the
	// routine body.
	if !vals[want].Valid {
		return "", errors.Errorf("show create %s %s: definition not visible to this user", obj.Kind, obj.Name)
	}
	return vals[want].String, nil
}

// sourceScript joins definitions into one script. Plain statements come
// first; routines, triggers and events follow inside a DELIMITER block so
// their bodies stay intact.
func sourceScript(objs []sourceObject) string {
	var b strings.Builder
	for _, o := range objs {
		if !o.compound() && o.DDL != "" {
			b.WriteString(strings.TrimRight(o.DDL, "; \n"))
			b.WriteString(";\n")
		}
	}
	first := true
	for _, o := range objs {
		if !o.compound() || o.DDL == "" {
			continue
		}
		if first {
			b.WriteString("DELIMITER $$\n")
			first = false
		}
		b.WriteString(strings.TrimRight(o.DDL, " \n"))
		b.WriteString("$$\n")
	}
	if !first {
		b.WriteString("DELIMITER ;\n")
	}
	return b.String()
}
