package main

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

// Snapshot column kinds. Exporters map them to their own SQL types.
const (
	kindText = iota
	kindInt
	kindBool
)

type snapshotColumn struct {
	name string
	kind int
}

type snapshotTable struct {
	name    string
	columns []snapshotColumn
}

func (t snapshotTable) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func textCols(names ...string) []snapshotColumn {
	out := make([]snapshotColumn, len(names))
	for i, n := range names {
		out[i] = snapshotColumn{name: n, kind: kindText}
	}
	return out
}

func joinCols(groups ...[]snapshotColumn) []snapshotColumn {
	var out []snapshotColumn
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func intCols(names ...string) []snapshotColumn {
	c := textCols(names...)
	for i := range c {
		c[i].kind = kindInt
	}
	return c
}

func boolCols(names ...string) []snapshotColumn {
	c := textCols(names...)
	for i := range c {
		c[i].kind = kindBool
	}
	return c
}

// snapshotTables is the export layout, parents before children.
var snapshotTables = []snapshotTable{
	{"mc_snapshot", textCols("id", "created_at", "version")},
	{"mc_schemata", textCols("id", "name", "default_charset", "default_collation", "comment")},
	{"mc_tables", joinCols(
		textCols("id", "schema_id", "name", "engine", "default_charset", "default_collation", "comment", "partition_type"),
		intCols("partition_count"),
		boolCols("is_stub", "model_only"),
	)},
	{"mc_columns", joinCols(
		textCols("id", "table_id"),
		intCols("position"),
		textCols("name", "datatype"),
		intCols("length", "precision", "scale"),
		textCols("explicit_params", "flags"),
		boolCols("not_null"),
		textCols("default_value"),
		boolCols("default_is_null", "auto_increment"),
		textCols("charset", "collation"),
		boolCols("generated"),
		textCols("expression", "comment"),
	)},
	{"mc_indexes", joinCols(
		textCols("id", "table_id", "name", "kind", "index_type", "comment"),
		boolCols("is_primary", "is_unique"),
	)},
	{"mc_index_columns", joinCols(
		textCols("index_id"),
		intCols("position"),
		textCols("name", "column_id"),
		intCols("length"),
		boolCols("descending"),
	)},
	{"mc_foreign_keys", joinCols(
		textCols("id", "table_id", "name", "referenced_table_id", "columns", "referenced_columns",
			"delete_rule", "update_rule", "index_id"),
		boolCols("model_only"),
	)},
	{"mc_views", joinCols(
		textCols("id", "schema_id", "name"),
		intCols("algorithm"),
		textCols("definer", "security", "columns"),
		boolCols("with_check_option"),
		textCols("definition"),
		boolCols("model_only"),
	)},
	{"mc_routines", joinCols(
		textCols("id", "schema_id", "name", "type", "definer", "return_type"),
		intCols("sequence"),
		textCols("definition"),
		boolCols("model_only"),
	)},
	{"mc_triggers", joinCols(
		textCols("id", "table_id", "name", "timing", "event", "definer", "definition"),
		boolCols("model_only"),
	)},
	{"mc_events", joinCols(
		textCols("id", "schema_id", "name", "definer", "enabled", "definition"),
		boolCols("model_only"),
	)},
	{"mc_server_objects", joinCols(
		textCols("id", "kind", "name", "engine"),
		boolCols("model_only"),
	)},
}

// snapshot holds the rows of every export table.
type snapshot struct {
	rows map[string][][]any
}

func (s *snapshot) add(table string, row ...any) {
	s.rows[table] = append(s.rows[table], row)
}

// Rows returns the rows collected for table.
func (s *snapshot) Rows(table string) [][]any { return s.rows[table] }

func idOf(o catalog.Object) string {
	if o == nil {
		return ""
	}
	return o.ObjectID().String()
}

func tableID(t *catalog.Table) string {
	if t == nil {
		return ""
	}
	return idOf(t)
}

func indexID(i *catalog.Index) string {
	if i == nil {
		return ""
	}
	return idOf(i)
}

func columnNames(columns []*catalog.Column) string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != nil {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ",")
}

// buildSnapshot flattens cat into export rows.
func buildSnapshot(cat *catalog.Catalog) *snapshot {
	s := &snapshot{rows: make(map[string][][]any)}
	s.add("mc_snapshot", uuid.NewString(), time.Now().UTC().Format(time.RFC3339), versionString())

	for _, sc := range cat.Schemata.Items() {
		sid := idOf(sc)
		s.add("mc_schemata", sid, sc.Name, sc.DefaultCharset, sc.DefaultCollation, sc.Comment)

		for _, t := range sc.Tables.Items() {
			addTableRows(s, sid, t)
		}
		for _, v := range sc.Views.Items() {
			s.add("mc_views", idOf(v), sid, v.Name, v.Algorithm, v.Definer, v.Security,
				strings.Join(v.Columns, ","), v.WithCheckCondition, v.SQLDefinition, v.ModelOnly)
		}
		for _, r := range sc.Routines.Items() {
			s.add("mc_routines", idOf(r), sid, r.Name, r.Type, r.Definer, r.ReturnDatatype,
				r.Sequence, r.SQLDefinition, r.ModelOnly)
		}
		for _, e := range sc.Events.Items() {
			s.add("mc_events", idOf(e), sid, e.Name, e.Definer, e.Enabled, e.SQLDefinition, e.ModelOnly)
		}
	}

	for _, g := range cat.LogFileGroups.Items() {
		s.add("mc_server_objects", idOf(g), g.ObjectKind(), g.Name, g.Engine, g.ModelOnly)
	}
	for _, ts := range cat.Tablespaces.Items() {
		s.add("mc_server_objects", idOf(ts), ts.ObjectKind(), ts.Name, ts.Engine, ts.ModelOnly)
	}
	for _, srv := range cat.Servers.Items() {
		s.add("mc_server_objects", idOf(srv), srv.ObjectKind(), srv.Name, srv.WrapperName, srv.ModelOnly)
	}
	return s
}

func addTableRows(s *snapshot, schemaID string, t *catalog.Table) {
	tid := idOf(t)
	s.add("mc_tables", tid, schemaID, t.Name, t.Engine, t.DefaultCharset, t.DefaultCollation, t.Comment,
		t.Partitioning.Type, t.Partitioning.Count, t.IsStub, t.ModelOnly)

	for i, c := range t.Columns.Items() {
		datatype := ""
		if c.SimpleType != nil {
			datatype = c.SimpleType.Name
		}
		s.add("mc_columns", idOf(c), tid, i, c.Name, datatype, c.Length, c.Precision, c.Scale,
			c.DatatypeExplicitParams, strings.Join(c.Flags, " "), c.IsNotNull, c.DefaultValue,
			c.DefaultValueIsNull, c.AutoIncrement, c.CharacterSet, c.Collation, c.Generated,
			c.Expression, c.Comment)
	}

	for _, idx := range t.Indexes.Items() {
		iid := idOf(idx)
		s.add("mc_indexes", iid, tid, idx.Name, idx.Kind, idx.IndexType, idx.Comment, idx.IsPrimary, idx.Unique)
		for pos, ic := range idx.Columns {
			colID := ""
			if ic.Column != nil {
				colID = idOf(ic.Column)
			}
			s.add("mc_index_columns", iid, pos, ic.Name, colID, ic.Length, ic.Descending)
		}
	}

	for _, fk := range t.ForeignKeys.Items() {
		s.add("mc_foreign_keys", idOf(fk), tid, fk.Name, tableID(fk.ReferencedTable),
			columnNames(fk.Columns), columnNames(fk.ReferencedColumns),
			fk.DeleteRule, fk.UpdateRule, indexID(fk.Index), fk.ModelOnly)
	}

	for _, tr := range t.Triggers.Items() {
		s.add("mc_triggers", idOf(tr), tid, tr.Name, tr.Timing, tr.Event, tr.Definer, tr.SQLDefinition, tr.ModelOnly)
	}
}
