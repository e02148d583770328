package ddl

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
	"github.com/Limetric/mysqlcat/internal/splitter"
)

// DefaultSchemaName is the schema unqualified objects go to when neither the
// options nor the catalog name one.
const DefaultSchemaName = "default_schema"

// relevantKinds are the statement kinds that get a full parse. Everything
// else is skipped after classification.
var relevantKinds = map[parser.StatementKind]bool{
	parser.KindAlterDatabase:      true,
	parser.KindAlterLogfileGroup:  true,
	parser.KindAlterFunction:      true,
	parser.KindAlterProcedure:     true,
	parser.KindAlterServer:        true,
	parser.KindAlterTable:         true,
	parser.KindAlterTablespace:    true,
	parser.KindAlterEvent:         true,
	parser.KindAlterView:          true,
	parser.KindCreateTable:        true,
	parser.KindCreateIndex:        true,
	parser.KindCreateDatabase:     true,
	parser.KindCreateEvent:        true,
	parser.KindCreateView:         true,
	parser.KindCreateProcedure:    true,
	parser.KindCreateFunction:     true,
	parser.KindCreateUdf:          true,
	parser.KindCreateTrigger:      true,
	parser.KindCreateLogfileGroup: true,
	parser.KindCreateServer:       true,
	parser.KindCreateTablespace:   true,
	parser.KindDropDatabase:       true,
	parser.KindDropEvent:          true,
	parser.KindDropFunction:       true,
	parser.KindDropProcedure:      true,
	parser.KindDropIndex:          true,
	parser.KindDropLogfileGroup:   true,
	parser.KindDropServer:         true,
	parser.KindDropTable:          true,
	parser.KindDropTablespace:     true,
	parser.KindDropTrigger:        true,
	parser.KindDropView:           true,
	parser.KindRenameTable:        true,
	parser.KindUse:                true,
}

// engine applies one batch of statements to a catalog.
type engine struct {
	cat        *catalog.Catalog
	log        *zap.SugaredLogger
	current    *catalog.Schema
	genFKNames bool
	created    *createdList
	refs       refQueue
	errors     int

	// rollback undoes in-place changes of a statement that failed half way.
	rollback func()
}

// ParseSQLIntoCatalog applies every statement of sql to cat and returns the
// number of errors found. Statements that fail to parse are skipped as a
// whole; the rest of the script is still applied. References between
// objects are resolved once after the last statement, so statement order
// does not matter.
//
// The run stops early, after the current statement, when ctx is done or the
// context's stop flag is set.
func ParseSQLIntoCatalog(ctx context.Context, pc *Context, cat *catalog.Catalog, sql string, opts Options) int {
	if cat == nil {
		panic(errors.New("ddl: ParseSQLIntoCatalog called with nil catalog"))
	}
	cat.CaseSensitive = pc.caseSensitive()
	pc.resetStop()

	e := &engine{
		cat:        cat,
		log:        pc.logger(),
		genFKNames: opts.GenFKNamesWhenEmpty,
		created:    newCreatedList(opts.CreatedObjects),
	}

	if opts.Schema != "" {
		e.current = ensureSchema(cat, opts.Schema)
	}
	defaultCreated := false
	if e.current == nil {
		e.current = cat.DefaultSchema
	}
	if e.current == nil {
		defaultCreated = cat.FindSchema(DefaultSchemaName) == nil
		e.current = ensureSchema(cat, DefaultSchemaName)
	}

	ranges := splitter.Determine(ctx, sql, ";", "\n", pc.stopFlag())
	e.log.Debugf("parsing %d statements into catalog %s", len(ranges), cat.Name)
	for _, r := range ranges {
		if ctx.Err() != nil || pc.stopped() {
			e.log.Infof("parsing stopped before offset %d", r.Offset)
			break
		}
		e.statement(r.Text(sql))
	}

	resolveReferences(cat, &e.refs)

	if defaultCreated {
		if s := cat.FindSchema(DefaultSchemaName); s != nil && s.IsEmpty() {
			cat.RemoveSchema(s)
		}
	}
	return e.errors
}

// statement processes a single statement.
func (e *engine) statement(sql string) {
	kind, err := parser.Classify(sql)
	if err != nil {
		e.errors++
		e.log.Warnf("skipping statement: %v", err)
		return
	}
	if !relevantKinds[kind] {
		return
	}

	c, errs := parser.Recognize(sql, parser.UnitStatement)
	if len(errs) > 0 {
		e.errors += len(errs)
		e.log.Warnf("skipping %s statement: %v", kind, errs[0])
		return
	}

	x := newExtractor(c, e.cat, e.current)
	x.genFKNames = e.genFKNames
	x.pending = &e.refs
	e.rollback = nil

	var apply func()
	if err := c.Run(func() { apply = e.extract(kind, x, sql) }); err != nil {
		e.errors++
		if e.rollback != nil {
			e.rollback()
		}
		e.log.Warnf("skipping %s statement: %v", kind, err)
		return
	}
	if apply != nil {
		apply()
	}
	x.commit(&e.refs)
}

// extract drains the statement and returns the catalog change it stands
// for. Nothing in the catalog may change before the returned function runs,
// except for ALTER TABLE which registers a rollback.
func (e *engine) extract(kind parser.StatementKind, x *extractor, sql string) func() {
	switch kind {
	case parser.KindCreateTable:
		return e.createTable(x)
	case parser.KindCreateIndex:
		return e.createIndex(x)
	case parser.KindCreateDatabase:
		return e.createSchema(x)
	case parser.KindUse:
		x.c.Expect("USE")
		id := identifier(x.c)
		return func() { e.current = ensureSchema(e.cat, id.Name) }
	case parser.KindCreateEvent:
		return e.createEvent(x, sql)
	case parser.KindCreateView:
		return e.createView(x, sql)
	case parser.KindCreateProcedure, parser.KindCreateFunction, parser.KindCreateUdf:
		return e.createRoutine(x, sql)
	case parser.KindCreateTrigger:
		return e.createTrigger(x, sql)
	case parser.KindCreateLogfileGroup:
		g := catalog.NewLogFileGroup("")
		x.logfileGroupDetails(g)
		return func() {
			replaceNamed(&e.cat.LogFileGroups, g)
			e.created.add(g)
		}
	case parser.KindCreateServer:
		s := catalog.NewServer("")
		x.serverDetails(s)
		return func() {
			replaceNamed(&e.cat.Servers, s)
			e.created.add(s)
		}
	case parser.KindCreateTablespace:
		ts := catalog.NewTablespace("")
		x.tablespaceDetails(ts)
		return func() {
			replaceNamed(&e.cat.Tablespaces, ts)
			e.created.add(ts)
		}

	case parser.KindDropDatabase:
		return e.dropSchema(x)
	case parser.KindDropEvent, parser.KindDropProcedure, parser.KindDropFunction, parser.KindDropTrigger:
		return e.dropSchemaObject(kind, x)
	case parser.KindDropIndex:
		return e.dropIndex(x)
	case parser.KindDropLogfileGroup, parser.KindDropServer, parser.KindDropTablespace:
		return e.dropServerObject(kind, x)
	case parser.KindDropTable, parser.KindDropView:
		return e.dropTables(kind == parser.KindDropView, x)
	case parser.KindRenameTable:
		return e.renameTables(x)

	case parser.KindAlterDatabase:
		return e.alterSchema(x)
	case parser.KindAlterTable:
		return e.alterTable(x)
	}
	// Other ALTER statements do not change the model.
	return nil
}

// schemaFor returns the schema a qualifier denotes, creating it if needed.
func (e *engine) schemaFor(qualifier string) *catalog.Schema {
	if qualifier == "" {
		return e.current
	}
	return ensureSchema(e.cat, qualifier)
}

// findSchema is schemaFor without creating anything.
func (e *engine) findSchema(qualifier string) *catalog.Schema {
	if qualifier == "" {
		return e.current
	}
	return e.cat.FindSchema(qualifier)
}

// replaceNamed puts v in place of a same-named object of l, or appends it.
func replaceNamed[T interface {
	comparable
	catalog.Object
}](l *catalog.List[T], v T) {
	l.Replace(l.Find(v.ObjectName(), false), v)
}

func (e *engine) createTable(x *extractor) func() {
	t := catalog.NewTable("")
	qualifier, ifNotExists := x.tableDetails(t)
	return func() {
		s := e.schemaFor(qualifier)
		if s.FindView(t.Name) != nil {
			e.log.Debugf("table %s.%s not created: a view with that name exists", s.Name, t.Name)
			x.refs.drop(t)
			return
		}
		existing := s.FindTable(t.Name)
		if existing != nil && ifNotExists {
			x.refs.drop(t)
			return
		}
		t.Owner = s
		if existing != nil {
			e.refs.drop(existing)
		}
		s.Tables.Replace(existing, t)
		e.created.add(t)
	}
}

func (e *engine) createIndex(x *extractor) func() {
	idx := catalog.NewIndex("")
	ref := x.indexDetails(idx)
	return func() {
		s := e.schemaFor(ref.Qualifier)
		t := s.FindTable(ref.Name)
		if t == nil {
			e.log.Debugf("index %s not created: table %s not found", idx.Name, ref)
			return
		}
		resolveIndexColumns(idx, t)
		if existing := t.FindIndex(idx.Name); existing != nil {
			t.RemoveIndex(existing)
		}
		t.AddIndex(idx)
		e.created.add(idx)
	}
}

func (e *engine) createSchema(x *extractor) func() {
	s := catalog.NewSchema("")
	s.DefaultCharset, s.DefaultCollation = detailsForCharset(e.cat.DefaultCharset, e.cat.DefaultCollation, e.cat.DefaultCharset)
	ifNotExists := x.schemaDetails(s)
	return func() {
		existing := e.cat.FindSchema(s.Name)
		if existing != nil && ifNotExists {
			return
		}
		s.Owner = e.cat
		e.cat.Schemata.Replace(existing, s)
		if existing != nil {
			if e.cat.DefaultSchema == existing {
				e.cat.DefaultSchema = s
			}
			if e.current == existing {
				e.current = s
			}
		}
		e.created.add(s)
	}
}

func (e *engine) createEvent(x *extractor, sql string) func() {
	ev := catalog.NewEvent("")
	ev.SQLDefinition = strings.TrimSpace(sql)
	qualifier, ifNotExists := x.eventDetails(ev)
	return func() {
		s := e.schemaFor(qualifier)
		existing := s.FindEvent(ev.Name)
		if existing != nil && ifNotExists {
			return
		}
		ev.Owner = s
		s.Events.Replace(existing, ev)
		e.created.add(ev)
	}
}

func (e *engine) createView(x *extractor, sql string) func() {
	v := catalog.NewView("")
	v.SQLDefinition = strings.TrimSpace(sql)
	qualifier, orReplace := x.viewDetails(v)
	return func() {
		s := e.schemaFor(qualifier)
		if s.FindTable(v.Name) != nil {
			e.log.Debugf("view %s.%s not created: a table with that name exists", s.Name, v.Name)
			return
		}
		existing := s.FindView(v.Name)
		if existing != nil && !orReplace {
			return
		}
		v.Owner = s
		s.Views.Replace(existing, v)
		e.created.add(v)
	}
}

func (e *engine) createRoutine(x *extractor, sql string) func() {
	r := catalog.NewRoutine("")
	r.SQLDefinition = strings.TrimSpace(sql)
	qualifier := x.routineDetails(r)
	return func() {
		s := e.schemaFor(qualifier)
		r.Owner = s
		s.Routines.Replace(s.FindRoutine(r.Name), r)
		e.created.add(r)
	}
}

// createTrigger attaches the trigger to its table right away. A missing
// table is replaced by a stub so the trigger is not lost.
func (e *engine) createTrigger(x *extractor, sql string) func() {
	tr := catalog.NewTrigger("")
	tr.SQLDefinition = strings.TrimSpace(sql)
	ref := x.triggerDetails(tr)
	return func() {
		s := e.schemaFor(ref.Qualifier)
		t := s.FindTable(ref.Name)
		if t == nil {
			t = catalog.NewTable(ref.Name)
			t.IsStub = true
			s.AddTable(t)
			e.created.add(t)
		}
		tr.Owner = t
		t.Triggers.Replace(t.FindTrigger(tr.Name), tr)
		e.created.add(tr)
	}
}

// skipIfExists consumes IF EXISTS.
func skipIfExists(c *parser.Cursor) {
	if c.SkipIf("IF", 0) {
		c.Expect("EXISTS")
	}
}

func (e *engine) dropSchema(x *extractor) func() {
	c := x.c
	c.Expect("DROP")
	c.Next(1) // DATABASE or SCHEMA
	skipIfExists(c)
	id := identifier(c)
	return func() {
		s := e.cat.FindSchema(id.Name)
		if s == nil {
			return
		}
		e.cat.RemoveSchema(s)
		if e.current == s {
			e.current = e.cat.DefaultSchema
			if e.current == nil {
				e.current = ensureSchema(e.cat, DefaultSchemaName)
			}
		}
	}
}

func (e *engine) dropSchemaObject(kind parser.StatementKind, x *extractor) func() {
	c := x.c
	c.Expect("DROP")
	c.Next(1)
	skipIfExists(c)
	id := identifier(c)
	return func() {
		s := e.findSchema(id.Qualifier)
		if s == nil {
			return
		}
		switch kind {
		case parser.KindDropEvent:
			s.Events.Remove(s.FindEvent(id.Name))
		case parser.KindDropProcedure, parser.KindDropFunction:
			s.Routines.Remove(s.FindRoutine(id.Name))
		case parser.KindDropTrigger:
			// Triggers are stored with their table, so every table is a
			// candidate. Trigger names are unique per schema.
			for _, t := range s.Tables.Items() {
				if tr := t.FindTrigger(id.Name); tr != nil {
					t.Triggers.Remove(tr)
					break
				}
			}
		}
	}
}

func (e *engine) dropIndex(x *extractor) func() {
	c := x.c
	c.Expect("DROP")
	if !c.SkipIf("ONLINE", 0) {
		c.SkipIf("OFFLINE", 0)
	}
	c.Expect("INDEX")
	if !c.Token().IsIdentifier() {
		c.Failf("expected index name but found %q", c.Text())
	}
	name := c.Unquoted()
	c.Advance()
	c.Expect("ON")
	ref := identifier(c)
	return func() {
		s := e.findSchema(ref.Qualifier)
		if s == nil {
			return
		}
		if t := s.FindTable(ref.Name); t != nil {
			if idx := t.FindIndex(name); idx != nil {
				t.RemoveIndex(idx)
			}
		}
	}
}

func (e *engine) dropServerObject(kind parser.StatementKind, x *extractor) func() {
	c := x.c
	c.Expect("DROP")
	switch kind {
	case parser.KindDropLogfileGroup:
		c.Expect("LOGFILE")
		c.Expect("GROUP")
	case parser.KindDropTablespace:
		c.SkipIf("UNDO", 0)
		c.Expect("TABLESPACE")
	default:
		c.Expect("SERVER")
		skipIfExists(c)
	}
	id := identifier(c)
	return func() {
		switch kind {
		case parser.KindDropLogfileGroup:
			e.cat.LogFileGroups.Remove(e.cat.LogFileGroups.Find(id.Name, false))
		case parser.KindDropTablespace:
			e.cat.Tablespaces.Remove(e.cat.Tablespaces.Find(id.Name, false))
		default:
			e.cat.Servers.Remove(e.cat.Servers.Find(id.Name, false))
		}
	}
}

func (e *engine) dropTables(views bool, x *extractor) func() {
	c := x.c
	c.Expect("DROP")
	c.SkipIf("TEMPORARY", 0)
	c.Next(1) // TABLE, TABLES or VIEW
	skipIfExists(c)
	var ids []Identifier
	for {
		ids = append(ids, identifier(c))
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	return func() {
		for _, id := range ids {
			s := e.findSchema(id.Qualifier)
			if s == nil {
				continue
			}
			if views {
				s.Views.Remove(s.FindView(id.Name))
				continue
			}
			if t := s.FindTable(id.Name); t != nil {
				s.Tables.Remove(t)
				e.refs.drop(t)
			}
		}
	}
}

// renameTables handles RENAME TABLE a TO b [, c TO d ...]. Views can be
// renamed this way too but never move to another schema.
func (e *engine) renameTables(x *extractor) func() {
	c := x.c
	c.Expect("RENAME")
	c.Next(1) // TABLE or TABLES
	type pair struct{ from, to Identifier }
	var pairs []pair
	for {
		from := identifier(c)
		c.Expect("TO")
		pairs = append(pairs, pair{from, identifier(c)})
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	return func() {
		for _, p := range pairs {
			e.rename(p.from, p.to)
		}
	}
}

func (e *engine) rename(from, to Identifier) {
	source := e.findSchema(from.Qualifier)
	if source == nil {
		return
	}

	if v := source.FindView(from.Name); v != nil {
		if e.findSchema(to.Qualifier) == source {
			v.Name = to.Name
		}
		return
	}
	if t := source.FindTable(from.Name); t != nil {
		e.moveTable(t, e.schemaFor(to.Qualifier), to.Name)
	}
}

// moveTable renames t and moves it to target when that is another schema.
// Queued references to the old name follow the table.
func (e *engine) moveTable(t *catalog.Table, target *catalog.Schema, name string) {
	if t.Owner != nil {
		e.refs.retarget(Identifier{Qualifier: t.Owner.Name, Name: t.Name},
			Identifier{Qualifier: target.Name, Name: name}, e.cat.CaseSensitive)
	}
	if t.Owner != target {
		if t.Owner != nil {
			t.Owner.Tables.Remove(t)
		}
		target.AddTable(t)
		e.created.add(t)
	}
	t.Name = name
}

// alterSchema handles ALTER DATABASE [name] options.
func (e *engine) alterSchema(x *extractor) func() {
	c := x.c
	c.Expect("ALTER")
	c.Next(1) // DATABASE or SCHEMA
	name := ""
	if c.Token().IsIdentifier() && !c.IsAny("DEFAULT", "CHARACTER", "CHARSET", "CHAR", "COLLATE", "ENCRYPTION", "READ", "UPGRADE") {
		name = c.Unquoted()
		c.Advance()
	}

	var charset, collation string
	if s := e.findSchema(name); s != nil {
		charset, collation = s.DefaultCharset, s.DefaultCollation
	}
	scratch := catalog.NewSchema(name)
	scratch.DefaultCharset, scratch.DefaultCollation = charset, collation
	x.schemaOptions(scratch)
	return func() {
		s := e.schemaFor(name)
		s.DefaultCharset, s.DefaultCollation = scratch.DefaultCharset, scratch.DefaultCollation
	}
}

// alterTable handles the ADD and RENAME items of ALTER TABLE. Other items
// are skipped. Added elements go straight into the table, which is restored
// if the statement fails later on.
func (e *engine) alterTable(x *extractor) func() {
	c := x.c
	c.Expect("ALTER")
	if !c.SkipIf("ONLINE", 0) {
		c.SkipIf("OFFLINE", 0)
	}
	c.SkipIf("IGNORE", 0)
	c.Expect("TABLE")
	id := identifier(c)

	s := e.findSchema(id.Qualifier)
	if s == nil {
		return nil
	}
	t := s.FindTable(id.Name)
	if t == nil {
		e.log.Debugf("ALTER TABLE ignored: table %s not found", id)
		return nil
	}
	saved := *t
	e.rollback = func() { *t = saved }
	x.schema = s

	var renameTo *Identifier
	for !c.AtEnd() {
		switch {
		case c.SkipIf("ADD", 0):
			x.alterAdd(t, s.Name)
		case c.Is("RENAME") && !c.PeekIs(1, "COLUMN") && !c.PeekIs(1, "INDEX") && !c.PeekIs(1, "KEY"):
			c.Advance()
			if !c.SkipIf("TO", 0) {
				c.SkipIf("AS", 0)
			}
			to := identifier(c)
			renameTo = &to
		default:
			c.SkipExpression()
		}
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}

	return func() {
		if renameTo != nil {
			e.moveTable(t, e.schemaFor(renameTo.Qualifier), renameTo.Name)
		}
	}
}

// alterAdd reads the part of an ADD item following the ADD keyword.
func (x *extractor) alterAdd(t *catalog.Table, schemaName string) {
	c := x.c
	switch {
	case c.IsAny(keyItemStarts...), c.Is("CHECK"):
		x.createItem(t, schemaName)
	case c.IsAny("PARTITION", "PARTITIONS"):
		c.SkipExpression()
	default:
		c.SkipIf("COLUMN", 0)
		if c.SkipKind(lexer.LParen) {
			for {
				x.columnDefinition(t, schemaName)
				if !c.SkipKind(lexer.Comma) {
					break
				}
			}
			c.ExpectKind(lexer.RParen)
			return
		}
		x.columnDefinition(t, schemaName)
		x.columnPosition(t)
	}
}

// columnPosition applies FIRST or AFTER col to the column added last.
func (x *extractor) columnPosition(t *catalog.Table) {
	c := x.c
	items := t.Columns.Items()
	col := items[len(items)-1]
	switch {
	case c.SkipIf("FIRST", 0):
		moveColumn(t, col, nil)
	case c.SkipIf("AFTER", 0):
		if !c.Token().IsIdentifier() {
			c.Failf("expected column name but found %q", c.Text())
		}
		after := t.FindColumn(c.Unquoted())
		if after == nil {
			c.Failf("unknown column %q", c.Unquoted())
		}
		c.Advance()
		moveColumn(t, col, after)
	}
}

// moveColumn places col directly behind after, or first when after is nil.
func moveColumn(t *catalog.Table, col, after *catalog.Column) {
	order := make([]*catalog.Column, 0, t.Columns.Len())
	if after == nil {
		order = append(order, col)
	}
	for _, other := range t.Columns.Items() {
		if other == col {
			continue
		}
		order = append(order, other)
		if other == after {
			order = append(order, col)
		}
	}
	t.Columns.Clear()
	for _, c := range order {
		t.Columns.Add(c)
	}
}
