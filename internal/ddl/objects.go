package ddl

import (
	"strings"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
)

// skipIfNotExists consumes IF NOT EXISTS and reports whether it was there.
func skipIfNotExists(c *parser.Cursor) bool {
	if !c.SkipIf("IF", 0) {
		return false
	}
	c.Expect("NOT")
	c.Expect("EXISTS")
	return true
}

// skipBody consumes a routine, trigger or event body. Compound bodies
// contain semicolons, so everything up to the end of the text belongs to it.
func (x *extractor) skipBody(what string) {
	c := x.c
	if c.AtEnd() {
		c.Failf("missing %s body", what)
	}
	for !c.IsKind(lexer.EOF) {
		c.Advance()
	}
}

// viewDetails drains CREATE VIEW into v and returns the schema qualifier
// and whether OR REPLACE was given.
func (x *extractor) viewDetails(v *catalog.View) (string, bool) {
	c := x.c
	c.Expect("CREATE")
	orReplace := false
	if c.SkipIf("OR", 0) {
		c.Expect("REPLACE")
		orReplace = true
	}

	v.Algorithm = catalog.ViewAlgorithmUndefined
	if c.SkipIf("ALGORITHM", 0) {
		c.SkipKind(lexer.Equal)
		switch {
		case c.Is("MERGE"):
			v.Algorithm = catalog.ViewAlgorithmMerge
		case c.Is("TEMPTABLE"):
			v.Algorithm = catalog.ViewAlgorithmTempTable
		}
		c.Advance()
	}
	if c.Is("DEFINER") {
		v.Definer = definer(c)
	}
	if c.SkipIf("SQL", 0) {
		c.Expect("SECURITY")
		v.Security = c.Token().Upper()
		c.Advance()
	}
	c.Expect("VIEW")

	id := identifier(c)
	x.requireSchema(id.Qualifier)
	v.Name, v.OldName = id.Name, id.Name

	v.Columns = nil
	if c.IsKind(lexer.LParen) {
		v.Columns = namesList(c)
	}
	c.Expect("AS")
	if c.AtEnd() {
		c.Failf("missing view query")
	}

	var tail []lexer.Token
	for !c.AtEnd() {
		tail = append(tail, c.Token())
		c.SkipSubtree()
	}
	v.WithCheckCondition = hasCheckOption(tail)
	v.ModelOnly = false
	return id.Qualifier, orReplace
}

// hasCheckOption reports whether tokens end with WITH [CASCADED | LOCAL]
// CHECK OPTION.
func hasCheckOption(tokens []lexer.Token) bool {
	n := len(tokens)
	if n < 3 || !tokens[n-1].Is("OPTION") || !tokens[n-2].Is("CHECK") {
		return false
	}
	if tokens[n-3].Is("WITH") {
		return true
	}
	return n >= 4 && tokens[n-4].Is("WITH") && (tokens[n-3].Is("CASCADED") || tokens[n-3].Is("LOCAL"))
}

// triggerDetails drains CREATE TRIGGER into tr and returns the table the
// trigger belongs to. A schema qualifier on the trigger name is ignored
// since triggers live with their table.
func (x *extractor) triggerDetails(tr *catalog.Trigger) Identifier {
	c := x.c
	c.Expect("CREATE")
	if c.Is("DEFINER") {
		tr.Definer = definer(c)
	}
	c.Expect("TRIGGER")
	skipIfNotExists(c)
	id := identifier(c)
	tr.Name, tr.OldName = id.Name, id.Name
	tr.Enabled = true

	if !c.IsAny("BEFORE", "AFTER") {
		c.Failf("expected BEFORE or AFTER but found %q", c.Text())
	}
	tr.Timing = c.Token().Upper()
	c.Advance()
	if !c.IsAny("INSERT", "UPDATE", "DELETE") {
		c.Failf("expected INSERT, UPDATE or DELETE but found %q", c.Text())
	}
	tr.Event = c.Token().Upper()
	c.Advance()

	c.Expect("ON")
	table := identifier(c)
	c.Expect("FOR")
	c.Expect("EACH")
	c.Expect("ROW")

	tr.Ordering, tr.OtherTrigger = "", ""
	if c.IsAny("FOLLOWS", "PRECEDES") {
		tr.Ordering = c.Token().Upper()
		c.Advance()
		if !c.Token().IsIdentifier() {
			c.Failf("expected trigger name but found %q", c.Text())
		}
		tr.OtherTrigger = c.Unquoted()
		c.Advance()
	}
	x.skipBody("trigger")
	tr.ModelOnly = false
	return table
}

// returnTypeAttributes may follow the type name of a function result.
var returnTypeAttributes = []string{"SIGNED", "UNSIGNED", "ZEROFILL", "BINARY", "ASCII", "UNICODE"}

// routineDetails drains CREATE PROCEDURE or CREATE FUNCTION into r and
// returns the schema qualifier.
func (x *extractor) routineDetails(r *catalog.Routine) string {
	c := x.c
	c.Expect("CREATE")
	if c.Is("DEFINER") {
		r.Definer = definer(c)
	}
	c.SkipIf("AGGREGATE", 0)
	switch {
	case c.SkipIf("FUNCTION", 0):
		r.Type = catalog.RoutineFunction
	case c.SkipIf("PROCEDURE", 0):
		r.Type = catalog.RoutineProcedure
	default:
		c.Failf("expected FUNCTION or PROCEDURE but found %q", c.Text())
	}
	skipIfNotExists(c)

	id := identifier(c)
	x.requireSchema(id.Qualifier)
	r.Name, r.OldName = id.Name, id.Name
	r.Params = nil
	r.ReturnDatatype = ""

	if c.SkipIf("RETURNS", 0) {
		// Loadable function: RETURNS {STRING|INTEGER|REAL|DECIMAL} SONAME 'lib'.
		r.Type = catalog.RoutineUdf
		r.ReturnDatatype = c.Token().Upper()
		c.Advance()
		c.Expect("SONAME")
		if !c.IsKind(lexer.String) {
			c.Failf("expected library name but found %q", c.Text())
		}
		c.Advance()
		r.ModelOnly = false
		return id.Qualifier
	}

	c.ExpectKind(lexer.LParen)
	for !c.IsKind(lexer.RParen) {
		p := &catalog.RoutineParam{}
		if r.Type == catalog.RoutineProcedure && c.IsAny("IN", "OUT", "INOUT") {
			p.Mode = c.Token().Upper()
			c.Advance()
		}
		if !c.Token().IsIdentifier() {
			c.Failf("expected parameter name but found %q", c.Text())
		}
		p.Name = c.Unquoted()
		c.Advance()
		p.Datatype = textUntil(c)
		if p.Datatype == "" {
			c.Failf("missing type of parameter %s", p.Name)
		}
		r.Params = append(r.Params, p)
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)

	if r.Type == catalog.RoutineFunction {
		c.Expect("RETURNS")
		r.ReturnDatatype = x.returnType()
	}

	r.Comment, r.Security, r.DataAccess, r.Language = "", "", "", ""
	r.Deterministic = false
characteristics:
	for {
		switch {
		case c.SkipIf("COMMENT", 0):
			r.Comment = optionValue(c)
		case c.SkipIf("LANGUAGE", 0):
			r.Language = c.Token().Upper()
			c.Advance()
		case c.Is("NOT") && c.PeekIs(1, "DETERMINISTIC"):
			c.Next(2)
			r.Deterministic = false
		case c.SkipIf("DETERMINISTIC", 0):
			r.Deterministic = true
		case c.Is("CONTAINS") && c.PeekIs(1, "SQL"), c.Is("NO") && c.PeekIs(1, "SQL"):
			r.DataAccess = c.Token().Upper() + " SQL"
			c.Next(2)
		case (c.Is("READS") || c.Is("MODIFIES")) && c.PeekIs(1, "SQL"):
			r.DataAccess = c.Token().Upper() + " SQL DATA"
			c.Next(2)
			c.Expect("DATA")
		case c.Is("SQL") && c.PeekIs(1, "SECURITY"):
			c.Next(2)
			r.Security = c.Token().Upper()
			c.Advance()
		default:
			break characteristics
		}
	}

	x.skipBody("routine")
	r.ModelOnly = false
	return id.Qualifier
}

// returnType reads a function's return type with its attributes and
// returns it as written.
func (x *extractor) returnType() string {
	c := x.c
	mark := c.Mark()
	x.readTypeName()
	if c.IsKind(lexer.LParen) {
		c.SkipSubtree()
	}
	for {
		switch {
		case c.IsAny(returnTypeAttributes...):
			c.Advance()
		case isCharsetStart(c):
			charsetName(c)
		case c.SkipIf("COLLATE", 0):
			c.Advance()
		default:
			return c.TextSince(mark)
		}
	}
}

// RoutineNameAndType scans the head of a CREATE PROCEDURE or CREATE
// FUNCTION statement without a full parse. It works on text that does not
// parse and returns "unknown" for parts it cannot find. Kind is one of the
// catalog routine types.
func RoutineNameAndType(sql string) (name, kind, definer string) {
	name, kind = catalog.RoutineUnknown, catalog.RoutineUnknown
	tokens, _ := lexer.Tokenize(sql)
	c := parser.NewCursor(sql, tokens)
	if !c.SkipIf("CREATE", 0) {
		return name, kind, ""
	}

	if c.SkipIf("DEFINER", 0) {
		c.SkipKind(lexer.Equal)
		mark := c.Mark()
		if c.SkipIf("CURRENT_USER", 0) {
			if c.SkipKind(lexer.LParen) {
				c.SkipKind(lexer.RParen)
			}
		} else {
			if c.Token().IsIdentifier() {
				c.Advance()
			}
			if c.SkipKind(lexer.At) && c.Token().IsIdentifier() {
				c.Advance()
			}
		}
		definer = c.TextSince(mark)
	}

	c.SkipIf("AGGREGATE", 0)
	switch {
	case c.SkipIf("PROCEDURE", 0):
		kind = catalog.RoutineProcedure
	case c.SkipIf("FUNCTION", 0):
		kind = catalog.RoutineFunction
	default:
		return name, kind, definer
	}
	if c.Is("IF") && c.PeekIs(1, "NOT") && c.PeekIs(2, "EXISTS") {
		c.Next(3)
	}

	if c.Token().IsIdentifier() {
		name = c.Unquoted()
		c.Advance()
		if c.SkipKind(lexer.Dot) && c.Token().IsIdentifier() {
			name = c.Unquoted()
			c.Advance()
		}
	}
	if c.Is("RETURNS") {
		kind = catalog.RoutineUdf
	}
	return name, kind, definer
}

// schemaDetails drains CREATE DATABASE into s and reports whether IF NOT
// EXISTS was given.
func (x *extractor) schemaDetails(s *catalog.Schema) bool {
	c := x.c
	c.Expect("CREATE")
	if !c.SkipIf("DATABASE", 0) {
		c.Expect("SCHEMA")
	}
	ifNotExists := skipIfNotExists(c)
	if !c.Token().IsIdentifier() {
		c.Failf("expected schema name but found %q", c.Text())
	}
	s.Name, s.OldName = c.Unquoted(), c.Unquoted()
	c.Advance()
	x.schemaOptions(s)
	return ifNotExists
}

// schemaOptions reads the character set, collation and other options of
// CREATE or ALTER DATABASE.
func (x *extractor) schemaOptions(s *catalog.Schema) {
	c := x.c
	var defaultCharset, defaultCollation string
	if x.cat != nil {
		defaultCharset, defaultCollation = x.cat.DefaultCharset, x.cat.DefaultCollation
	}
	for {
		c.SkipIf("DEFAULT", 0)
		switch {
		case isCharsetStart(c):
			s.DefaultCharset, s.DefaultCollation = detailsForCharset(charsetName(c), defaultCollation, defaultCharset)
		case c.SkipIf("COLLATE", 0):
			c.SkipKind(lexer.Equal)
			s.DefaultCharset, s.DefaultCollation = detailsForCollation(c.Unquoted(), defaultCollation)
			c.Advance()
		case c.SkipIf("ENCRYPTION", 0):
			optionValue(c)
		case c.Is("READ") && c.PeekIs(1, "ONLY"):
			c.Next(2)
			optionValue(c)
		default:
			return
		}
	}
}

// indexDetails drains CREATE INDEX into idx and returns the table it is
// defined on. Key parts are left for the caller to resolve.
func (x *extractor) indexDetails(idx *catalog.Index) Identifier {
	c := x.c
	c.Expect("CREATE")
	if !c.SkipIf("ONLINE", 0) {
		c.SkipIf("OFFLINE", 0)
	}

	idx.Unique = false
	switch {
	case c.SkipIf("UNIQUE", 0):
		idx.Unique = true
		idx.Kind = catalog.IndexUnique
		c.Expect("INDEX")
	case c.IsAny("FULLTEXT", "SPATIAL"):
		idx.Kind = formatIndexType(c.Text())
		c.Advance()
		c.Expect("INDEX")
	default:
		c.Expect("INDEX")
		idx.Kind = catalog.IndexPlain
	}

	if !c.Token().IsIdentifier() {
		c.Failf("expected index name but found %q", c.Text())
	}
	idx.Name, idx.OldName = c.Unquoted(), c.Unquoted()
	c.Advance()
	x.indexTypeClause(idx)

	c.Expect("ON")
	table := identifier(c)
	x.indexColumns(idx)
	x.indexOptions(idx)

	for {
		switch {
		case c.SkipIf("ALGORITHM", 0):
			v := strings.ToUpper(optionValue(c))
			switch v {
			case "DEFAULT", "INPLACE", "COPY", "INSTANT":
				idx.AlgorithmOption = v
			}
		case c.SkipIf("LOCK", 0):
			v := strings.ToUpper(optionValue(c))
			switch v {
			case "DEFAULT", "NONE", "SHARED", "EXCLUSIVE":
				idx.LockOption = v
			}
		default:
			return table
		}
	}
}

// resolveIndexColumns points the key parts of idx at the columns of t.
func resolveIndexColumns(idx *catalog.Index, t *catalog.Table) {
	if t == nil {
		return
	}
	for _, ic := range idx.Columns {
		if col := t.FindColumn(ic.Name); col != nil {
			ic.Column = col
		}
	}
}

// eventDetails drains CREATE EVENT into e and returns the schema qualifier
// and whether IF NOT EXISTS was given.
func (x *extractor) eventDetails(e *catalog.Event) (string, bool) {
	c := x.c
	c.Expect("CREATE")
	if c.Is("DEFINER") {
		e.Definer = definer(c)
	}
	c.Expect("EVENT")
	ifNotExists := skipIfNotExists(c)
	id := identifier(c)
	x.requireSchema(id.Qualifier)
	e.Name, e.OldName = id.Name, id.Name

	c.Expect("ON")
	c.Expect("SCHEDULE")
	stops := []string{"STARTS", "ENDS", "ON", "ENABLE", "DISABLE", "COMMENT", "DO"}
	e.At, e.IntervalValue, e.IntervalUnit, e.IntervalStart, e.IntervalEnd = "", "", "", "", ""
	if c.SkipIf("AT", 0) {
		e.UseInterval = false
		e.At = textUntil(c, stops...)
		if e.At == "" {
			c.Failf("missing event time")
		}
	} else {
		c.Expect("EVERY")
		e.UseInterval = true
		mark := c.Mark()
		c.SkipSubtree()
		e.IntervalValue = c.TextSince(mark)
		if !c.IsKind(lexer.Word) {
			c.Failf("expected interval unit but found %q", c.Text())
		}
		e.IntervalUnit = c.Token().Upper()
		c.Advance()
		if c.SkipIf("STARTS", 0) {
			e.IntervalStart = textUntil(c, stops...)
		}
		if c.SkipIf("ENDS", 0) {
			e.IntervalEnd = textUntil(c, stops...)
		}
	}

	e.PreserveOnCompletion = false
	if c.SkipIf("ON", 0) {
		c.Expect("COMPLETION")
		not := c.SkipIf("NOT", 0)
		c.Expect("PRESERVE")
		e.PreserveOnCompletion = !not
	}

	e.Enabled = "ENABLE"
	switch {
	case c.SkipIf("ENABLE", 0):
	case c.SkipIf("DISABLE", 0):
		e.Enabled = "DISABLE"
		if c.SkipIf("ON", 0) {
			if !c.IsAny("SLAVE", "REPLICA") {
				c.Failf("expected SLAVE but found %q", c.Text())
			}
			c.Advance()
			e.Enabled = "DISABLE ON SLAVE"
		}
	}

	if c.SkipIf("COMMENT", 0) {
		e.Comment = optionValue(c)
	}
	c.Expect("DO")
	x.skipBody("event")
	e.ModelOnly = false
	return id.Qualifier, ifNotExists
}

// logfileGroupDetails drains CREATE LOGFILE GROUP into g.
func (x *extractor) logfileGroupDetails(g *catalog.LogFileGroup) {
	c := x.c
	c.Expect("CREATE")
	c.Expect("LOGFILE")
	c.Expect("GROUP")
	id := identifier(c)
	g.Name, g.OldName = id.Name, id.Name

	c.Expect("ADD")
	if !c.SkipIf("UNDOFILE", 0) {
		c.Expect("REDOFILE")
	}
	if !c.IsKind(lexer.String) {
		c.Failf("expected file name but found %q", c.Text())
	}
	g.UndoFile = c.Unquoted()
	c.Advance()

	for {
		switch {
		case c.SkipKind(lexer.Comma):
		case c.SkipIf("INITIAL_SIZE", 0):
			g.InitialSize = parseSize(optionValue(c))
		case c.SkipIf("UNDO_BUFFER_SIZE", 0):
			g.UndoBufferSize = parseSize(optionValue(c))
		case c.SkipIf("REDO_BUFFER_SIZE", 0):
			g.RedoBufferSize = parseSize(optionValue(c))
		case c.SkipIf("NODEGROUP", 0):
			g.NodeGroupID = int(atoi(optionValue(c)))
		case c.SkipIf("WAIT", 0):
			g.Wait = true
		case c.SkipIf("NO_WAIT", 0):
			g.Wait = false
		case c.SkipIf("COMMENT", 0):
			g.Comment = optionValue(c)
		case c.Is("STORAGE") && c.PeekIs(1, "ENGINE"), c.Is("ENGINE"):
			c.SkipIf("STORAGE", 0)
			c.Advance()
			g.Engine = optionValue(c)
		default:
			return
		}
	}
}

// tablespaceDetails drains CREATE TABLESPACE into ts. A USE LOGFILE GROUP
// clause is linked to an existing group of the catalog.
func (x *extractor) tablespaceDetails(ts *catalog.Tablespace) {
	c := x.c
	c.Expect("CREATE")
	c.SkipIf("UNDO", 0)
	c.Expect("TABLESPACE")
	id := identifier(c)
	ts.Name, ts.OldName = id.Name, id.Name

	if c.SkipIf("ADD", 0) {
		c.Expect("DATAFILE")
		if !c.IsKind(lexer.String) {
			c.Failf("expected file name but found %q", c.Text())
		}
		ts.DataFile = c.Unquoted()
		c.Advance()
	}

	if c.SkipIf("USE", 0) {
		c.Expect("LOGFILE")
		c.Expect("GROUP")
		group := identifier(c)
		if x.cat != nil {
			ts.LogFileGroup = x.cat.LogFileGroups.Find(group.Name, false)
		}
	}

	for {
		switch {
		case c.SkipKind(lexer.Comma):
		case c.SkipIf("INITIAL_SIZE", 0):
			ts.InitialSize = parseSize(optionValue(c))
		case c.SkipIf("AUTOEXTEND_SIZE", 0):
			ts.AutoExtendSize = parseSize(optionValue(c))
		case c.SkipIf("MAX_SIZE", 0):
			ts.MaxSize = parseSize(optionValue(c))
		case c.SkipIf("EXTENT_SIZE", 0):
			ts.ExtentSize = parseSize(optionValue(c))
		case c.SkipIf("NODEGROUP", 0):
			ts.NodeGroupID = int(atoi(optionValue(c)))
		case c.SkipIf("WAIT", 0):
			ts.Wait = true
		case c.SkipIf("NO_WAIT", 0):
			ts.Wait = false
		case c.SkipIf("COMMENT", 0):
			ts.Comment = optionValue(c)
		case c.Is("STORAGE") && c.PeekIs(1, "ENGINE"), c.Is("ENGINE"):
			c.SkipIf("STORAGE", 0)
			c.Advance()
			ts.Engine = optionValue(c)
		case c.IsAny("FILE_BLOCK_SIZE", "ENCRYPTION", "ENGINE_ATTRIBUTE"):
			c.Advance()
			optionValue(c)
		default:
			return
		}
	}
}

// serverDetails drains CREATE SERVER into s.
func (x *extractor) serverDetails(s *catalog.Server) {
	c := x.c
	c.Expect("CREATE")
	c.Expect("SERVER")
	id := identifier(c)
	s.Name, s.OldName = id.Name, id.Name

	c.Expect("FOREIGN")
	c.Expect("DATA")
	c.Expect("WRAPPER")
	if !c.Token().IsIdentifier() {
		c.Failf("expected wrapper name but found %q", c.Text())
	}
	s.WrapperName = c.Unquoted()
	c.Advance()

	c.Expect("OPTIONS")
	c.ExpectKind(lexer.LParen)
	for {
		key := c.Token().Upper()
		c.Advance()
		if c.AtEnd() || c.IsKind(lexer.RParen) {
			c.Failf("missing value for server option %s", key)
		}
		value := c.Unquoted()
		c.Advance()
		switch key {
		case "HOST":
			s.Host = value
		case "DATABASE":
			s.Schema = value
		case "USER":
			s.User = value
		case "PASSWORD":
			s.Password = value
		case "SOCKET":
			s.Socket = value
		case "OWNER":
			s.OwnerUser = value
		case "PORT":
			s.Port = value
		default:
			c.Failf("unknown server option %s", key)
		}
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	c.ExpectKind(lexer.RParen)
}
